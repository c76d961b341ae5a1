// Package stagedir creates the per-stage work directories of a pipeline. All
// operations converge: running them again after a partial run, or after a
// complete one, leaves the same directory contents.
package stagedir

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd"
)

// Builder populates stage directories beneath Root.
type Builder struct {
	Root string
	// Shared inputs linked into every stage from Root.
	Shared []string
	// Start is the starting configuration file name (POSCAR). A stage without
	// a predecessor links it from Root; otherwise it is copied from the
	// predecessor's Final.
	Start string
	// Restart is the optional carried-over restart file (WAVECAR). It is
	// mirrored from Root or the predecessor: copied if there, removed if not.
	Restart string
	// Final is the ending configuration a finished stage leaves behind (CONTCAR).
	Final string
}

// NewBuilder returns a Builder for the standard VASP file set.
func NewBuilder(root string) *Builder {
	return &Builder{
		Root:    root,
		Shared:  []string{vaspmd.POTCAR, vaspmd.KPOINTS},
		Start:   vaspmd.POSCAR,
		Restart: vaspmd.WAVECAR,
		Final:   vaspmd.CONTCAR,
	}
}

// Ensure creates stage directory name under Root and fills in its inputs.
// predecessor is the stage to continue from, or "" for the first stage. Both
// names are checked before anything is touched.
func (b *Builder) Ensure(name, predecessor string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if predecessor != "" {
		if err := ValidateName(predecessor); err != nil {
			return err
		}
	}
	dir := filepath.Join(b.Root, name)
	if err := Mkdir(dir); err != nil {
		return fmt.Errorf("stagedir: creating %s: %w", name, err)
	}
	for _, f := range b.Shared {
		if err := Symlink(filepath.Join("..", f), filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("stagedir: linking %s into %s: %w", f, name, err)
		}
	}

	if predecessor == "" {
		if err := Symlink(filepath.Join("..", b.Start), filepath.Join(dir, b.Start)); err != nil {
			return fmt.Errorf("stagedir: linking %s into %s: %w", b.Start, name, err)
		}
		if err := SyncOptional(filepath.Join(b.Root, b.Restart), filepath.Join(dir, b.Restart)); err != nil {
			return fmt.Errorf("stagedir: carrying %s into %s: %w", b.Restart, name, err)
		}
	} else {
		prev := filepath.Join(b.Root, predecessor)
		if err := SyncOptional(filepath.Join(prev, b.Restart), filepath.Join(dir, b.Restart)); err != nil {
			return fmt.Errorf("stagedir: continuing %s from %s: %w", name, predecessor, err)
		}
		if err := CopyFile(filepath.Join(prev, b.Final), filepath.Join(dir, b.Start)); err != nil {
			return fmt.Errorf("stagedir: continuing %s from %s: %w", name, predecessor, err)
		}
	}
	log.Debug().Str("dir", name).Str("from", predecessor).Msg("Stage directory ready")
	return nil
}
