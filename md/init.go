package md

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/stagedir"
	"github.com/timewinder-dev/vaspmd/subst"
)

// GeneralINCAR is the source-side name of the INCAR fragment shared by all stages.
const GeneralINCAR = "INCAR.general"

// InitOptions describes a new equilibration directory.
type InitOptions struct {
	// Source holds INCAR.general, INCAR.{linear,nose,nve}, POTCAR and KPOINTS.
	Source string
	OutDir string
	POSCAR string
	NPAR   int
	Config config.MD
}

// Init creates OutDir and fills it with everything Run needs. It refuses to
// touch a directory that already exists.
func Init(o InitOptions) error {
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.NPAR <= 0 {
		return fmt.Errorf("%w: npar must be positive, got %d", config.ErrConfig, o.NPAR)
	}
	if err := os.Mkdir(o.OutDir, 0o755); err != nil {
		return err
	}

	src := func(name string) string { return filepath.Join(o.Source, name) }
	out := func(name string) string { return filepath.Join(o.OutDir, name) }

	for _, name := range []string{
		vaspmd.INCAR + "." + string(Linear),
		vaspmd.INCAR + "." + string(Nose),
		vaspmd.INCAR + "." + string(NVE),
		vaspmd.POTCAR,
		vaspmd.KPOINTS,
	} {
		if err := stagedir.CopyFile(src(name), out(name)); err != nil {
			return err
		}
	}
	if err := stagedir.CopyFile(o.POSCAR, out(vaspmd.POSCAR)); err != nil {
		return err
	}
	if err := stagedir.CopyFile(src(GeneralINCAR), out(PartINCAR)); err != nil {
		return err
	}

	changed, err := subst.Glob(o.OutDir, vaspmd.INCAR+"*",
		subst.With(vaspmd.TempToken, o.Config.Temperature),
		subst.With(vaspmd.NparToken, o.NPAR),
	)
	if err != nil {
		return err
	}
	c := o.Config
	if err := config.WriteMD(out(config.MDFile), &c); err != nil {
		return err
	}
	log.Info().Str("dir", o.OutDir).Strs("incar", changed).Msg("Initialized md directory")
	return nil
}
