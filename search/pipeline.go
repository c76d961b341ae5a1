// Package search narrows a numeric parameter range depth by depth. At each
// depth a set of trials is run at evenly spaced values, and an external
// decision command reads their output and picks the range for the next depth.
//
// Each depth lives in its own directory beneath the root:
//
//	set-001/001 set-001/002 ... set-002/001 ...
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/loop"
	"github.com/timewinder-dev/vaspmd/manifest"
	"github.com/timewinder-dev/vaspmd/stagedir"
	"github.com/timewinder-dev/vaspmd/stop"
	"github.com/timewinder-dev/vaspmd/trial"
)

const (
	StateFile      = "search.state"
	SweepStateFile = "subsearch.state"
	LeavesFile     = "search.leaves"
	BadNextFile    = "bad_next.out"
)

// State is the resumable position of the search.
type State struct {
	Depth int
	Min   float64
	Max   float64
	// Dir is recorded rather than derived so a renamed scheme cannot strand
	// an unfinished sweep.
	Dir    string
	Leaves []string
}

// SweepState walks the samples of one depth. Values and Names are fixed when
// the sweep is seeded.
type SweepState struct {
	Index  int
	Values []float64
	Names  []string
}

// Pipeline binds a root directory to a search configuration.
type Pipeline struct {
	Root   string
	Config *config.Search
	Init   trial.Command
	Trial  trial.Command
	Decide trial.Command
	Runner *trial.Runner
	Policy *stop.Policy
}

// New parses the configured commands and stop policy.
func New(root string, c *config.Search) (*Pipeline, error) {
	initCmd, err := trial.Parse(c.CmdInit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrConfig, config.KeyCmdInit, err)
	}
	next, err := trial.Parse(c.CmdNext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrConfig, config.KeyCmdNext, err)
	}
	policy, err := stop.New(c.MaxDepth, c.StopWhen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	for _, f := range c.Files {
		if err := stagedir.ValidateName(f); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", config.ErrConfig, config.KeyFiles, err)
		}
	}
	return &Pipeline{
		Root:   root,
		Config: c,
		Init:   initCmd,
		Trial:  trial.Shell(c.CmdRun),
		Decide: next,
		Runner: trial.Default,
		Policy: policy,
	}, nil
}

// Initial is the state a fresh search starts from.
func (p *Pipeline) Initial() State {
	return State{Depth: 1, Min: p.Config.StartMin, Max: p.Config.StartMax, Dir: DirName(1)}
}

// Run resumes the search and returns every trial directory once the stop
// policy fires.
func (p *Pipeline) Run(ctx context.Context, opts ...loop.Option) ([]string, error) {
	return loop.Run(ctx, filepath.Join(p.Root, StateFile), p.Initial(), p.step, opts...)
}

func (p *Pipeline) step(ctx context.Context, s State) (loop.Next[State, []string], error) {
	stopNow, err := p.Policy.Reached(s.Depth, map[string]any{
		"depth": s.Depth,
		"min":   s.Min,
		"max":   s.Max,
		"width": s.Max - s.Min,
	})
	if err != nil {
		return loop.Next[State, []string]{}, err
	}
	if stopNow {
		log.Info().Int("depth", s.Depth).Float64("min", s.Min).Float64("max", s.Max).Str("policy", p.Policy.String()).Msg("Stop policy reached")
		return loop.Done[State](s.Leaves), nil
	}
	if err := stagedir.ValidateName(s.Dir); err != nil {
		return loop.Next[State, []string]{}, err
	}

	dir := filepath.Join(p.Root, s.Dir)
	log.Info().Str("dir", s.Dir).Float64("min", s.Min).Float64("max", s.Max).Msg("Searching range")
	if err := stagedir.Mkdir(dir); err != nil {
		return loop.Next[State, []string]{}, err
	}
	for _, f := range p.Config.Files {
		if err := stagedir.Symlink(filepath.Join("..", f), filepath.Join(dir, f)); err != nil {
			return loop.Next[State, []string]{}, fmt.Errorf("search: linking %s into %s: %w", f, s.Dir, err)
		}
	}

	names, err := p.sweep(ctx, dir, s.Min, s.Max)
	if err != nil {
		return loop.Next[State, []string]{}, err
	}

	out, err := p.Runner.Output(ctx, p.Decide, dir, names...)
	if err != nil {
		return loop.Next[State, []string]{}, err
	}
	lo, hi, err := ParseRange(out)
	if err != nil {
		if werr := os.WriteFile(filepath.Join(dir, BadNextFile), out, 0o644); werr != nil {
			log.Error().Err(werr).Str("dir", s.Dir).Msg("Could not save decision output")
		}
		return loop.Next[State, []string]{}, fmt.Errorf("%w (output saved to %s)", err, filepath.Join(s.Dir, BadNextFile))
	}

	leaves := make([]string, len(names))
	for i, n := range names {
		leaves[i] = filepath.Join(s.Dir, n)
	}
	all := slices.Concat(s.Leaves, leaves)
	if err := manifest.Write(filepath.Join(p.Root, LeavesFile), all); err != nil {
		return loop.Next[State, []string]{}, fmt.Errorf("search: writing manifest: %w", err)
	}

	log.Info().Str("dir", s.Dir).Float64("next_min", lo).Float64("next_max", hi).Msg("Depth finished")
	return loop.Continue[State, []string](State{
		Depth:  s.Depth + 1,
		Min:    lo,
		Max:    hi,
		Dir:    DirName(s.Depth + 1),
		Leaves: all,
	}), nil
}

// sweep runs one trial per sample value inside dir and returns the trial
// directory names.
func (p *Pipeline) sweep(ctx context.Context, dir string, lo, hi float64) ([]string, error) {
	n := p.Config.NPoints
	seed := SweepState{Values: Linspace(lo, hi, n), Names: sampleNames(n)}
	step := func(ctx context.Context, s SweepState) (loop.Next[SweepState, []string], error) {
		if s.Index >= len(s.Names) {
			return loop.Done[SweepState](s.Names), nil
		}
		if len(s.Values) != len(s.Names) {
			return loop.Next[SweepState, []string]{}, fmt.Errorf("search: sweep in %s has %d names but %d values", dir, len(s.Names), len(s.Values))
		}
		name, value := s.Names[s.Index], s.Values[s.Index]
		if err := p.Runner.Invoke(ctx, p.Init, dir, name, FormatValue(value)); err != nil {
			return loop.Next[SweepState, []string]{}, err
		}
		if err := p.Runner.Invoke(ctx, p.Trial, filepath.Join(dir, name)); err != nil {
			return loop.Next[SweepState, []string]{}, err
		}
		return loop.Continue[SweepState, []string](SweepState{
			Index:  s.Index + 1,
			Values: s.Values,
			Names:  s.Names,
		}), nil
	}
	return loop.Run(ctx, filepath.Join(dir, SweepStateFile), seed, step)
}
