// Package md runs the molecular-dynamics equilibration schedule: a linear
// heating run, a thermostatted relaxation and constant-energy production,
// repeated cycle after cycle. Relaxation and production are split into
// blocks so that no single checkpoint covers more than blocksize steps.
//
// The pipeline works in a root directory prepared by Init:
//
//	INCAR.part INCAR.linear INCAR.nose INCAR.nve POSCAR POTCAR KPOINTS md.toml
//
// and creates one directory per stage beneath it.
package md

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/extract"
	"github.com/timewinder-dev/vaspmd/loop"
	"github.com/timewinder-dev/vaspmd/manifest"
	"github.com/timewinder-dev/vaspmd/stagedir"
	"github.com/timewinder-dev/vaspmd/stop"
	"github.com/timewinder-dev/vaspmd/subst"
	"github.com/timewinder-dev/vaspmd/trial"
)

const (
	StateFile     = "md.state"
	LeavesFile    = "md.leaves"
	PartINCAR     = "INCAR.part"
	FinalTempFile = "final-temp"
)

// State is everything needed to carry on after an interruption.
type State struct {
	Cycle     int
	Stage     Stage
	StartTemp int
	// Prev is the stage directory to continue from; empty for the very first.
	Prev   string
	Leaves []string
}

// Pipeline binds a root directory to its configuration.
type Pipeline struct {
	Root   string
	Config *config.MD
	Vasp   trial.Command
	Runner *trial.Runner
	Policy *stop.Policy

	builder *stagedir.Builder
}

// New prepares a pipeline rooted at root.
func New(root string, c *config.MD) (*Pipeline, error) {
	policy, err := stop.New(c.MaxCycles, c.StopWhen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	vasp := c.VaspCmd
	if vasp == "" {
		vasp = config.DefaultVaspCmd
	}
	return &Pipeline{
		Root:    root,
		Config:  c,
		Vasp:    trial.Shell(vasp),
		Runner:  trial.Default,
		Policy:  policy,
		builder: stagedir.NewBuilder(root),
	}, nil
}

// Initial is the state a fresh pipeline starts from.
func (p *Pipeline) Initial() State {
	t := p.Config.Temperature
	if p.Config.FromZero {
		t = 0
	}
	return State{Cycle: 1, Stage: Linear, StartTemp: t}
}

// Run resumes the schedule and returns the leaf directories once the stop
// policy fires. With no policy it only returns on error.
func (p *Pipeline) Run(ctx context.Context, opts ...loop.Option) ([]string, error) {
	return loop.Run(ctx, filepath.Join(p.Root, StateFile), p.Initial(), p.step, opts...)
}

func (p *Pipeline) step(ctx context.Context, s State) (loop.Next[State, []string], error) {
	stopNow, err := p.Policy.Reached(s.Cycle, map[string]any{
		"cycle":       s.Cycle,
		"stage":       string(s.Stage),
		"temperature": s.StartTemp,
	})
	if err != nil {
		return loop.Next[State, []string]{}, err
	}
	if stopNow {
		log.Info().Int("cycle", s.Cycle).Str("stage", string(s.Stage)).Str("policy", p.Policy.String()).Msg("Stop policy reached")
		return loop.Done[State](s.Leaves), nil
	}
	if !s.Stage.Valid() {
		return loop.Next[State, []string]{}, fmt.Errorf("md: unknown stage %q in snapshot", s.Stage)
	}

	dir := DirName(s.Cycle, s.Stage)
	stageDir := filepath.Join(p.Root, dir)
	log.Info().Str("dir", dir).Int("start_temp", s.StartTemp).Msg("Running stage")

	if err := p.builder.Ensure(dir, s.Prev); err != nil {
		return loop.Next[State, []string]{}, err
	}
	incar := filepath.Join(stageDir, vaspmd.INCAR)
	err = subst.Cat(incar, filepath.Join(p.Root, PartINCAR), filepath.Join(p.Root, vaspmd.INCAR+"."+string(s.Stage)))
	if err != nil {
		return loop.Next[State, []string]{}, fmt.Errorf("md: writing INCAR for %s: %w", dir, err)
	}
	if err := subst.File(incar, subst.With(vaspmd.StartTempToken, s.StartTemp)); err != nil {
		return loop.Next[State, []string]{}, err
	}

	var leaves []string
	switch s.Stage {
	case Linear:
		if err := subst.File(incar, subst.With(vaspmd.StepsToken, p.Config.LinearSteps)); err != nil {
			return loop.Next[State, []string]{}, err
		}
		if err := p.Runner.Invoke(ctx, p.Vasp, stageDir); err != nil {
			return loop.Next[State, []string]{}, err
		}
		leaves = []string{dir}
	case Nose:
		leaves, err = p.series(ctx, dir, p.Config.NoseSteps)
	case NVE:
		leaves, err = p.series(ctx, dir, p.Config.NVESteps)
	}
	if err != nil {
		return loop.Next[State, []string]{}, err
	}

	endTemp, err := extract.FinalTemperature(filepath.Join(p.Root, leaves[len(leaves)-1], vaspmd.OSZICAR))
	if err != nil {
		return loop.Next[State, []string]{}, err
	}
	if err := os.WriteFile(filepath.Join(stageDir, FinalTempFile), fmt.Appendf(nil, "%d\n", endTemp), 0o644); err != nil {
		return loop.Next[State, []string]{}, err
	}

	all := slices.Concat(s.Leaves, leaves)
	if err := manifest.Write(filepath.Join(p.Root, LeavesFile), all); err != nil {
		return loop.Next[State, []string]{}, fmt.Errorf("md: writing manifest: %w", err)
	}

	next, wrapped := s.Stage.Next()
	cycle := s.Cycle
	if wrapped {
		cycle++
	}
	log.Info().Str("dir", dir).Int("end_temp", endTemp).Int("leaves", len(leaves)).Msg("Stage finished")
	return loop.Continue[State, []string](State{
		Cycle:     cycle,
		Stage:     next,
		StartTemp: endTemp,
		Prev:      dir,
		Leaves:    all,
	}), nil
}
