package md

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd"
	"github.com/timewinder-dev/vaspmd/loop"
	"github.com/timewinder-dev/vaspmd/stagedir"
	"github.com/timewinder-dev/vaspmd/subst"
)

const (
	SeriesStateFile = "series.state"
	SeriesDirsFile  = "series.alldirs"
)

// SeriesState walks the blocks of one stage. Names and Sizes are fixed when
// the series is first seeded, so a changed steps-block only affects stages
// that have not started yet.
type SeriesState struct {
	Index int
	Names []string
	Sizes []int
}

// series runs the blocks of stage one after another, each starting from the
// configuration its predecessor ended with, and returns the block
// directories relative to the pipeline root. When every block has run, the
// last block's WAVECAR and CONTCAR are copied up into the stage directory.
func (p *Pipeline) series(ctx context.Context, stage string, steps int) ([]string, error) {
	stageDir := filepath.Join(p.Root, stage)
	names, sizes, err := Partition(steps, p.Config.BlockSize)
	if err != nil {
		return nil, err
	}

	blocks := stagedir.NewBuilder(stageDir)
	step := func(ctx context.Context, s SeriesState) (loop.Next[SeriesState, []string], error) {
		return p.seriesStep(ctx, blocks, s)
	}
	done, err := loop.Run(ctx, filepath.Join(stageDir, SeriesStateFile), SeriesState{Names: names, Sizes: sizes}, step)
	if err != nil {
		return nil, err
	}
	if len(done) == 0 {
		return nil, fmt.Errorf("md: series in %s finished without blocks", stage)
	}

	last := filepath.Join(stageDir, done[len(done)-1])
	if err := stagedir.SyncOptional(filepath.Join(last, vaspmd.WAVECAR), filepath.Join(stageDir, vaspmd.WAVECAR)); err != nil {
		return nil, err
	}
	if err := stagedir.CopyFile(filepath.Join(last, vaspmd.CONTCAR), filepath.Join(stageDir, vaspmd.CONTCAR)); err != nil {
		return nil, fmt.Errorf("md: finishing series in %s: %w", stage, err)
	}

	leaves := make([]string, len(done))
	for i, name := range done {
		leaves[i] = filepath.Join(stage, name)
	}
	return leaves, nil
}

func (p *Pipeline) seriesStep(ctx context.Context, blocks *stagedir.Builder, s SeriesState) (loop.Next[SeriesState, []string], error) {
	if s.Index >= len(s.Names) {
		return loop.Done[SeriesState](s.Names), nil
	}
	if len(s.Sizes) != len(s.Names) {
		return loop.Next[SeriesState, []string]{}, fmt.Errorf("md: series in %s has %d names but %d sizes", blocks.Root, len(s.Names), len(s.Sizes))
	}
	if s.Index == 0 {
		if err := stagedir.WriteLines(filepath.Join(blocks.Root, SeriesDirsFile), s.Names); err != nil {
			return loop.Next[SeriesState, []string]{}, err
		}
	}

	name := s.Names[s.Index]
	prev := ""
	if s.Index > 0 {
		prev = s.Names[s.Index-1]
	}
	if err := blocks.Ensure(name, prev); err != nil {
		return loop.Next[SeriesState, []string]{}, err
	}

	dir := filepath.Join(blocks.Root, name)
	incar := filepath.Join(dir, vaspmd.INCAR)
	if err := stagedir.CopyFile(filepath.Join(blocks.Root, vaspmd.INCAR), incar); err != nil {
		return loop.Next[SeriesState, []string]{}, err
	}
	if err := subst.File(incar, subst.With(vaspmd.StepsToken, s.Sizes[s.Index])); err != nil {
		return loop.Next[SeriesState, []string]{}, err
	}

	log.Info().Str("block", name).Int("steps", s.Sizes[s.Index]).Int("of", len(s.Names)).Msg("Running block")
	if err := p.Runner.Invoke(ctx, p.Vasp, dir); err != nil {
		return loop.Next[SeriesState, []string]{}, err
	}
	return loop.Continue[SeriesState, []string](SeriesState{
		Index: s.Index + 1,
		Names: s.Names,
		Sizes: s.Sizes,
	}), nil
}
