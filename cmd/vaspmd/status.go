package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/vaspmd/loop"
	"github.com/timewinder-dev/vaspmd/md"
	"github.com/timewinder-dev/vaspmd/report"
	"github.com/timewinder-dev/vaspmd/search"
	"github.com/timewinder-dev/vaspmd/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the pipeline in --dir would resume",
	Args:  cobra.NoArgs,
	Run:   statusCommand,
}

func statusCommand(cmd *cobra.Command, args []string) {
	mdPath := filepath.Join(workDir, md.StateFile)
	searchPath := filepath.Join(workDir, search.StateFile)

	if ok, err := snapshot.Exists(mdPath); err != nil {
		log.Fatal().Err(err).Msg("Couldn't stat snapshot")
	} else if ok {
		v, err := loop.Peek[md.State, []string](mdPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", mdPath).Msg("Couldn't read snapshot")
		}
		var in *report.Inner
		if !v.Done {
			dir := md.DirName(v.State.Cycle, v.State.Stage)
			in = innerProgress[md.SeriesState](filepath.Join(workDir, dir, md.SeriesStateFile), dir, func(s md.SeriesState) (int, int) {
				return s.Index, len(s.Names)
			})
		}
		fmt.Print(report.MD(v, in))
		return
	}

	if ok, err := snapshot.Exists(searchPath); err != nil {
		log.Fatal().Err(err).Msg("Couldn't stat snapshot")
	} else if ok {
		v, err := loop.Peek[search.State, []string](searchPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", searchPath).Msg("Couldn't read snapshot")
		}
		var in *report.Inner
		if !v.Done {
			in = innerProgress[search.SweepState](filepath.Join(workDir, v.State.Dir, search.SweepStateFile), v.State.Dir, func(s search.SweepState) (int, int) {
				return s.Index, len(s.Names)
			})
		}
		fmt.Print(report.Search(v, in))
		return
	}

	log.Fatal().Str("dir", workDir).Msg("No pipeline has been started here")
}

// innerProgress reads a nested loop's snapshot. A missing or unreadable one
// is reported as absent.
func innerProgress[S any](path, dir string, count func(S) (int, int)) *report.Inner {
	v, err := loop.Peek[S, []string](path)
	if err != nil {
		if !loop.IsNotStarted(err) {
			log.Warn().Err(err).Str("path", path).Msg("Couldn't read nested snapshot")
		}
		return nil
	}
	if v.Done {
		return &report.Inner{Dir: dir, Index: len(v.Result), Total: len(v.Result), Done: true}
	}
	i, n := count(v.State)
	return &report.Inner{Dir: dir, Index: i, Total: n}
}
