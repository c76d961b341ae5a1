package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/vaspmd/report"
)

var (
	logLevel string
	workDir  string
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "vaspmd",
	Short: "Resumable VASP molecular dynamics and parameter search pipelines",
	Long: `vaspmd drives long VASP workflows that survive being killed.

Every step of a pipeline is checkpointed to a snapshot file in the working
directory. Running the same command again after an interruption picks up at
the first step that did not finish.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:     os.Stderr,
			NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
		})

		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'\n", logLevel)
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "Working directory of the pipeline")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Don't print per-step progress")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mdCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
}

// signalContext is cancelled by SIGINT or SIGTERM, which kills the running
// trial and leaves the last snapshot in place.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func reporter() report.Reporter {
	if quiet {
		return &report.SilentReporter{}
	}
	return &report.ColorReporter{Writer: os.Stderr}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
