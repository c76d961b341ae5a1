package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/report"
	"github.com/timewinder-dev/vaspmd/search"
)

var searchConfigPath string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Narrow a parameter range with repeated trial sweeps",
}

var searchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume the search in --dir",
	Args:  cobra.NoArgs,
	Run:   searchRunCommand,
}

func init() {
	searchRunCmd.Flags().StringVar(&searchConfigPath, "config", "", "Config file (default DIR/"+config.SearchFile+")")
	searchCmd.AddCommand(searchRunCmd)
}

func searchRunCommand(cmd *cobra.Command, args []string) {
	path := searchConfigPath
	if path == "" {
		path = filepath.Join(workDir, config.SearchFile)
	}
	c, err := config.LoadSearch(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("Couldn't load config")
	}
	p, err := search.New(workDir, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build pipeline")
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintln(os.Stderr, color.Cyan.Sprint("Running search..."))
	leaves, err := p.Run(ctx, report.Commits(reporter(), "search"))
	if err != nil {
		log.Fatal().Err(err).Msg("Search stopped")
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprintf("Search finished with %d trial directories", len(leaves)))
	for _, l := range leaves {
		fmt.Println(l)
	}
}
