package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/md"
	"github.com/timewinder-dev/vaspmd/report"
)

var (
	mdConfigPath string

	initTemp      int
	initPOSCAR    string
	initSteps     []int
	initNPAR      int
	initBlockSize int
	initNoZero    bool
	initSource    string
	initVaspCmd   string
	initMaxCycles int
	initStopWhen  string
)

var mdCmd = &cobra.Command{
	Use:   "md",
	Short: "Heat, thermostat and equilibrate a structure",
}

var mdInitCmd = &cobra.Command{
	Use:   "init OUTDIR",
	Short: "Create an equilibration directory from INCAR.general, INCAR.{linear,nose,nve}, POTCAR and KPOINTS",
	Args:  cobra.ExactArgs(1),
	Run:   mdInitCommand,
}

var mdRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume the equilibration in --dir",
	Args:  cobra.NoArgs,
	Run:   mdRunCommand,
}

func init() {
	f := mdInitCmd.Flags()
	f.IntVar(&initTemp, "temp", 0, "Target temperature in K")
	f.StringVar(&initPOSCAR, "poscar", "", "Starting structure")
	f.IntSliceVar(&initSteps, "steps", nil, "Step counts LIN_STEPS,NOSE_STEPS,NVE_STEPS")
	f.IntVar(&initNPAR, "npar", 0, "NPAR written into the INCAR files")
	f.IntVar(&initBlockSize, "blocksize", 0, "Split nose and nve stages into runs of this many steps")
	f.BoolVar(&initNoZero, "no-zero", false, "Start at the target temperature instead of heating from 0 K")
	f.StringVar(&initSource, "source", ".", "Directory holding the input files")
	f.StringVar(&initVaspCmd, "vasp-cmd", "", "Shell command that runs VASP (default "+config.DefaultVaspCmd+")")
	f.IntVar(&initMaxCycles, "max-cycles", 0, "Stop after this many cycles (0 runs until killed)")
	f.StringVar(&initStopWhen, "stop-when", "", "Starlark expression over cycle, stage and temperature that ends the run")
	for _, name := range []string{"temp", "poscar", "steps", "npar", "blocksize"} {
		_ = mdInitCmd.MarkFlagRequired(name)
	}

	mdRunCmd.Flags().StringVar(&mdConfigPath, "config", "", "Config file (default DIR/"+config.MDFile+")")

	mdCmd.AddCommand(mdInitCmd)
	mdCmd.AddCommand(mdRunCmd)
}

func mdInitCommand(cmd *cobra.Command, args []string) {
	if len(initSteps) != 3 {
		log.Fatal().Ints("steps", initSteps).Msg("--steps takes exactly three values")
	}
	opts := md.InitOptions{
		Source: initSource,
		OutDir: args[0],
		POSCAR: initPOSCAR,
		NPAR:   initNPAR,
		Config: config.MD{
			Temperature: initTemp,
			FromZero:    !initNoZero,
			BlockSize:   initBlockSize,
			LinearSteps: initSteps[0],
			NoseSteps:   initSteps[1],
			NVESteps:    initSteps[2],
			VaspCmd:     initVaspCmd,
			MaxCycles:   initMaxCycles,
			StopWhen:    initStopWhen,
		},
	}
	if err := md.Init(opts); err != nil {
		log.Fatal().Err(err).Str("dir", args[0]).Msg("Couldn't initialize md directory")
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprintf("Initialized %s", args[0]))
}

func mdRunCommand(cmd *cobra.Command, args []string) {
	path := mdConfigPath
	if path == "" {
		path = filepath.Join(workDir, config.MDFile)
	}
	c, err := config.LoadMD(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("Couldn't load config")
	}
	p, err := md.New(workDir, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build pipeline")
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintln(os.Stderr, color.Cyan.Sprint("Running equilibration..."))
	leaves, err := p.Run(ctx, report.Commits(reporter(), "md"))
	if err != nil {
		log.Fatal().Err(err).Msg("Equilibration stopped")
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprintf("Equilibration finished with %d leaf directories", len(leaves)))
	for _, l := range leaves {
		fmt.Println(l)
	}
}
