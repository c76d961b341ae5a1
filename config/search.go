package config

// SearchFile is the conventional name of the search config.
const SearchFile = "search.toml"

const (
	KeyStartMin = "start-min"
	KeyStartMax = "start-max"
	KeyNPoints  = "npoints"
	KeyCmdInit  = "cmd-init"
	KeyCmdRun   = "cmd-run"
	KeyCmdNext  = "cmd-next"
	KeyFiles    = "files"
	KeyMaxDepth = "max-depth"
)

var (
	searchRequired = []string{KeyStartMin, KeyStartMax, KeyNPoints, KeyCmdInit, KeyCmdRun, KeyCmdNext, KeyFiles}
	searchKnown    = append(searchRequired[:len(searchRequired):len(searchRequired)], KeyMaxDepth, KeyStopWhen)
)

// Search configures the range-narrowing parameter search.
//
// cmd-init is invoked as `cmd-init TRIALNAME VALUE` and must create and fill
// ./TRIALNAME, tolerating a directory left over from an interrupted run.
// cmd-run is a shell command run inside each trial directory. cmd-next is
// invoked as `cmd-next TRIALNAME...` and prints "MINVAL MAXVAL". cmd-init and
// cmd-next are split into words with shell quoting rules.
type Search struct {
	StartMin float64  `toml:"start-min" yaml:"start-min"`
	StartMax float64  `toml:"start-max" yaml:"start-max"`
	NPoints  int      `toml:"npoints" yaml:"npoints" validate:"gte=1"`
	CmdInit  string   `toml:"cmd-init" yaml:"cmd-init" validate:"required"`
	CmdRun   string   `toml:"cmd-run" yaml:"cmd-run" validate:"required"`
	CmdNext  string   `toml:"cmd-next" yaml:"cmd-next" validate:"required"`
	Files    []string `toml:"files" yaml:"files" validate:"dive,dirname"`
	MaxDepth int      `toml:"max-depth,omitempty" yaml:"max-depth,omitempty" validate:"gte=0"`
	StopWhen string   `toml:"stop-when,omitempty" yaml:"stop-when,omitempty" validate:"stopexpr"`
}

// LoadSearch reads and validates a search config.
func LoadSearch(path string) (*Search, error) {
	c := &Search{}
	if err := load(path, c, searchKnown, searchRequired); err != nil {
		return nil, err
	}
	return c, nil
}
