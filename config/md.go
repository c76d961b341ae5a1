package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MDFile is the conventional name of the equilibration config.
const MDFile = "md.toml"

// DefaultVaspCmd is run through the shell in each leaf directory.
const DefaultVaspCmd = "vasp.g.slm"

const (
	KeyTemperature = "temperature"
	KeyFromZero    = "start-from-zero"
	KeyBlockSize   = "steps-block"
	KeyLinearSteps = "steps-linear"
	KeyNoseSteps   = "steps-nose"
	KeyNVESteps    = "steps-nve"
	KeyVaspCmd     = "vasp-cmd"
	KeyMaxCycles   = "max-cycles"
	KeyStopWhen    = "stop-when"
)

var (
	mdRequired = []string{KeyTemperature, KeyFromZero, KeyBlockSize, KeyLinearSteps, KeyNoseSteps, KeyNVESteps}
	mdKnown    = append(mdRequired[:len(mdRequired):len(mdRequired)], KeyVaspCmd, KeyMaxCycles, KeyStopWhen)
)

// MD configures the heating / thermostat / production schedule.
type MD struct {
	Temperature int    `toml:"temperature" yaml:"temperature" validate:"gte=0"`
	FromZero    bool   `toml:"start-from-zero" yaml:"start-from-zero"`
	BlockSize   int    `toml:"steps-block" yaml:"steps-block" validate:"gt=0"`
	LinearSteps int    `toml:"steps-linear" yaml:"steps-linear" validate:"gt=0"`
	NoseSteps   int    `toml:"steps-nose" yaml:"steps-nose" validate:"gt=0"`
	NVESteps    int    `toml:"steps-nve" yaml:"steps-nve" validate:"gt=0"`
	VaspCmd     string `toml:"vasp-cmd,omitempty" yaml:"vasp-cmd,omitempty"`
	MaxCycles   int    `toml:"max-cycles,omitempty" yaml:"max-cycles,omitempty" validate:"gte=0"`
	StopWhen    string `toml:"stop-when,omitempty" yaml:"stop-when,omitempty" validate:"stopexpr"`
}

// LoadMD reads and validates an equilibration config.
func LoadMD(path string) (*MD, error) {
	c := &MD{}
	if err := load(path, c, mdKnown, mdRequired); err != nil {
		return nil, err
	}
	if c.VaspCmd == "" {
		c.VaspCmd = DefaultVaspCmd
	}
	return c, nil
}

// Validate checks the value constraints of a record built in code.
func (c *MD) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

// WriteMD writes c to path in the format implied by its extension.
func WriteMD(path string, c *MD) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch formatOf(path) {
	case formatYAML:
		enc := yaml.NewEncoder(f)
		if err := enc.Encode(c); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		if err := toml.NewEncoder(f).Encode(c); err != nil {
			return err
		}
	}
	return f.Close()
}
