// Package config reads the flat configuration records of the two pipelines.
// Records are TOML, or YAML when the file name ends in .yaml or .yml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd/stagedir"
	"github.com/timewinder-dev/vaspmd/stop"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks a malformed or incomplete configuration record.
var ErrConfig = errors.New("config: invalid configuration")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("dirname", func(fl validator.FieldLevel) bool {
		return stagedir.ValidateName(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation("stopexpr", func(fl validator.FieldLevel) bool {
		return stop.Check(fl.Field().String()) == nil
	})
}

type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatTOML
	}
}

// load decodes the record at path into dst, warning about keys outside known
// and failing on any of required that are absent.
func load(path string, dst any, known, required []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var present []string
	switch formatOf(path) {
	case formatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
		}
		for k := range raw {
			present = append(present, k)
		}
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
		}
	default:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(dst)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
		}
		for _, k := range md.Keys() {
			if len(k) == 1 {
				present = append(present, k[0])
			}
		}
	}
	sort.Strings(present)

	for _, k := range present {
		if !slices.Contains(known, k) {
			log.Warn().Str("file", path).Str("key", k).Msg("Unknown key in config")
		}
	}
	var missing []string
	for _, k := range required {
		if !slices.Contains(present, k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing %s", ErrConfig, path, strings.Join(missing, ", "))
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return nil
}
