package config

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTestdata(t *testing.T) {
	err := filepath.WalkDir("testdata", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		switch {
		case strings.HasPrefix(name, "md"):
			t.Run(name, func(t *testing.T) {
				c, err := LoadMD(path)
				require.NoError(t, err)
				t.Logf("%#v\n", c)
			})
		case strings.HasPrefix(name, "search"):
			t.Run(name, func(t *testing.T) {
				c, err := LoadSearch(path)
				require.NoError(t, err)
				t.Logf("%#v\n", c)
			})
		}
		return nil
	})
	require.NoError(t, err)
}
