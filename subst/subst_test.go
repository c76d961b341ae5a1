package subst

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileReplacesAllOccurrences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INCAR")
	require.NoError(t, os.WriteFile(path, []byte("NSW = 数\nTEBEG = 無\n# again 数\n"), 0o644))

	require.NoError(t, File(path, With("数", 250), With("無", 0)))
	assert.Equal(t, "NSW = 250\nTEBEG = 0\n# again 250\n", read(t, path))

	// Already substituted: nothing left to do.
	require.NoError(t, File(path, With("数", 999)))
	assert.Equal(t, "NSW = 250\nTEBEG = 0\n# again 250\n", read(t, path))
}

func TestGlobVisitsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"INCAR.linear", "INCAR.nose", "POTCAR"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("TEBEG = 茶\n"), 0o644))
	}
	files, err := Glob(dir, "INCAR*", With("茶", 300))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "TEBEG = 300\n", read(t, filepath.Join(dir, "INCAR.nose")))
	assert.Equal(t, "TEBEG = 茶\n", read(t, filepath.Join(dir, "POTCAR")))
}

func TestCat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("ENCUT = 400"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("IBRION = 0\n"), 0o644))
	dest := filepath.Join(dir, "INCAR")
	require.NoError(t, Cat(dest, filepath.Join(dir, "a"), filepath.Join(dir, "b")))
	assert.Equal(t, "ENCUT = 400\nIBRION = 0\n\n", read(t, dest))

	require.Error(t, Cat(dest, filepath.Join(dir, "missing")))
}
