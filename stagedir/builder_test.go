package stagedir

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree records every entry below root: file contents, or "-> target" for links.
func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			out[rel] = "-> " + target
		case d.IsDir():
			out[rel] = "dir"
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out[rel] = string(data)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func rootWithInputs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "POSCAR"), "poscar\n")
	writeFile(t, filepath.Join(root, "POTCAR"), "potcar\n")
	writeFile(t, filepath.Join(root, "KPOINTS"), "kpoints\n")
	return root
}

func TestEnsureFirstStage(t *testing.T) {
	root := rootWithInputs(t)
	writeFile(t, filepath.Join(root, "WAVECAR"), "wave0")
	b := NewBuilder(root)

	require.NoError(t, b.Ensure("1-linear", ""))

	got := tree(t, filepath.Join(root, "1-linear"))
	assert.Equal(t, map[string]string{
		".":       "dir",
		"POTCAR":  "-> ../POTCAR",
		"KPOINTS": "-> ../KPOINTS",
		"POSCAR":  "-> ../POSCAR",
		"WAVECAR": "wave0",
	}, got)

	data, err := os.ReadFile(filepath.Join(root, "1-linear", "POSCAR"))
	require.NoError(t, err)
	assert.Equal(t, "poscar\n", string(data))
}

func TestEnsureFromPredecessor(t *testing.T) {
	root := rootWithInputs(t)
	b := NewBuilder(root)
	require.NoError(t, b.Ensure("1-linear", ""))
	writeFile(t, filepath.Join(root, "1-linear", "CONTCAR"), "relaxed")
	writeFile(t, filepath.Join(root, "1-linear", "WAVECAR"), "wave1")

	require.NoError(t, b.Ensure("1-nose", "1-linear"))

	got := tree(t, filepath.Join(root, "1-nose"))
	assert.Equal(t, "relaxed", got["POSCAR"])
	assert.Equal(t, "wave1", got["WAVECAR"])
	assert.Equal(t, "-> ../POTCAR", got["POTCAR"])
}

func TestEnsureMissingPredecessorOutput(t *testing.T) {
	root := rootWithInputs(t)
	b := NewBuilder(root)
	require.NoError(t, Mkdir(filepath.Join(root, "1-linear")))

	err := b.Ensure("1-nose", "1-linear")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEnsureConverges(t *testing.T) {
	for _, withWave := range []bool{false, true} {
		once := rootWithInputs(t)
		twice := rootWithInputs(t)
		for _, root := range []string{once, twice} {
			if withWave {
				writeFile(t, filepath.Join(root, "WAVECAR"), "w")
			}
			require.NoError(t, NewBuilder(root).Ensure("1-linear", ""))
			writeFile(t, filepath.Join(root, "1-linear", "CONTCAR"), "c")
			writeFile(t, filepath.Join(root, "1-linear", "WAVECAR"), "w1")
			require.NoError(t, NewBuilder(root).Ensure("1-nose", "1-linear"))
		}
		require.NoError(t, NewBuilder(twice).Ensure("1-nose", "1-linear"))
		assert.Equal(t, tree(t, once), tree(t, twice))
	}
}

func TestEnsureRepairsPartialDirectory(t *testing.T) {
	root := rootWithInputs(t)
	b := NewBuilder(root)
	dir := filepath.Join(root, "1-linear")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// Left behind by an interrupted run: a stale link and a stale restart file.
	require.NoError(t, os.Symlink("../elsewhere", filepath.Join(dir, "POTCAR")))
	writeFile(t, filepath.Join(dir, "WAVECAR"), "stale")

	require.NoError(t, b.Ensure("1-linear", ""))

	got := tree(t, dir)
	assert.Equal(t, "-> ../POTCAR", got["POTCAR"])
	_, hasWave := got["WAVECAR"]
	assert.False(t, hasWave, "no WAVECAR at the root means none in the stage")
}

func TestEnsureRejectsBadNames(t *testing.T) {
	root := rootWithInputs(t)
	before := tree(t, root)
	b := NewBuilder(root)

	for _, name := range []string{"", ".", "..", "a/b", "../escape"} {
		err := b.Ensure(name, "")
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	err := b.Ensure("1-nose", "x/1-linear")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Equal(t, before, tree(t, root), "rejection must happen before any mutation")
}

func TestPrimitives(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Mkdir(filepath.Join(dir, "d")))
	require.NoError(t, Mkdir(filepath.Join(dir, "d")))
	writeFile(t, filepath.Join(dir, "f"), "x")
	require.Error(t, Mkdir(filepath.Join(dir, "f")), "a file is not a directory")

	require.NoError(t, Symlink("a", filepath.Join(dir, "l")))
	require.NoError(t, Symlink("b", filepath.Join(dir, "l")))
	target, err := os.Readlink(filepath.Join(dir, "l"))
	require.NoError(t, err)
	assert.Equal(t, "b", target)

	require.NoError(t, Touch(filepath.Join(dir, "t")))
	require.NoError(t, Touch(filepath.Join(dir, "t")))

	require.NoError(t, WriteLines(filepath.Join(dir, "lines"), []string{"001", "002"}))
	writeFile(t, filepath.Join(dir, "messy"), "  001 \n\n002\n   \n")
	lines, err := ReadLines(filepath.Join(dir, "messy"))
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, lines)
	lines, err = ReadLines(filepath.Join(dir, "lines"))
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, lines)
}
