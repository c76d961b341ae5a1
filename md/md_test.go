package md

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/vaspmd"
	"github.com/timewinder-dev/vaspmd/config"
	"github.com/timewinder-dev/vaspmd/manifest"
	"github.com/timewinder-dev/vaspmd/trial"
)

// fakeVasp records where it ran, ends every run at 310 K and leaves the
// starting structure as the final one. If failFile names a path suffix of
// the working directory, that one run fails with status 7.
const fakeVasp = `#!/bin/sh
here=$(pwd)
if [ -f %[2]q ]; then
	case "$here" in
	*"$(cat %[2]q)")
		rm %[2]q
		exit 7
		;;
	esac
fi
echo "$here" >> %[1]q
printf '  1 T=   290. E= -.1\n  2 T=   310. E= -.2\n' > OSZICAR
cp POSCAR CONTCAR
echo wave > WAVECAR
`

type fixture struct {
	root     string
	log      string
	failFile string
	vasp     trial.Command
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:     filepath.Join(base, "md"),
		log:      filepath.Join(base, "vasp.log"),
		failFile: filepath.Join(base, "fail"),
	}
	require.NoError(t, os.Mkdir(f.root, 0o755))
	script := filepath.Join(base, "vasp.sh")
	require.NoError(t, os.WriteFile(script, []byte(fmt.Sprintf(fakeVasp, f.log, f.failFile)), 0o755))
	f.vasp = trial.Argv("/bin/sh", script)

	files := map[string]string{
		PartINCAR:                "SYSTEM = test",
		vaspmd.INCAR + ".linear": "NSW = 数\nTEBEG = 無\nTEEND = 300",
		vaspmd.INCAR + ".nose":   "NSW = 数\nTEBEG = 無\nSMASS = 0",
		vaspmd.INCAR + ".nve":    "NSW = 数\nTEBEG = 無\nSMASS = -3",
		vaspmd.POSCAR:            "structure",
		vaspmd.POTCAR:            "potential",
		vaspmd.KPOINTS:           "gamma",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(f.root, name), []byte(body+"\n"), 0o644))
	}
	return f
}

func (f *fixture) pipeline(t *testing.T, c config.MD) *Pipeline {
	t.Helper()
	p, err := New(f.root, &c)
	require.NoError(t, err)
	p.Vasp = f.vasp
	p.Runner = &trial.Runner{Stdout: io.Discard, Stderr: io.Discard}
	return p
}

func (f *fixture) runs(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.log)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		rel, err := filepath.Rel(f.root, line)
		require.NoError(t, err)
		out = append(out, rel)
	}
	return out
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, rel))
	require.NoError(t, err)
	return string(data)
}

func oneCycle() config.MD {
	return config.MD{
		Temperature: 300,
		FromZero:    true,
		BlockSize:   100,
		LinearSteps: 50,
		NoseSteps:   250,
		NVESteps:    100,
		MaxCycles:   1,
	}
}

var oneCycleLeaves = []string{"1-linear", "1-nose/001", "1-nose/002", "1-nose/003", "1-nve/001"}

func TestPartition(t *testing.T) {
	tests := []struct {
		steps, block int
		names        []string
		sizes        []int
	}{
		{250, 100, []string{"001", "002", "003"}, []int{100, 100, 50}},
		{200, 100, []string{"001", "002"}, []int{100, 100}},
		{50, 100, []string{"001"}, []int{50}},
		{1, 1, []string{"001"}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.steps, tt.block), func(t *testing.T) {
			names, sizes, err := Partition(tt.steps, tt.block)
			require.NoError(t, err)
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.sizes, sizes)
			assert.Len(t, names, (tt.steps+tt.block-1)/tt.block)
		})
	}

	_, _, err := Partition(0, 100)
	assert.Error(t, err)
	_, _, err = Partition(100, 0)
	assert.Error(t, err)
}

func TestStageOrder(t *testing.T) {
	s, wrapped := Linear.Next()
	assert.Equal(t, Nose, s)
	assert.False(t, wrapped)
	s, wrapped = Nose.Next()
	assert.Equal(t, NVE, s)
	assert.False(t, wrapped)
	s, wrapped = NVE.Next()
	assert.Equal(t, Linear, s)
	assert.True(t, wrapped)
	assert.Equal(t, "2-nose", DirName(2, Nose))
	assert.False(t, Stage("npt").Valid())
}

func TestRunOneCycle(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, oneCycle())

	leaves, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oneCycleLeaves, leaves)
	assert.Equal(t, oneCycleLeaves, f.runs(t))

	stored, err := manifest.Read(filepath.Join(f.root, LeavesFile))
	require.NoError(t, err)
	assert.Equal(t, leaves, stored)

	linear := f.read(t, "1-linear/INCAR")
	assert.Equal(t, "SYSTEM = test\n\nNSW = 50\nTEBEG = 0\nTEEND = 300\n\n", linear)
	assert.Contains(t, f.read(t, "1-nose/INCAR"), "TEBEG = 310")
	assert.Contains(t, f.read(t, "1-nose/INCAR"), "NSW = 数")
	assert.Contains(t, f.read(t, "1-nose/001/INCAR"), "NSW = 100")
	assert.Contains(t, f.read(t, "1-nose/003/INCAR"), "NSW = 50")
	assert.Contains(t, f.read(t, "1-nve/001/INCAR"), "NSW = 100")
	assert.Equal(t, "001\n002\n003\n", f.read(t, "1-nose/"+SeriesDirsFile))

	for _, dir := range []string{"1-linear", "1-nose", "1-nve"} {
		assert.Equal(t, "310\n", f.read(t, dir+"/"+FinalTempFile), dir)
		assert.Equal(t, "structure\n", f.read(t, dir+"/"+vaspmd.CONTCAR), dir)
		assert.Equal(t, "wave\n", f.read(t, dir+"/"+vaspmd.WAVECAR), dir)
	}
	assert.Equal(t, "potential\n", f.read(t, "1-nose/002/POTCAR"))
}

func TestRunFinishedIsNoop(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline(t, oneCycle()).Run(context.Background())
	require.NoError(t, err)
	before := f.runs(t)

	leaves, err := f.pipeline(t, oneCycle()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oneCycleLeaves, leaves)
	assert.Equal(t, before, f.runs(t))
}

func TestResumeAfterFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.failFile, []byte("1-nose/002"), 0o644))

	_, err := f.pipeline(t, oneCycle()).Run(context.Background())
	var te *trial.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 7, te.ExitCode())
	assert.Equal(t, []string{"1-linear", "1-nose/001"}, f.runs(t))

	stored, err := manifest.Read(filepath.Join(f.root, LeavesFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"1-linear"}, stored)

	leaves, err := f.pipeline(t, oneCycle()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oneCycleLeaves, leaves)
	// Nothing that finished before the failure runs again.
	assert.Equal(t, oneCycleLeaves, f.runs(t))
}

func TestResumeKeepsPartition(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.failFile, []byte("1-nose/002"), 0o644))
	_, err := f.pipeline(t, oneCycle()).Run(context.Background())
	require.Error(t, err)

	c := oneCycle()
	c.BlockSize = 60
	leaves, err := f.pipeline(t, c).Run(context.Background())
	require.NoError(t, err)
	// The nose series keeps its original blocks; nve is split afresh.
	assert.Equal(t, []string{"1-linear", "1-nose/001", "1-nose/002", "1-nose/003", "1-nve/001", "1-nve/002"}, leaves)
	assert.Contains(t, f.read(t, "1-nose/003/INCAR"), "NSW = 50")
	assert.Contains(t, f.read(t, "1-nve/002/INCAR"), "NSW = 40")
}

func TestStopWhen(t *testing.T) {
	f := newFixture(t)
	c := oneCycle()
	c.MaxCycles = 0
	c.StopWhen = "stage == 'nve' and temperature >= 310"
	leaves, err := f.pipeline(t, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1-linear", "1-nose/001", "1-nose/002", "1-nose/003"}, leaves)
}

func TestStartFromTarget(t *testing.T) {
	f := newFixture(t)
	c := oneCycle()
	c.FromZero = false
	c.StopWhen = "stage == 'nose'"
	c.MaxCycles = 0
	leaves, err := f.pipeline(t, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1-linear"}, leaves)
	assert.Contains(t, f.read(t, "1-linear/INCAR"), "TEBEG = 300")
}

func TestCancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline(t, oneCycle()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.runs(t))
}

func TestInit(t *testing.T) {
	src := t.TempDir()
	for name, body := range map[string]string{
		GeneralINCAR:   "NPAR = 道",
		"INCAR.linear": "TEEND = 茶",
		"INCAR.nose":   "TEBEG = 無\nTEEND = 茶",
		"INCAR.nve":    "NSW = 数",
		vaspmd.POTCAR:  "potential",
		vaspmd.KPOINTS: "gamma",
		"start.vasp":   "structure",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(body), 0o644))
	}
	out := filepath.Join(t.TempDir(), "run")
	opts := InitOptions{
		Source: src,
		OutDir: out,
		POSCAR: filepath.Join(src, "start.vasp"),
		NPAR:   4,
		Config: oneCycle(),
	}
	require.NoError(t, Init(opts))

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "NPAR = 4", read(PartINCAR))
	assert.Equal(t, "TEEND = 300", read("INCAR.linear"))
	assert.Equal(t, "TEBEG = 無\nTEEND = 300", read("INCAR.nose"))
	assert.Equal(t, "NSW = 数", read("INCAR.nve"))
	assert.Equal(t, "structure", read(vaspmd.POSCAR))
	assert.Equal(t, "gamma", read(vaspmd.KPOINTS))

	c, err := config.LoadMD(filepath.Join(out, config.MDFile))
	require.NoError(t, err)
	assert.Equal(t, 300, c.Temperature)
	assert.True(t, c.FromZero)
	assert.Equal(t, 250, c.NoseSteps)
	assert.Equal(t, 1, c.MaxCycles)

	assert.Error(t, Init(opts), "existing directory")

	bad := opts
	bad.OutDir = filepath.Join(t.TempDir(), "bad")
	bad.Config.BlockSize = 0
	assert.ErrorIs(t, Init(bad), config.ErrConfig)
	assert.NoDirExists(t, bad.OutDir)
}
