// Package trial runs the external computation: VASP itself, or the helper
// commands of the parameter search.
package trial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog/log"
)

// Command is either a shell string, run with sh -c, or an argument vector
// executed directly.
type Command struct {
	shell string
	argv  []string
}

// Shell returns a command interpreted by /bin/sh.
func Shell(s string) Command {
	return Command{shell: s}
}

// Argv returns a command executed without a shell.
func Argv(argv ...string) Command {
	return Command{argv: append([]string(nil), argv...)}
}

// Parse tokenizes s with shell quoting rules into an argument vector, so that
// `./init.sh 'hello world' -v` becomes three words.
func Parse(s string) (Command, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return Command{}, fmt.Errorf("trial: parsing %q: %w", s, err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("trial: empty command %q", s)
	}
	return Argv(words...), nil
}

func (c Command) IsZero() bool {
	return c.shell == "" && len(c.argv) == 0
}

func (c Command) String() string {
	if c.shell != "" {
		return c.shell
	}
	return strings.Join(c.argv, " ")
}

func (c Command) build(ctx context.Context, dir string, args []string) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch {
	case c.shell != "":
		cmd = exec.CommandContext(ctx, "/bin/sh", append([]string{"-c", c.shell, "sh"}, args...)...)
	case len(c.argv) > 0:
		cmd = exec.CommandContext(ctx, c.argv[0], append(c.argv[1:len(c.argv):len(c.argv)], args...)...)
	default:
		return nil, errors.New("trial: empty command")
	}
	cmd.Dir = dir
	killGroupOnCancel(cmd)
	return cmd, nil
}

// Error reports an external command that could not be started or that exited
// unsuccessfully. Unwrap yields the *exec.ExitError when there is one.
type Error struct {
	Command string
	Dir     string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("trial: %q in %s: %v", e.Command, e.Dir, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the exit status of the command, or -1 if it never ran to
// completion.
func (e *Error) ExitCode() int {
	var ee *exec.ExitError
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// Runner invokes commands, sending their output to Stdout and Stderr.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Default passes output through to the terminal.
var Default = &Runner{Stdout: os.Stdout, Stderr: os.Stderr}

// Invoke runs c in dir with extra positional args and waits for it. Any
// non-zero or abnormal exit is an error.
func (r *Runner) Invoke(ctx context.Context, c Command, dir string, args ...string) error {
	cmd, err := c.build(ctx, dir, args)
	if err != nil {
		return err
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return r.run(cmd, c, dir)
}

// Output is Invoke with standard output captured and returned. The captured
// output is returned even when the command fails.
func (r *Runner) Output(ctx context.Context, c Command, dir string, args ...string) ([]byte, error) {
	cmd, err := c.build(ctx, dir, args)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = r.Stderr
	err = r.run(cmd, c, dir)
	return out.Bytes(), err
}

func (r *Runner) run(cmd *exec.Cmd, c Command, dir string) error {
	start := time.Now()
	log.Info().Str("cmd", c.String()).Str("dir", dir).Strs("args", cmd.Args[1:]).Msg("Starting trial")
	if err := cmd.Run(); err != nil {
		log.Error().Err(err).Str("cmd", c.String()).Str("dir", dir).Dur("elapsed", time.Since(start)).Msg("Trial failed")
		return &Error{Command: c.String(), Dir: dir, Err: err}
	}
	log.Info().Str("cmd", c.String()).Str("dir", dir).Dur("elapsed", time.Since(start)).Msg("Trial finished")
	return nil
}
