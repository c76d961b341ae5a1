// Package report renders pipeline progress for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/timewinder-dev/vaspmd/loop"
	"github.com/timewinder-dev/vaspmd/md"
	"github.com/timewinder-dev/vaspmd/search"
)

const rule = "--------------------------------------------------------------------------------"

// Reporter receives progress lines while a pipeline runs.
type Reporter interface {
	Printf(format string, args ...interface{})
}

// SilentReporter does not output any progress
type SilentReporter struct{}

func (r *SilentReporter) Printf(format string, args ...interface{}) {}

// ColorReporter outputs colorized progress to a writer (typically stderr)
type ColorReporter struct {
	Writer io.Writer
}

func (r *ColorReporter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Writer, format, args...)
}

// Commits returns a loop observer that reports each snapshot written.
func Commits(r Reporter, label string) loop.Option {
	return loop.WithObserver(func(c loop.Commit) {
		switch {
		case c.Seq == 0:
			r.Printf("%s %s started (run %s)\n", color.Cyan.Sprint("•"), label, c.RunID)
		case c.Done:
			r.Printf("%s %s finished after %d steps\n", color.Green.Sprint("✔"), label, c.Seq)
		default:
			r.Printf("%s %s step %d committed\n", color.Cyan.Sprint("•"), label, c.Seq)
		}
	})
}

func header(b *strings.Builder, title string) {
	b.WriteString(color.Gray.Sprint(rule))
	b.WriteString("\n")
	b.WriteString(color.Cyan.Sprint(title))
	b.WriteString("\n")
	b.WriteString(color.Gray.Sprint(rule))
	b.WriteString("\n")
}

func field(b *strings.Builder, name string, format string, args ...interface{}) {
	b.WriteString(color.Bold.Sprintf("%-12s", name+":"))
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteString("\n")
}

func status(done bool) string {
	if done {
		return color.Green.Sprint("finished")
	}
	return color.Yellow.Sprint("in progress")
}

// Inner describes the progress of a stage's nested series or sweep, if one
// has been started.
type Inner struct {
	Dir   string
	Index int
	Total int
	Done  bool
}

func inner(b *strings.Builder, label string, in *Inner) {
	if in == nil {
		return
	}
	if in.Done {
		field(b, label, "%s: all %d done", in.Dir, in.Total)
		return
	}
	field(b, label, "%s: %d of %d done", in.Dir, in.Index, in.Total)
}

func leaves(b *strings.Builder, list []string) {
	field(b, "Leaves", "%d", len(list))
	for _, l := range list {
		b.WriteString("  ")
		b.WriteString(l)
		b.WriteString("\n")
	}
}

// MD formats the stored position of an equilibration run.
func MD(v *loop.View[md.State, []string], series *Inner) string {
	var b strings.Builder
	header(&b, "Equilibration")
	field(&b, "Run", "%s", v.RunID)
	field(&b, "Status", "%s after %d steps", status(v.Done), v.Seq)
	if v.Done {
		leaves(&b, v.Result)
		return b.String()
	}
	s := v.State
	field(&b, "Next stage", "%s", md.DirName(s.Cycle, s.Stage))
	field(&b, "Start temp", "%d K", s.StartTemp)
	if s.Prev != "" {
		field(&b, "From", "%s", s.Prev)
	}
	inner(&b, "Blocks", series)
	leaves(&b, s.Leaves)
	return b.String()
}

// Search formats the stored position of a parameter search.
func Search(v *loop.View[search.State, []string], sweep *Inner) string {
	var b strings.Builder
	header(&b, "Parameter search")
	field(&b, "Run", "%s", v.RunID)
	field(&b, "Status", "%s after %d steps", status(v.Done), v.Seq)
	if v.Done {
		leaves(&b, v.Result)
		return b.String()
	}
	s := v.State
	field(&b, "Depth", "%d (%s)", s.Depth, s.Dir)
	field(&b, "Range", "[%s, %s]", search.FormatValue(s.Min), search.FormatValue(s.Max))
	inner(&b, "Samples", sweep)
	leaves(&b, s.Leaves)
	return b.String()
}
