// Package loop drives a sequence of state transitions, persisting the state
// after every transition so that an interrupted sequence resumes at the step
// that was in flight.
//
// The step function must treat its argument as the whole of its memory: any
// value that influences later steps has to live in the returned state, not in
// captured variables. Side effects performed by a step may be replayed after a
// crash, so they must be idempotent.
//
// At most one Run may be live against a given snapshot path.
package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/vaspmd/snapshot"
)

// Next is what a step returns: either the next state, or a terminal result.
type Next[S, R any] struct {
	state  S
	result R
	done   bool
}

// Continue asks the loop to persist s and call the step again with it.
func Continue[S, R any](s S) Next[S, R] {
	return Next[S, R]{state: s}
}

// Done finishes the loop with result r. The terminal snapshot keeps r so later
// runs return it without calling the step.
func Done[S, R any](r R) Next[S, R] {
	return Next[S, R]{result: r, done: true}
}

func (n Next[S, R]) IsDone() bool { return n.done }
func (n Next[S, R]) State() S     { return n.state }
func (n Next[S, R]) Result() R    { return n.result }

// Commit describes a snapshot that has just been made durable.
type Commit struct {
	Path  string
	RunID string
	Seq   int
	Done  bool
}

type options struct {
	observers []func(Commit)
}

type Option func(*options)

// WithObserver registers fn to be called after each durable commit, including
// the seed snapshot.
func WithObserver(fn func(Commit)) Option {
	return func(o *options) {
		o.observers = append(o.observers, fn)
	}
}

// Run resumes the loop stored at path, seeding it with initial when no
// snapshot exists yet, and returns the terminal result.
//
// An error from step is returned as is and leaves the snapshot at the last
// committed state, so running again retries the failed step.
func Run[S, R any](ctx context.Context, path string, initial S, step func(context.Context, S) (Next[S, R], error), opts ...Option) (R, error) {
	var zero R
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	exists, err := snapshot.Exists(path)
	if err != nil {
		return zero, err
	}
	if !exists {
		data, err := snapshot.Encode(initial)
		if err != nil {
			return zero, fmt.Errorf("loop: encoding initial state: %w", err)
		}
		env := &snapshot.Envelope{RunID: uuid.NewString(), State: data}
		if err := snapshot.Save(path, env); err != nil {
			return zero, err
		}
		log.Debug().Str("path", path).Str("run", env.RunID).Msg("Seeded snapshot")
		o.notify(Commit{Path: path, RunID: env.RunID})
	}

	for {
		env, err := snapshot.Load(path)
		if err != nil {
			return zero, err
		}
		if env.Done {
			r, err := snapshot.Decode[R](env.Result)
			if err != nil {
				return zero, fmt.Errorf("loop: decoding result in %s: %w", path, err)
			}
			return r, nil
		}
		state, err := snapshot.Decode[S](env.State)
		if err != nil {
			return zero, fmt.Errorf("loop: decoding state in %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		next, err := step(ctx, state)
		if err != nil {
			return zero, err
		}

		out := &snapshot.Envelope{RunID: env.RunID, Seq: env.Seq + 1, Done: next.done}
		if next.done {
			out.Result, err = snapshot.Encode(next.result)
		} else {
			out.State, err = snapshot.Encode(next.state)
		}
		if err != nil {
			return zero, fmt.Errorf("loop: encoding step %d: %w", out.Seq, err)
		}
		if err := snapshot.Save(path, out); err != nil {
			return zero, err
		}
		log.Debug().Str("path", path).Int("seq", out.Seq).Bool("done", out.Done).Msg("Committed snapshot")
		o.notify(Commit{Path: path, RunID: out.RunID, Seq: out.Seq, Done: out.Done})
	}
}

func (o *options) notify(c Commit) {
	for _, fn := range o.observers {
		fn(c)
	}
}

// View is a decoded snapshot, for display.
type View[S, R any] struct {
	RunID  string
	Seq    int
	Done   bool
	State  S
	Result R
}

// Peek decodes the snapshot at path without running anything.
func Peek[S, R any](path string) (*View[S, R], error) {
	env, err := snapshot.Load(path)
	if err != nil {
		return nil, err
	}
	v := &View[S, R]{RunID: env.RunID, Seq: env.Seq, Done: env.Done}
	if env.Done {
		v.Result, err = snapshot.Decode[R](env.Result)
	} else {
		v.State, err = snapshot.Decode[S](env.State)
	}
	if err != nil {
		return nil, fmt.Errorf("loop: decoding %s: %w", path, err)
	}
	return v, nil
}

// IsNotStarted reports whether err from Peek means no snapshot exists yet.
func IsNotStarted(err error) bool {
	return errors.Is(err, snapshot.ErrNotFound)
}
