// Package stop decides when an otherwise endless pipeline has run enough.
//
// A Policy combines a counter limit with an optional Starlark expression
// evaluated against the pipeline's current state, e.g.
//
//	stop-when = "cycle > 3 and stage == 'linear'"
//	stop-when = "width < 0.01"
package stop

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const exprName = "stop-when"

// Policy is immutable once built.
type Policy struct {
	max  int
	expr string
}

// Never is the policy of a pipeline that runs until it is killed.
var Never = &Policy{}

// Check reports a syntax error in expr without evaluating it.
func Check(expr string) error {
	if expr == "" {
		return nil
	}
	opts := syntax.FileOptions{}
	if _, err := opts.ParseExpr(exprName, expr, 0); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// New builds a policy. max is the largest counter value that may still run;
// zero means no limit. expr may be empty.
func New(max int, expr string) (*Policy, error) {
	if max < 0 {
		return nil, fmt.Errorf("stop: negative limit %d", max)
	}
	if err := Check(expr); err != nil {
		return nil, err
	}
	return &Policy{max: max, expr: expr}, nil
}

// Reached reports whether the pipeline should finish instead of running the
// unit of work numbered counter. vars are exposed to the expression by name.
func (p *Policy) Reached(counter int, vars map[string]any) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.max > 0 && counter > p.max {
		return true, nil
	}
	if p.expr == "" {
		return false, nil
	}
	env := make(starlark.StringDict, len(vars))
	for k, v := range vars {
		sv, err := toStarlark(v)
		if err != nil {
			return false, fmt.Errorf("stop: variable %s: %w", k, err)
		}
		env[k] = sv
	}
	thread := &starlark.Thread{Name: exprName}
	v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, exprName, p.expr, env)
	if err != nil {
		return false, fmt.Errorf("stop: evaluating %q: %w", p.expr, err)
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("stop: %q returned %s, want bool", p.expr, v.Type())
	}
	return bool(b), nil
}

func (p *Policy) String() string {
	switch {
	case p == nil || (p.max == 0 && p.expr == ""):
		return "never"
	case p.expr == "":
		return fmt.Sprintf("after %d", p.max)
	case p.max == 0:
		return p.expr
	default:
		return fmt.Sprintf("after %d or %s", p.max, p.expr)
	}
}

func toStarlark(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case int:
		return starlark.MakeInt(x), nil
	case float64:
		return starlark.Float(x), nil
	case string:
		return starlark.String(x), nil
	case bool:
		return starlark.Bool(x), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
