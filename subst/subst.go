// Package subst fills in templated input files: marker tokens are replaced
// verbatim with stringified values.
package subst

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pair is one token and its replacement.
type Pair struct {
	Token string
	Value string
}

// With stringifies v the way it should appear in an input file.
func With(token string, v any) Pair {
	return Pair{Token: token, Value: fmt.Sprint(v)}
}

func replacer(pairs []Pair) *strings.Replacer {
	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p.Token, p.Value)
	}
	return strings.NewReplacer(args...)
}

// File rewrites path with every token replaced.
func File(path string, pairs ...Pair) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	out := replacer(pairs).Replace(string(data))
	if out == string(data) {
		return nil
	}
	return os.WriteFile(path, []byte(out), fi.Mode().Perm())
}

// Glob applies File to every file in dir matching pattern and returns the
// files it visited.
func Glob(dir, pattern string, pairs ...Pair) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if err := File(m, pairs...); err != nil {
			return nil, fmt.Errorf("subst: %s: %w", m, err)
		}
	}
	return matches, nil
}

// Cat concatenates srcs into dest, following each with a newline.
func Cat(dest string, srcs ...string) error {
	var b strings.Builder
	for _, src := range srcs {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return os.WriteFile(dest, []byte(b.String()), 0o644)
}
