package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadDecision is returned when cmd-next does not print exactly two numbers.
var ErrBadDecision = errors.New("search: decision command did not produce two floats")

// Linspace returns n evenly spaced values from lo to hi inclusive. The last
// value is hi exactly; n == 1 yields just lo.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// ParseRange reads the "MINVAL MAXVAL" reply of a decision command. Any
// whitespace separates the two values.
func ParseRange(out []byte) (lo, hi float64, err error) {
	words := strings.Fields(string(out))
	if len(words) != 2 {
		return 0, 0, fmt.Errorf("%w: got %d words", ErrBadDecision, len(words))
	}
	vals := [2]float64{}
	for i, w := range words {
		vals[i], err = strconv.ParseFloat(w, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrBadDecision, err)
		}
	}
	return vals[0], vals[1], nil
}

// FormatValue renders a sample value the way the trial scripts have always
// received it: shortest round-trip digits, always with a decimal point or
// exponent ("0.0", "2.5", "1e-05").
func FormatValue(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// DirName names the directory of one search depth.
func DirName(depth int) string {
	return fmt.Sprintf("set-%03d", depth)
}

func sampleNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%03d", i+1)
	}
	return names
}
