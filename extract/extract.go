// Package extract reads final scalar values out of the logs VASP writes.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrPatternNotFound is returned when no line of a log yields a value.
var ErrPatternNotFound = errors.New("extract: pattern not found")

// OSZICAR layout: "  12 T=   298. E= ..." carries the temperature as the
// third whitespace-separated word.
const (
	TemperatureMarker = "T="
	TemperatureField  = 2
)

// FinalInt scans r for lines containing marker and returns the integer found
// in the field-th whitespace-separated word of the last such line that parses.
// A single trailing '.' is stripped before parsing. Lines that match the
// marker but do not parse are skipped.
func FinalInt(r io.Reader, marker string, field int) (int, error) {
	var (
		value int
		found bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		words := strings.Fields(line)
		if field >= len(words) {
			continue
		}
		word := strings.TrimSuffix(words[field], ".")
		n, err := strconv.Atoi(word)
		if err != nil {
			continue
		}
		value, found = n, true
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: no %q line with an integer in field %d", ErrPatternNotFound, marker, field+1)
	}
	return value, nil
}

// FinalTemperature returns the last temperature recorded in an OSZICAR.
func FinalTemperature(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	t, err := FinalInt(f, TemperatureMarker, TemperatureField)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
