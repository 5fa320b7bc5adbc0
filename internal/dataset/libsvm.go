/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadLibsvm reads the libsvm-style sparse text format: one point per
// line, "label f1:v1 f2:v2 ...". Any label != 1.0 is read as -1.0.
// Feature indices are 1-based on disk and stored 0-based in memory;
// they must be strictly ascending on the line, and values must be
// non-zero. A malformed feature token is logged to stderr and
// skipped, the point still loading with whatever valid features it
// has (a line with an unparseable label is dropped entirely); a
// missing file is fatal. Points are shuffled once, with a
// nanosecond-seeded PRNG, matching the block permutation source's
// seeding policy.
func LoadLibsvm(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	points, err := parseLibsvm(f, os.Stderr)
	if err != nil {
		return nil, err
	}
	shuffle(points)
	return points, nil
}

func parseLibsvm(r io.Reader, warnings io.Writer) ([]Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var points []Point
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := parseLibsvmLine(line, lineno, warnings)
		if err != nil {
			fmt.Fprintf(warnings, "dataset line %d: %v, skipping\n", lineno, err)
			continue
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return points, nil
}

// parseLibsvmLine parses one line. A malformed feature token (bad
// "index:value" shape, non-positive or out-of-order index, zero
// value) only drops that token -- warned to warnings and skipped --
// mirroring original_source/src/dataset.h's load_dataset_from_file,
// whose `while (ss >> index >> c >> x) { if (bad) { warn; continue; }
// ... }` loop skips the offending token and still pushes the point
// built from whatever tokens remain. Only an unparseable label fails
// the whole line.
func parseLibsvmLine(line string, lineno int, warnings io.Writer) (Point, error) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return Point{}, fmt.Errorf("empty line")
	}
	rawLabel, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("bad label %q: %w", fields[0], err)
	}
	label := -1.0
	if rawLabel == 1.0 {
		label = 1.0
	}
	indices := make([]uint32, 0, len(fields)-1)
	values := make([]float64, 0, len(fields)-1)
	lastIdx := int64(-1)
	for _, tok := range fields[1:] {
		key, val, ok := strings.Cut(tok, ":")
		if !ok {
			fmt.Fprintf(warnings, "dataset line %d: malformed feature token %q, skipping\n", lineno, tok)
			continue
		}
		idx1based, err := strconv.ParseInt(key, 10, 64)
		if err != nil || idx1based < 1 {
			fmt.Fprintf(warnings, "dataset line %d: malformed feature index %q, skipping\n", lineno, key)
			continue
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			fmt.Fprintf(warnings, "dataset line %d: malformed feature value %q, skipping\n", lineno, val)
			continue
		}
		if v == 0 {
			fmt.Fprintf(warnings, "dataset line %d: zero-valued feature %d, skipping\n", lineno, idx1based)
			continue
		}
		if idx1based <= lastIdx {
			fmt.Fprintf(warnings, "dataset line %d: feature index %d out of order, skipping\n", lineno, idx1based)
			continue
		}
		lastIdx = idx1based
		indices = append(indices, uint32(idx1based-1))
		values = append(values, v)
	}
	return Point{Label: label, Indices: indices, Values: values}, nil
}
