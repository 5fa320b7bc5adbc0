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

package optimizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// WritePermutation writes perm as one decimal index per line (spec
// §6's permutation file format). A path ending in ".lz4" is
// transparently compressed.
func WritePermutation(path string, perm []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var closer io.Closer
	if strings.HasSuffix(path, ".lz4") {
		zw := lz4.NewWriter(f)
		w = zw
		closer = zw
	}
	bw := bufio.NewWriter(w)
	for _, p := range perm {
		if _, err := fmt.Fprintf(bw, "%d\n", p); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// ReadPermutation reads back a file written by WritePermutation.
func ReadPermutation(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".lz4") {
		r = lz4.NewReader(f)
	}

	var perm []uint32
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("permutation file %s: %w", path, err)
		}
		perm = append(perm, uint32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return perm, nil
}

// Invert returns inverse such that inverse[perm[i]] == i, the form the
// SGD driver passes to ReplicatedDataset's permuted constructor (spec
// §6).
func Invert(perm []uint32) []uint32 {
	inverse := make([]uint32, len(perm))
	for i, p := range perm {
		inverse[p] = uint32(i)
	}
	return inverse
}
