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

// Package dataset holds the immutable, NUMA-replicated sparse training
// table. Points are packed into a flat byte buffer per node (mirroring
// the column-storage packing style in the teacher's storage package)
// rather than kept as a slice of structs, so that a "replica" really is
// a single contiguous allocation that can be placed on a NUMA node.
package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Point is a sparse training example (label, ascending feature
// indices, parallel non-zero values), as parsed or as decoded from a
// packed buffer.
type Point struct {
	Label   float64
	Indices []uint32
	Values  []float64
}

// LocalDataset is one NUMA-node-local, immutable copy of the training
// table: a flat packed buffer plus a byte-offset index per point.
type LocalDataset struct {
	n   int
	f   int
	buf []byte
	ptr []int
}

// Len reports the number of points.
func (d *LocalDataset) Len() int { return d.n }

// Features reports F, the feature-space width (1 + max observed index).
func (d *LocalDataset) Features() int { return d.f }

// ByteSize reports the packed buffer's size in bytes, for the driver's
// load-summary line (config.DatasetSummary).
func (d *LocalDataset) ByteSize() int64 { return int64(len(d.buf)) }

// Point decodes the i-th point from the packed buffer into freshly
// allocated slices; mutating them does not affect the buffer.
func (d *LocalDataset) Point(i int) Point {
	off := d.ptr[i]
	size := binary.LittleEndian.Uint32(d.buf[off:])
	off += 4
	label := math.Float64frombits(binary.LittleEndian.Uint64(d.buf[off:]))
	off += 8
	indices := make([]uint32, size)
	for k := range indices {
		indices[k] = binary.LittleEndian.Uint32(d.buf[off:])
		off += 4
	}
	values := make([]float64, size)
	for k := range values {
		values[k] = math.Float64frombits(binary.LittleEndian.Uint64(d.buf[off:]))
		off += 8
	}
	return Point{Label: label, Indices: indices, Values: values}
}

// pack serializes points into the "size:u32 | label:f64 | indices:[u32] |
// values:[f64]" layout described by the in-memory format contract.
func pack(points []Point, f int) *LocalDataset {
	total := 0
	for _, p := range points {
		total += 4 + 8 + 4*len(p.Indices) + 8*len(p.Values)
	}
	buf := make([]byte, total)
	ptr := make([]int, len(points))
	off := 0
	for i, p := range points {
		ptr[i] = off
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Indices)))
		off += 4
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(p.Label))
		off += 8
		for _, idx := range p.Indices {
			binary.LittleEndian.PutUint32(buf[off:], idx)
			off += 4
		}
		for _, v := range p.Values {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}
	return &LocalDataset{n: len(points), f: f, buf: buf, ptr: ptr}
}

// FeatureDegrees counts, for every feature, the number of points in
// which it is non-zero. Used by the SVM update's per-feature L2 scale.
func (d *LocalDataset) FeatureDegrees() []uint32 {
	degrees := make([]uint32, d.f)
	for i := 0; i < d.n; i++ {
		off := d.ptr[i]
		size := binary.LittleEndian.Uint32(d.buf[off:])
		off += 4 + 8
		for k := uint32(0); k < size; k++ {
			idx := binary.LittleEndian.Uint32(d.buf[off:])
			degrees[idx]++
			off += 4
		}
	}
	return degrees
}

func shuffle(points []Point) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })
}

func validate(points []Point) error {
	for i, p := range points {
		if len(p.Indices) != len(p.Values) {
			return fmt.Errorf("point %d: indices/values length mismatch", i)
		}
		for k := 1; k < len(p.Indices); k++ {
			if p.Indices[k] <= p.Indices[k-1] {
				return fmt.Errorf("point %d: feature indices not strictly ascending", i)
			}
		}
		for k, v := range p.Values {
			if v == 0 {
				return fmt.Errorf("point %d feature %d: zero value in sparse storage", i, p.Indices[k])
			}
		}
		if p.Label != 1 && p.Label != -1 {
			return fmt.Errorf("point %d: label must be +1 or -1, got %v", i, p.Label)
		}
	}
	return nil
}

func featureWidth(points []Point) int {
	max := -1
	for _, p := range points {
		if n := len(p.Indices); n > 0 {
			if idx := int(p.Indices[n-1]); idx > max {
				max = idx
			}
		}
	}
	return max + 1
}
