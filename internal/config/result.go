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

package config

import (
	"bufio"
	"fmt"
	"os"
)

// Row is one CSV output line (spec §6's output schema).
type Row struct {
	Algorithm     string
	Threads       int
	ClusterSize   int
	Success       bool
	TimeS         float64
	TrainScore    float64
	ValidateScore float64
	TestScore     float64
	AvgEpochs     float64
	PerEpochS     float64
	StepSize      float64
	StepDecay     float64
	UpdateDelay   int
	TargetScore   float64
	BlockSize     int
	Permuted      bool
}

const csvHeader = "algorithm,threads,cluster_size,success,time_s,train_score,validate_score,test_score,avg_epochs,per_epoch_s,step_size,step_decay,update_delay,target_score,block_size,permuted\n"

// ResultWriter appends CSV rows with a hand-rolled fmt.Fprintf writer,
// matching the teacher's own hand-rolled approach to simple fixed
// formats (storage/csv.go) rather than pulling in encoding/csv for a
// fixed 16-column row.
type ResultWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewResultWriter creates (or truncates) path and writes the header
// row. The caller maps a non-nil error here to exit code 3 (spec §6).
func NewResultWriter(path string) (*ResultWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &ResultWriter{f: f, w: w}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteRow appends one row and flushes immediately, so a crash mid-run
// leaves every completed experiment's result on disk.
func (rw *ResultWriter) WriteRow(r Row) error {
	_, err := fmt.Fprintf(rw.w, "%s,%d,%d,%d,%g,%g,%g,%g,%g,%g,%g,%g,%d,%g,%d,%d\n",
		r.Algorithm, r.Threads, r.ClusterSize, boolToInt(r.Success), r.TimeS,
		r.TrainScore, r.ValidateScore, r.TestScore, r.AvgEpochs, r.PerEpochS,
		r.StepSize, r.StepDecay, r.UpdateDelay, r.TargetScore, r.BlockSize,
		boolToInt(r.Permuted))
	if err != nil {
		return err
	}
	return rw.w.Flush()
}

// Close flushes and closes the underlying file.
func (rw *ResultWriter) Close() error {
	if err := rw.w.Flush(); err != nil {
		rw.f.Close()
		return err
	}
	return rw.f.Close()
}
