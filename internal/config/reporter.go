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
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
)

// Reporter prints the teacher's dot-per-unit-of-work progress style
// (storage/partition.go, storage/compute.go use fmt.Println progress
// lines during long rebuilds) as one "." per successful experiment and
// "!" per failed one in non-verbose mode, or a one-line summary per
// experiment in verbose mode.
type Reporter struct {
	w       io.Writer
	Verbose bool
	printed int
}

// NewReporter builds a progress reporter writing to w.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, Verbose: verbose}
}

// ExperimentDone reports one completed experiment's outcome.
func (r *Reporter) ExperimentDone(exp Experiment, row Row, elapsed time.Duration) {
	if !r.Verbose {
		mark := "."
		if !row.Success {
			mark = "!"
		}
		fmt.Fprint(r.w, mark)
		r.printed++
		if r.printed%80 == 0 {
			fmt.Fprintln(r.w)
		}
		return
	}
	fmt.Fprintf(r.w, "%s threads=%d cluster=%d success=%v train=%.4f validate=%.4f test=%.4f avg_epochs=%.1f elapsed=%s\n",
		exp.Algorithm, exp.Threads, exp.ClusterSize, row.Success,
		row.TrainScore, row.ValidateScore, row.TestScore, row.AvgEpochs,
		units.HumanDuration(elapsed))
}

// Done prints a trailing newline after the dot stream, so the shell
// prompt doesn't land mid-line.
func (r *Reporter) Done() {
	if !r.Verbose && r.printed%80 != 0 {
		fmt.Fprintln(r.w)
	}
}

// DatasetSummary formats a load-complete line the way the teacher
// always reports a heavyweight load or rebuild (storage/table.go's
// load logging; storage/partition.go's shard-rebuild summary),
// describing byte size with go-units instead of a raw integer.
func DatasetSummary(label string, points, features int, byteSize int64) string {
	return fmt.Sprintf("%s: %d points, %d features, %s", label, points, features, units.BytesSize(float64(byteSize)))
}
