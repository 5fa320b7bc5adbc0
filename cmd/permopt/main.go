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

// Command permopt is the offline permutation optimizer driver (spec
// §6): "splits groups dataset.txt output.txt [-v]". It loads a
// dataset, runs internal/optimizer.Optimize and writes the resulting
// permutation, printing a console summary in the reference tool's
// "initial score X, genetic optimized Y%, greedy optimized Z%" style.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/launix-de/parasgd/internal/dataset"
	"github.com/launix-de/parasgd/internal/optimizer"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	verbose := false
	var pos []string
	for _, a := range argv {
		if a == "-v" {
			verbose = true
			continue
		}
		pos = append(pos, a)
	}
	if len(pos) != 4 {
		fmt.Fprintln(os.Stderr, "usage: permopt splits groups dataset.txt output.txt [-v]")
		return 1
	}

	splits, err := strconv.Atoi(pos[0])
	if err != nil || splits < 1 {
		fmt.Fprintf(os.Stderr, "bad splits %q: %v\n", pos[0], err)
		return 1
	}
	groups, err := strconv.Atoi(pos[1])
	if err != nil || groups < 1 {
		fmt.Fprintf(os.Stderr, "bad groups %q: %v\n", pos[1], err)
		return 1
	}
	datasetPath, outputPath := pos[2], pos[3]

	points, err := dataset.LoadLibsvm(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load dataset: %v\n", err)
		return 1
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stderr, "load dataset: no points")
		return 1
	}

	featureLists := make([][]uint32, len(points))
	for i, p := range points {
		featureLists[i] = p.Indices
	}

	perm, reports := optimizer.Optimize(featureLists, splits, groups, optimizer.DefaultConfig())

	if err := optimizer.WritePermutation(outputPath, perm); err != nil {
		fmt.Fprintf(os.Stderr, "write permutation: %v\n", err)
		return 3
	}

	printSummary(reports, verbose)
	return 0
}

func printSummary(reports []optimizer.SplitReport, verbose bool) {
	var initial, afterA, afterB int64
	for _, r := range reports {
		initial += r.Initial
		afterA += r.AfterPhaseA
		afterB += r.AfterPhaseB
	}
	agg := optimizer.SplitReport{Initial: initial}
	genetic := agg.ImprovementPercent(afterA)
	greedy := agg.ImprovementPercent(afterB) - genetic
	fmt.Printf("Optimization completed. Initial score was %d, genetic optimized %.1f%%, greedy optimized %.1f%%\n",
		initial, genetic, greedy)

	if !verbose {
		return
	}
	for i, r := range reports {
		splitGenetic := r.ImprovementPercent(r.AfterPhaseA)
		splitGreedy := r.ImprovementPercent(r.AfterPhaseB) - splitGenetic
		fmt.Printf("  split %d: size=%d initial=%d genetic=%.1f%% greedy=%.1f%%\n",
			i, r.Size, r.Initial, splitGenetic, splitGreedy)
	}
}
