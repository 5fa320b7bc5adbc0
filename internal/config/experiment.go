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

// Package config is the SGD driver's ambient surface: experiment-queue
// parsing, CSV result writing and progress reporting. None of it
// touches the coordination schemes or the SVM update -- it is the
// glue a batch driver needs around the engine.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Experiment is one parsed experiment-command line (spec §6):
// "algorithm repeats threads cluster_size max_epochs update_delay
// target_score step_size step_decay block_size permutation_file".
type Experiment struct {
	Algorithm       string
	Repeats         int
	Threads         int
	ClusterSize     int
	MaxEpochs       int
	UpdateDelay     int
	TargetScore     float64
	StepSize        float64
	StepDecay       float64
	BlockSize       int
	PermutationFile string
}

// Permuted reports whether this experiment requests the optimizer's
// block permutation ("none" disables reordering, spec §6).
func (e Experiment) Permuted() bool { return e.PermutationFile != "none" }

var validAlgorithms = map[string]bool{"HogWild": true, "HogWild++": true, "MyWild": true}

// ParseExperimentLine tokenizes one experiment-command line. Hand-rolled
// with strings.Fields/strconv, in the teacher's own style for simple
// fixed-arity formats (storage/csv.go), since the grammar is
// positional and doesn't justify a parser generator.
func ParseExperimentLine(line string) (Experiment, error) {
	fields := strings.Fields(line)
	if len(fields) != 11 {
		return Experiment{}, fmt.Errorf("experiment line: expected 11 fields, got %d: %q", len(fields), line)
	}
	algorithm := fields[0]
	if !validAlgorithms[algorithm] {
		return Experiment{}, fmt.Errorf("experiment line: unknown algorithm %q (want HogWild, HogWild++ or MyWild)", algorithm)
	}
	repeats, err := parseIntField("repeats", fields[1])
	if err != nil {
		return Experiment{}, err
	}
	threads, err := parseIntField("threads", fields[2])
	if err != nil {
		return Experiment{}, err
	}
	clusterSize, err := parseIntField("cluster_size", fields[3])
	if err != nil {
		return Experiment{}, err
	}
	maxEpochs, err := parseIntField("max_epochs", fields[4])
	if err != nil {
		return Experiment{}, err
	}
	updateDelay, err := parseIntField("update_delay", fields[5])
	if err != nil {
		return Experiment{}, err
	}
	targetScore, err := parseFloatField("target_score", fields[6])
	if err != nil {
		return Experiment{}, err
	}
	stepSize, err := parseFloatField("step_size", fields[7])
	if err != nil {
		return Experiment{}, err
	}
	stepDecay, err := parseFloatField("step_decay", fields[8])
	if err != nil {
		return Experiment{}, err
	}
	blockSize, err := parseIntField("block_size", fields[9])
	if err != nil {
		return Experiment{}, err
	}
	return Experiment{
		Algorithm:       algorithm,
		Repeats:         repeats,
		Threads:         threads,
		ClusterSize:     clusterSize,
		MaxEpochs:       maxEpochs,
		UpdateDelay:     updateDelay,
		TargetScore:     targetScore,
		StepSize:        stepSize,
		StepDecay:       stepDecay,
		BlockSize:       blockSize,
		PermutationFile: fields[10],
	}, nil
}

func parseIntField(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("experiment line: %s: %w", name, err)
	}
	return n, nil
}

func parseFloatField(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("experiment line: %s: %w", name, err)
	}
	return f, nil
}
