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
	"math/rand"
	"time"
)

// runPhaseA performs the randomized pairwise-swap local search (spec
// §4.7). An "epoch" accumulates consecutive rejected proposals; it
// fails once that count reaches FailTriesThreshold, and Phase A stops
// once MaxFailedEpochs consecutive epochs have failed. With
// FailTriesThreshold == 0 no proposal is ever attempted, matching the
// documented no-op property.
func (s *split) runPhaseA(cfg Config) {
	if s.g < 2 || s.n < 2 {
		return
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	failedEpochs := 0
	for failedEpochs < cfg.MaxFailedEpochs {
		consecutiveRejects := 0
		accepted := false
		for consecutiveRejects < cfg.FailTriesThreshold {
			i, j := s.randomPairAcrossGroups(rnd)
			delta := s.swap(i, j)
			if delta < 0 {
				s.obj += delta
				accepted = true
				break
			}
			s.swap(i, j) // revert: swap is its own inverse
			consecutiveRejects++
		}
		if accepted {
			failedEpochs = 0
		} else {
			failedEpochs++
		}
	}
}

func (s *split) randomPairAcrossGroups(rnd *rand.Rand) (int, int) {
	i := rnd.Intn(s.n)
	j := rnd.Intn(s.n)
	for s.groupOf(i) == s.groupOf(j) {
		j = rnd.Intn(s.n)
	}
	return i, j
}
