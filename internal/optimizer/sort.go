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

import "sort"

// sortInGroups applies spec §4.7's final intra-group affinity sort:
// within each group, points are ordered ascending by how strongly they
// belong there relative to every other group. It does not change which
// group a point belongs to, only its position within the group's
// range, so Obj is unaffected.
func (s *split) sortInGroups() {
	for g := 0; g < s.g; g++ {
		start, end := s.groupRange(g)
		sub := s.perm[start:end]
		scores := make(map[uint32]int64, len(sub))
		for _, pt := range sub {
			scores[pt] = s.affinityScore(g, pt)
		}
		sort.SliceStable(sub, func(a, b int) bool {
			return scores[sub[a]] < scores[sub[b]]
		})
	}
}

// affinityScore computes score_i = Σ_f [(G-1)·count[g][f] - Σ_{g'≠g} count[g'][f]]
// over pt's features, for pt currently assigned to group g.
func (s *split) affinityScore(g int, pt uint32) int64 {
	var total int64
	for _, f := range s.points[pt] {
		row := s.countRow(f)
		var otherSum int32
		for g2 := 0; g2 < s.g; g2++ {
			if g2 != g {
				otherSum += row[g2]
			}
		}
		total += int64(s.g-1)*int64(row[g]) - int64(otherSum)
	}
	return total
}
