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

package scheme

// HogWild is the lock-free shared-replica scheme: a single
// ModelVector and ModelArgs, read and written racily by every worker.
// PostUpdate is a no-op -- with static dispatch this inlines away, so
// HogWild pays nothing for the hook HogWild++ needs.
type HogWild struct {
	threads int
	w       *ModelVector
	args    *ModelArgs
}

// NewHogWild allocates a single shared model of width f features for
// a pool of the given thread count.
func NewHogWild(threads, f int, args ModelArgs) *HogWild {
	return &HogWild{threads: threads, w: &ModelVector{W: make([]float64, f)}, args: &args}
}

func (h *HogWild) ModelVector(workerID int) *ModelVector { return h.w }
func (h *HogWild) ModelArgs(workerID int) *ModelArgs     { return h.args }
func (h *HogWild) PostUpdate(workerID int, step float64) {}
func (h *HogWild) ReplicaCount() int                     { return 1 }
func (h *HogWild) ReplicaOf(workerID int) int            { return 0 }
func (h *HogWild) Replica(r int) *ModelVector            { return h.w }
func (h *HogWild) ClusterSize() int                      { return h.threads }
func (h *HogWild) InCluster(workerID int) int            { return workerID }

// Clone returns a shallow copy referring to the same shared model; it
// exists so each worker thread can hold its own Scheme value without
// granting it ownership of the underlying weights.
func (h *HogWild) Clone() Scheme {
	return &HogWild{threads: h.threads, w: h.w, args: h.args}
}
