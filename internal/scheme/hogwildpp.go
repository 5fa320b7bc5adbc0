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

import "math"

// HogWildPP is the clustered scheme with bounded-staleness ring sync
// (spec §4.5.2). Workers within a cluster share one replica and race
// on it exactly like HogWild; every delayBase updates, a single
// elected worker mixes its cluster's weights into the next cluster's.
type HogWildPP struct {
	core      *clusterCore
	tolerance float64
}

// NewHogWildPP constructs the clustered ring-sync scheme. Returns a
// ConfigError if phy_threads doesn't divide evenly by clusterSize.
func NewHogWildPP(threads, clusterSize, delayBase int, tolerance float64, f int, template ModelArgs) (*HogWildPP, error) {
	core, err := newClusterCore(threads, clusterSize, delayBase, f, template)
	if err != nil {
		return nil, err
	}
	return &HogWildPP{core: core, tolerance: tolerance}, nil
}

func (h *HogWildPP) ModelVector(workerID int) *ModelVector { return h.core.modelVector(workerID) }
func (h *HogWildPP) ModelArgs(workerID int) *ModelArgs     { return h.core.modelArgs(workerID) }
func (h *HogWildPP) ReplicaCount() int                     { return h.core.numClusters }
func (h *HogWildPP) ReplicaOf(workerID int) int            { return h.core.clusterOf(workerID) }
func (h *HogWildPP) Replica(r int) *ModelVector            { return h.core.replica(r) }
func (h *HogWildPP) ClusterSize() int                      { return h.core.clusterSize }
func (h *HogWildPP) InCluster(workerID int) int            { return workerID % h.core.clusterSize }

func (h *HogWildPP) Clone() Scheme {
	return &HogWildPP{core: h.core.clone(), tolerance: h.tolerance}
}

// PostUpdate implements the ring-sync election and mixing rule from
// spec §4.5.2 exactly: a damped blend when the accumulated delta
// exceeds tolerance, a lighter blend otherwise.
func (h *HogWildPP) PostUpdate(workerID int, step float64) {
	c := h.core
	m, mp, elected := c.tryElect(workerID)
	if !elected {
		return
	}
	beta, lambda := c.beta, c.lambda
	wm, wmOld, wmp := c.w[m], c.wOld[m], c.w[mp]
	for i := range wm {
		delta := (wm[i] - wmOld[i]) * step
		z := wmp[i]
		if math.Abs(delta) > h.tolerance {
			newM := z*lambda + wm[i]*(1-lambda) + (beta+lambda-1)*delta
			wmp[i] += beta * delta
			wm[i] = newM
			wmOld[i] = newM
		} else {
			newM := z*lambda + wm[i]*(1-lambda) + lambda*delta
			wm[i] = newM
			wmOld[i] = newM - delta
		}
	}
	c.advance(workerID)
}
