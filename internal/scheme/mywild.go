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

// MyWild is the clustered scheme with plain midpoint-averaging sync
// (spec §4.5.3): identical ring/election plumbing to HogWildPP, but
// no old-snapshot term and no tolerance gate.
type MyWild struct {
	core *clusterCore
}

// NewMyWild constructs the clustered averaging scheme. Returns a
// ConfigError if phy_threads doesn't divide evenly by clusterSize.
func NewMyWild(threads, clusterSize, delayBase int, f int, template ModelArgs) (*MyWild, error) {
	core, err := newClusterCore(threads, clusterSize, delayBase, f, template)
	if err != nil {
		return nil, err
	}
	return &MyWild{core: core}, nil
}

func (m *MyWild) ModelVector(workerID int) *ModelVector { return m.core.modelVector(workerID) }
func (m *MyWild) ModelArgs(workerID int) *ModelArgs     { return m.core.modelArgs(workerID) }
func (m *MyWild) ReplicaCount() int                     { return m.core.numClusters }
func (m *MyWild) ReplicaOf(workerID int) int            { return m.core.clusterOf(workerID) }
func (m *MyWild) Replica(r int) *ModelVector            { return m.core.replica(r) }
func (m *MyWild) ClusterSize() int                      { return m.core.clusterSize }
func (m *MyWild) InCluster(workerID int) int            { return workerID % m.core.clusterSize }

func (m *MyWild) Clone() Scheme {
	return &MyWild{core: m.core.clone()}
}

// PostUpdate mixes the two clusters' weights to their midpoint on
// election, with no tolerance gate and no old-snapshot correction.
func (m *MyWild) PostUpdate(workerID int, step float64) {
	c := m.core
	a, b, elected := c.tryElect(workerID)
	if !elected {
		return
	}
	wa, wb := c.w[a], c.w[b]
	for i := range wa {
		mid := (wa[i] + wb[i]) / 2
		wa[i] = mid
		wb[i] = mid
	}
	c.advance(workerID)
}
