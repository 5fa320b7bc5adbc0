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

package sgd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/launix-de/parasgd/internal/barrier"
	"github.com/launix-de/parasgd/internal/dataset"
	"github.com/launix-de/parasgd/internal/perm"
	"github.com/launix-de/parasgd/internal/pool"
	"github.com/launix-de/parasgd/internal/scheme"
	"github.com/launix-de/parasgd/internal/topology"
)

// Config holds one experiment's tunables (spec §6 experiment-command
// line, minus algorithm/threads/cluster_size which select the scheme).
type Config struct {
	MaxEpochs     int
	TargetScore   float64
	Step          float64
	StepDecay     float64
	BlockSizeHint int
	Spin          bool // true selects the spin barrier, false the blocking one
}

// EpochEvent is emitted once per worker per epoch when a Reporter is
// attached (internal/dashboard consumes these to broadcast live
// progress; this is ambient observability, not part of the core
// algorithm).
type EpochEvent struct {
	RunID    string
	WorkerID int
	Epoch    int
	Score    float64
}

// Reporter receives epoch events. Implemented by internal/dashboard.
type Reporter interface {
	EpochDone(EpochEvent)
}

// DivergenceError is the fatal condition raised when a worker's model
// leaves the finite reals (spec §8).
type DivergenceError struct {
	WorkerID, Epoch int
}

func (e DivergenceError) Error() string {
	return fmt.Sprintf("model diverged on worker %d at epoch %d", e.WorkerID, e.Epoch)
}

// Engine runs one experiment: per-epoch block iteration, the SVM
// hinge update, the scheme's post-update hook and barrier-gated
// distributed validation, until target_score is reached or
// max_epochs is exhausted.
type Engine struct {
	pool    *pool.Pool
	topo    *topology.Service
	scheme  scheme.Scheme
	train   *dataset.ReplicatedDataset
	valid   *dataset.ReplicatedDataset
	degrees []uint32
	cfg     Config

	clusterPerm *perm.Source
	metric      MetricSummary
	runID       string
	reporter    Reporter
}

// NewEngine wires the coordination engine for one experiment run.
// degrees is the per-feature point-count computed once from the
// (possibly permuted) training set.
func NewEngine(p *pool.Pool, topo *topology.Service, sch scheme.Scheme, train, valid *dataset.ReplicatedDataset, degrees []uint32, cfg Config) *Engine {
	return &Engine{
		pool:        p,
		topo:        topo,
		scheme:      sch,
		train:       train,
		valid:       valid,
		degrees:     degrees,
		cfg:         cfg,
		clusterPerm: perm.NewSource(sch.ReplicaCount()),
		runID:       uuid.NewString(),
	}
}

// SetReporter attaches an optional live-progress sink.
func (e *Engine) SetReporter(r Reporter) { e.reporter = r }

// RunID returns the UUID tagging this experiment run; the same id is
// carried in every EpochEvent, and so in every dashboard frame.
func (e *Engine) RunID() string { return e.runID }

type epochResult struct {
	epochs  int
	success bool
}

// Result is the driver-facing outcome of one experiment.
type Result struct {
	PerWorkerEpochs []int
	Success         bool
}

// Run dispatches one pool task that every worker executes to
// completion: the per-epoch loop of spec §4.6, synchronized by a
// single reusable barrier waited on twice per epoch (pre- and
// post-validation, per spec §5).
func (e *Engine) Run() Result {
	threads := e.pool.Size()
	b := e.barrier(threads)

	n := e.train.Get(0).Len()
	validN := e.valid.Get(0).Len()
	blockSizeHint := e.cfg.BlockSizeHint
	if blockSizeHint < 1 {
		blockSizeHint = 1
	}
	blocksPerThread := n / (blockSizeHint * threads)
	if blocksPerThread < 1 {
		blocksPerThread = 1
	}
	totalBlocks := blocksPerThread * threads
	blockSize := n / totalBlocks
	if blockSize < 1 {
		blockSize = 1
	}
	blocksPerCluster := blocksPerThread * e.scheme.ClusterSize()

	task := func(workerID int) any {
		local := e.scheme.Clone()
		node := e.topo.NodeOfWorker(workerID)
		trainLD := e.train.Get(node)
		validLD := e.valid.Get(node)
		w := local.ModelVector(workerID)
		args := local.ModelArgs(workerID)
		step := e.cfg.Step
		clusterID := local.ReplicaOf(workerID)
		inClusterID := local.InCluster(workerID)
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(workerID)*2654435761))

		var permNode *perm.Node
		epochsRun := 0
		success := false
		for epoch := 0; epoch < e.cfg.MaxEpochs; epoch++ {
			if permNode == nil {
				permNode = e.clusterPerm.Anchor()
			} else {
				permNode = permNode.GenNext()
			}
			c := permNode.At(clusterID)
			startBlock := c*blocksPerCluster + inClusterID*blocksPerThread

			blocksPerm := rnd.Perm(blocksPerThread)
			for _, blockSlot := range blocksPerm {
				blockIdx := startBlock + blockSlot
				start, end := blockBounds(blockIdx, blockSize, totalBlocks, n)
				for i := start; i < end; i++ {
					p := trainLD.Point(i)
					updatePoint(w.W, p, step, args, e.degrees)
					local.PostUpdate(workerID, step)
				}
			}
			if !w.Finite() {
				panic(DivergenceError{WorkerID: workerID, Epoch: epoch})
			}
			step *= e.cfg.StepDecay

			e.metric.Reset()
			b.Wait()
			vs, ve := validRange(workerID, threads, validN)
			tp, tn, fp, fn := evaluateRange(validLD, w.W, vs, ve)
			e.metric.Add(tp, tn, fp, fn)
			b.Wait()

			score := e.metric.Score()
			epochsRun = epoch + 1
			if e.reporter != nil {
				e.reporter.EpochDone(EpochEvent{RunID: e.runID, WorkerID: workerID, Epoch: epoch, Score: score})
			}
			if score >= e.cfg.TargetScore {
				success = true
				break
			}
		}
		return epochResult{epochs: epochsRun, success: success}
	}

	raw := e.pool.RunOnAll(task)
	res := Result{PerWorkerEpochs: make([]int, len(raw))}
	for i, r := range raw {
		er := r.(epochResult)
		res.PerWorkerEpochs[i] = er.epochs
		if er.success {
			res.Success = true
		}
	}
	return res
}

func (e *Engine) barrier(threads int) barrier.Barrier {
	if e.cfg.Spin {
		return barrier.NewSpin(threads)
	}
	return barrier.NewBlocking(threads)
}

// FinalMetrics computes train/validate/test F1 single-threaded using
// replica 0's weights, as spec §4.6 mandates for the final reported
// scores.
func (e *Engine) FinalMetrics(test *dataset.ReplicatedDataset) (trainScore, validateScore, testScore float64) {
	w := e.scheme.Replica(0).W
	trainScore = scoreDataset(e.train.Get(0), w)
	validateScore = scoreDataset(e.valid.Get(0), w)
	testScore = scoreDataset(test.Get(0), w)
	return
}

func scoreDataset(ld *dataset.LocalDataset, w []float64) float64 {
	var m MetricSummary
	tp, tn, fp, fn := evaluateRange(ld, w, 0, ld.Len())
	m.Add(tp, tn, fp, fn)
	return m.Score()
}
