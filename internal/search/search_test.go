package search

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
	"flexShop/internal/ts"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TS.Budget = opt.Budget{Iterations: 40}
	cfg.TS.NeighborhoodSize = 15
	cfg.TS.NeighborhoodWait = 0
	cfg.GA.Population = 20
	cfg.GA.Budget = opt.Budget{Iterations: 10}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())
	cfg.RunGA = true
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Parallelism = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Heuristic = "edd"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TS.TabuSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RunGA = true
	cfg.GA.Population = 3
	assert.Error(t, cfg.Validate())
}

func TestRun_ParallelNotWorseThanIsolated(t *testing.T) {
	inst := jobshoptest.Random(t, 41)
	cfg := testConfig()
	cfg.Workers = 4

	o, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	out, err := o.Run(context.Background(), inst)
	require.NoError(t, err)
	require.NotNil(t, out.Best)
	require.NotNil(t, out.Initial)
	require.Len(t, out.Workers, 4)

	for i := 0; i < 4; i++ {
		s, err := ts.New(cfg.TS, rand.New(rand.NewSource(deriveSeed(cfg.Seed, uint64(i)))))
		require.NoError(t, err)
		s.Initial = out.Initial
		res, err := s.Solve(context.Background(), inst)
		require.NoError(t, err)

		assert.LessOrEqual(t, out.Best.Makespan(), res.Makespan())
		assert.True(t, jobshop.Equal(res.Solution, out.Workers[i].Result.Solution))
	}
	assert.LessOrEqual(t, jobshop.Compare(out.Best, out.Initial), 0)
}

func TestRun_ReevaluatesInitial(t *testing.T) {
	toy := jobshoptest.Toy(t)
	slow := jobshoptest.Scaled(t, toy, 10)
	cfg := testConfig()
	cfg.Workers = 2
	cfg.TS.NeighborhoodSize = 0

	o, err := New(cfg, nil, nil)
	require.NoError(t, err)
	o.Initial = jobshoptest.Initial(t, toy, 1)

	out, err := o.Run(context.Background(), slow)
	require.NoError(t, err)
	require.NotNil(t, out.Initial)
	assert.Equal(t, 10*o.Initial.Makespan(), out.Initial.Makespan())
	assert.Equal(t, out.Initial.Makespan(), out.Best.Makespan())

	_, err = o.Run(context.Background(), jobshoptest.Random(t, 1))
	assert.ErrorIs(t, err, jobshop.ErrIncompleteSolution)
}

func TestRun_WithGA(t *testing.T) {
	inst := jobshoptest.Random(t, 42)
	cfg := testConfig()
	cfg.Workers = 2
	cfg.RunGA = true
	cfg.DistinctSeeds = true
	_, m := metrics.NewRegistry()

	o, err := New(cfg, nil, m)
	require.NoError(t, err)
	out, err := o.Run(context.Background(), inst)
	require.NoError(t, err)

	require.Len(t, out.Workers, 3)
	assert.Equal(t, AlgoGA, out.Workers[2].Algo)
	assert.Nil(t, out.Initial)
	for _, w := range out.Workers {
		assert.NoError(t, w.Err)
		assert.LessOrEqual(t, out.Best.Makespan(), w.Result.Makespan())
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkerRuns.WithLabelValues(AlgoTS, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerRuns.WithLabelValues(AlgoGA, "ok")))
	assert.NotEmpty(t, out.RunID.String())
}

// fakeSolver возвращает заданное решение и отслеживает параллелизм.
type fakeSolver struct {
	sol     *jobshop.Solution
	err     error
	panics  bool
	active  *int32
	maxSeen *int32
}

func (f fakeSolver) Solve(context.Context, *jobshop.Instance) (opt.Result, error) {
	if f.active != nil {
		n := atomic.AddInt32(f.active, 1)
		for {
			m := atomic.LoadInt32(f.maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(f.maxSeen, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(f.active, -1)
	}
	if f.panics {
		panic("boom")
	}
	return opt.Result{Solution: f.sol}, f.err
}

func TestRun_RespectsParallelism(t *testing.T) {
	inst := jobshoptest.Toy(t)
	cfg := testConfig()
	cfg.Workers = 8
	cfg.Parallelism = 2

	o, err := New(cfg, nil, nil)
	require.NoError(t, err)
	var active, maxSeen int32
	sol := jobshoptest.Initial(t, inst, 1)
	o.newSolver = func(*WorkerReport, *rand.Rand, *jobshop.Solution, *zap.Logger) (opt.Optimizer, error) {
		return fakeSolver{sol: sol, active: &active, maxSeen: &maxSeen}, nil
	}

	out, err := o.Run(context.Background(), inst)
	require.NoError(t, err)
	assert.Same(t, sol, out.Best)
	assert.LessOrEqual(t, maxSeen, int32(2))
	assert.Positive(t, maxSeen)
}

func TestRun_WorkerFailures(t *testing.T) {
	inst := jobshoptest.Toy(t)
	good := jobshoptest.Initial(t, inst, 3)
	cfg := testConfig()
	cfg.Workers = 3

	o, err := New(cfg, nil, nil)
	require.NoError(t, err)
	o.newSolver = func(slot *WorkerReport, _ *rand.Rand, _ *jobshop.Solution, _ *zap.Logger) (opt.Optimizer, error) {
		switch slot.Worker {
		case 0:
			return fakeSolver{panics: true}, nil
		case 1:
			return fakeSolver{err: errors.New("disk full")}, nil
		default:
			return fakeSolver{sol: good}, nil
		}
	}

	out, err := o.Run(context.Background(), inst)
	require.NoError(t, err)
	assert.Same(t, good, out.Best)
	assert.Equal(t, 2, out.BestWorker)
	assert.ErrorContains(t, out.Workers[0].Err, "panic")
	assert.ErrorContains(t, out.Workers[1].Err, "disk full")
	assert.NoError(t, out.Workers[2].Err)
}

func TestRun_NoUsableResult(t *testing.T) {
	inst := jobshoptest.Toy(t)
	cfg := testConfig()
	cfg.Workers = 2

	o, err := New(cfg, nil, nil)
	require.NoError(t, err)
	o.newSolver = func(*WorkerReport, *rand.Rand, *jobshop.Solution, *zap.Logger) (opt.Optimizer, error) {
		return nil, errors.New("no solver")
	}

	_, err = o.Run(context.Background(), inst)
	assert.ErrorIs(t, err, ErrNoUsableResult)
	assert.ErrorContains(t, err, "no solver")
}

func TestReduce_DeterministicTieBreak(t *testing.T) {
	inst := jobshoptest.Toy(t)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	a := jobshoptest.Initial(t, inst, 5)
	twin, err := jobshop.NewSolution(ev, a.Schedule())
	require.NoError(t, err)

	ws := []WorkerReport{
		{Worker: 0, Err: errors.New("failed")},
		{Worker: 1, Result: opt.Result{Solution: a}},
		{Worker: 2, Result: opt.Result{Solution: twin}},
		{Worker: 3, Result: opt.Result{Solution: a}, Err: context.DeadlineExceeded},
	}
	best, idx, errs := reduce(ws)
	assert.Same(t, a, best)
	assert.Equal(t, 1, idx)
	assert.Len(t, errs, 1)

	ws[1], ws[2] = ws[2], ws[1]
	best, idx, _ = reduce(ws)
	assert.Same(t, twin, best)
	assert.Equal(t, 1, idx)
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, deriveSeed(7, 1), deriveSeed(7, 1))
	assert.NotEqual(t, deriveSeed(7, 1), deriveSeed(7, 2))
	assert.NotEqual(t, deriveSeed(7, 1), deriveSeed(8, 1))
}
