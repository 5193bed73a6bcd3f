package ga

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"odd population", func(c *Config) { c.Population = 11 }},
		{"tiny population", func(c *Config) { c.Population = 0 }},
		{"no budget", func(c *Config) { c.Budget = opt.Budget{} }},
		{"elite too large", func(c *Config) { c.Elite = c.Population }},
		{"negative elite", func(c *Config) { c.Elite = -1 }},
		{"tournament too small", func(c *Config) { c.TournamentSize = 1 }},
		{"unknown selection", func(c *Config) { c.Selection = "rank" }},
		{"mutation rate", func(c *Config) { c.MutationRate = -0.1 }},
		{"crossover retries", func(c *Config) { c.MaxCrossoverRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestSolve_NeverRegresses(t *testing.T) {
	inst := jobshoptest.Random(t, 17)

	cfg := DefaultConfig()
	cfg.Population = 100
	cfg.Budget = opt.Budget{Iterations: 50}
	cfg.Benchmark = true

	s, err := New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)

	require.Len(t, res.Trace, 51)
	initialBest := res.Trace[0].Current
	assert.LessOrEqual(t, res.Makespan(), initialBest)
	for i := 1; i < len(res.Trace); i++ {
		assert.LessOrEqual(t, res.Trace[i].Best, res.Trace[i-1].Best)
		assert.LessOrEqual(t, float64(res.Trace[i].Current), res.Trace[i].Average)
	}
	assert.Equal(t, 50, res.Iterations)
}

func TestSolve_AllSelections(t *testing.T) {
	inst := jobshoptest.Random(t, 18)
	for _, sel := range []Selection{SelectionTournament, SelectionFitness, SelectionRandom} {
		t.Run(string(sel), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Population = 20
			cfg.Selection = sel
			cfg.Budget = opt.Budget{Iterations: 10}

			s, err := New(cfg, rand.New(rand.NewSource(2)))
			require.NoError(t, err)
			s.Heuristic = jobshop.HeuristicSPT
			res, err := s.Solve(context.Background(), inst)
			require.NoError(t, err)
			require.NotNil(t, res.Solution)
			assert.Equal(t, string(sel), res.Meta["selection"])
		})
	}
}

func TestSolve_Reproducible(t *testing.T) {
	inst := jobshoptest.Random(t, 19)
	cfg := DefaultConfig()
	cfg.Population = 16
	cfg.Budget = opt.Budget{Iterations: 15}

	run := func() *jobshop.Solution {
		s, err := New(cfg, rand.New(rand.NewSource(8)))
		require.NoError(t, err)
		res, err := s.Solve(context.Background(), inst)
		require.NoError(t, err)
		return res.Solution
	}
	assert.True(t, jobshop.Equal(run(), run()))
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	cfg.Population = 10
	s, err := New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	res, err := s.Solve(ctx, jobshoptest.Toy(t))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res.Solution)
	assert.Equal(t, "context", res.Meta["stopped"])
}

func testRun(t *testing.T, budget opt.Budget, m *metrics.Metrics) (*run, *jobshop.Solution, *jobshop.Solution) {
	t.Helper()
	inst := jobshoptest.Toy(t)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxCrossoverRetries = 3
	s, err := New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	s.Metrics = m

	p1 := jobshoptest.Initial(t, inst, 1)
	p2 := jobshoptest.Initial(t, inst, 2)
	r := &run{
		solver: s,
		eval:   ev,
		mate: func(_, _ *jobshop.Solution, _ float64) (*jobshop.Solution, error) {
			return nil, jobshop.ErrInfeasibleSolution
		},
		stop: budget.Start(),
		best: jobshop.Best(p1, p2),
	}
	return r, p1, p2
}

func TestBreed_FallsBackToParent(t *testing.T) {
	_, m := metrics.NewRegistry()
	r, p1, p2 := testRun(t, opt.Budget{Iterations: 10}, m)

	child, err := r.breed(context.Background(), 0, p1, p2)
	require.NoError(t, err)
	assert.Same(t, p1, child)
	assert.Equal(t, 3, r.infeasible)
	assert.Equal(t, 1, r.fallbacks)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CrossoverFallbacks))
}

func TestBreed_StopsMidRetry(t *testing.T) {
	r, p1, p2 := testRun(t, opt.Budget{Duration: time.Nanosecond}, nil)
	time.Sleep(time.Millisecond)

	_, err := r.breed(context.Background(), 0, p1, p2)
	require.ErrorIs(t, err, errStopped)

	res, err := r.stopped(0, err)
	require.NoError(t, err)
	assert.Same(t, r.best, res.Solution)
	assert.Equal(t, "budget", res.Meta["stopped"])
}
