package bench

import (
	"context"

	"go.uber.org/zap"

	"flexShop/internal/ga"
	"flexShop/internal/jobshop"
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
	"flexShop/internal/sa"
	"flexShop/internal/search"
	"flexShop/internal/ts"
)

// Фабрики

func TSFactory(cfg ts.Config, h jobshop.Heuristic, log *zap.Logger, m *metrics.Metrics) func(seed int64) (opt.Optimizer, error) {
	return func(seed int64) (opt.Optimizer, error) {
		solver, err := ts.New(cfg, randForSeed(seed))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		solver.Metrics = m
		solver.Heuristic = h
		return solver, nil
	}
}

func GAFactory(cfg ga.Config, h jobshop.Heuristic, log *zap.Logger, m *metrics.Metrics) func(seed int64) (opt.Optimizer, error) {
	return func(seed int64) (opt.Optimizer, error) {
		solver, err := ga.New(cfg, randForSeed(seed))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		solver.Metrics = m
		solver.Heuristic = h
		return solver, nil
	}
}

func SAFactory(cfg sa.Config, h jobshop.Heuristic, log *zap.Logger, m *metrics.Metrics) func(seed int64) (opt.Optimizer, error) {
	return func(seed int64) (opt.Optimizer, error) {
		solver, err := sa.New(cfg, randForSeed(seed))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		solver.Metrics = m
		solver.Heuristic = h
		return solver, nil
	}
}

// SearchFactory запускает оркестратор целиком, сид запуска становится базовым.
func SearchFactory(cfg search.Config, log *zap.Logger, m *metrics.Metrics) func(seed int64) (opt.Optimizer, error) {
	return func(seed int64) (opt.Optimizer, error) {
		c := cfg
		c.Seed = seed
		o, err := search.New(c, log, m)
		if err != nil {
			return nil, err
		}
		return searchAdapter{o: o}, nil
	}
}

type searchAdapter struct{ o *search.Orchestrator }

func (a searchAdapter) Solve(ctx context.Context, inst *jobshop.Instance) (opt.Result, error) {
	out, err := a.o.Run(ctx, inst)
	res := opt.Result{
		Solution: out.Best,
		Duration: out.Duration,
		Meta: map[string]any{
			"run_id":      out.RunID.String(),
			"best_worker": out.BestWorker,
		},
	}
	for _, w := range out.Workers {
		res.Evaluations += w.Result.Evaluations
		res.Iterations += w.Result.Iterations
	}
	if out.BestWorker >= 0 {
		res.Trace = out.Workers[out.BestWorker].Result.Trace
	}
	return res, err
}
