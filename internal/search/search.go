// Package search запускает независимых воркеров табу-поиска и, по желанию,
// генетический алгоритм, и сводит их результаты к одному лучшему решению.
package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flexShop/internal/ga"
	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
	"flexShop/internal/ts"
)

// ErrNoUsableResult - ни один воркер не вернул решение.
var ErrNoUsableResult = errors.New("search: no worker produced a usable result")

const (
	AlgoTS = "ts"
	AlgoGA = "ga"
)

// WorkerReport - итог одного воркера. Err != nil отличает сбой от
// запуска без улучшений.
type WorkerReport struct {
	Worker int
	Algo   string
	Seed   int64
	Result opt.Result
	Err    error
}

// Usable сообщает, можно ли учитывать решение воркера.
// Прерванный по контексту воркер возвращает лучшее найденное и учитывается.
func (w WorkerReport) Usable() bool {
	if w.Result.Solution == nil {
		return false
	}
	return w.Err == nil || errors.Is(w.Err, context.Canceled) || errors.Is(w.Err, context.DeadlineExceeded)
}

type Outcome struct {
	RunID      uuid.UUID
	Best       *jobshop.Solution
	BestWorker int
	Initial    *jobshop.Solution
	Workers    []WorkerReport
	Duration   time.Duration
}

// Orchestrator владеет этапом сведения результатов.
type Orchestrator struct {
	Cfg     Config
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Initial - общее начальное решение. nil - построить эвристикой Cfg.Heuristic.
	Initial *jobshop.Solution

	newSolver func(slot *WorkerReport, rng *rand.Rand, shared *jobshop.Solution, log *zap.Logger) (opt.Optimizer, error)
}

func New(cfg Config, log *zap.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{Cfg: cfg, Log: logging.OrNop(log), Metrics: m}
	o.newSolver = o.solverFor
	return o, nil
}

// Run запускает воркеров, дожидается всех и выбирает лучшее решение.
// При равенстве побеждает воркер с меньшим индексом, поэтому результат
// не зависит от порядка завершения.
func (o *Orchestrator) Run(ctx context.Context, inst *jobshop.Instance) (Outcome, error) {
	start := time.Now()
	out := Outcome{RunID: uuid.New(), BestWorker: -1}
	log := logging.OrNop(o.Log).With(zap.String("run_id", out.RunID.String()))

	if err := inst.Validate(); err != nil {
		return out, err
	}
	if err := o.Cfg.Validate(); err != nil {
		return out, err
	}

	shared := o.Initial
	switch {
	case shared != nil:
		// решение могло быть оценено на другом экземпляре
		ev, err := jobshop.NewEvaluator(inst)
		if err != nil {
			return out, err
		}
		if shared, err = jobshop.NewSolution(ev, shared.Schedule()); err != nil {
			return out, fmt.Errorf("initial solution: %w", err)
		}
	case !o.Cfg.DistinctSeeds && o.Cfg.Workers > 0:
		var err error
		if shared, err = o.buildInitial(inst); err != nil {
			return out, err
		}
	}
	out.Initial = shared

	n := o.Cfg.Workers
	if o.Cfg.RunGA {
		n++
	}
	out.Workers = make([]WorkerReport, n)

	var g errgroup.Group
	if o.Cfg.Parallelism > 0 {
		g.SetLimit(o.Cfg.Parallelism)
	}

	log.Info("search started",
		zap.Int("workers", o.Cfg.Workers),
		zap.Bool("ga", o.Cfg.RunGA),
		zap.Int("parallelism", o.Cfg.Parallelism),
	)

	for i := 0; i < n; i++ {
		slot := &out.Workers[i]
		slot.Worker = i
		slot.Algo = AlgoTS
		slot.Seed = deriveSeed(o.Cfg.Seed, uint64(i))
		if o.Cfg.RunGA && i == n-1 {
			slot.Algo = AlgoGA
			slot.Seed = deriveSeed(o.Cfg.Seed, streamGA)
		}

		g.Go(func() error {
			o.runWorker(ctx, inst, shared, slot, log)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	out.Best, out.BestWorker, errs = reduce(out.Workers)
	out.Duration = time.Since(start)

	if out.Best == nil {
		errs = append([]error{ErrNoUsableResult}, errs...)
		return out, errors.Join(errs...)
	}

	log.Info("search finished",
		zap.Int("makespan", out.Best.Makespan()),
		zap.Int("best_worker", out.BestWorker),
		zap.Duration("duration", out.Duration),
	)
	return out, ctx.Err()
}

// reduce выбирает лучшее пригодное решение, при равенстве - с меньшим индексом.
func reduce(ws []WorkerReport) (*jobshop.Solution, int, []error) {
	var best *jobshop.Solution
	bestIdx := -1
	var errs []error
	for i := range ws {
		w := &ws[i]
		if !w.Usable() {
			if w.Err != nil {
				errs = append(errs, fmt.Errorf("worker %d (%s): %w", w.Worker, w.Algo, w.Err))
			}
			continue
		}
		if best == nil || jobshop.Less(w.Result.Solution, best) {
			best = w.Result.Solution
			bestIdx = i
		}
	}
	return best, bestIdx, errs
}

func (o *Orchestrator) buildInitial(inst *jobshop.Instance) (*jobshop.Solution, error) {
	ev, err := jobshop.NewEvaluator(inst)
	if err != nil {
		return nil, err
	}
	f, err := jobshop.NewFactory(ev, rand.New(rand.NewSource(deriveSeed(o.Cfg.Seed, streamShared))))
	if err != nil {
		return nil, err
	}
	sol, err := f.New(o.Cfg.Heuristic)
	if err != nil {
		return nil, fmt.Errorf("shared initial solution: %w", err)
	}
	return sol, nil
}

func (o *Orchestrator) runWorker(ctx context.Context, inst *jobshop.Instance, shared *jobshop.Solution, slot *WorkerReport, log *zap.Logger) {
	start := time.Now()
	wlog := log.With(zap.Int("worker", slot.Worker), zap.String("algo", slot.Algo))

	defer func() {
		if r := recover(); r != nil {
			slot.Err = fmt.Errorf("worker panic: %v", r)
		}
		outcome := "ok"
		switch {
		case slot.Err != nil && slot.Usable():
			outcome = "stopped"
		case slot.Err != nil:
			outcome = "error"
			wlog.Error("worker failed", zap.Error(slot.Err))
		}
		o.Metrics.ObserveWorker(slot.Algo, outcome, time.Since(start))
		wlog.Debug("worker finished",
			zap.String("outcome", outcome),
			zap.Int("makespan", slot.Result.Makespan()),
			zap.Int("iterations", slot.Result.Iterations),
		)
	}()

	solver, err := o.newSolver(slot, rand.New(rand.NewSource(slot.Seed)), shared, wlog)
	if err != nil {
		slot.Err = err
		return
	}
	slot.Result, slot.Err = solver.Solve(ctx, inst)
}

func (o *Orchestrator) solverFor(slot *WorkerReport, rng *rand.Rand, shared *jobshop.Solution, log *zap.Logger) (opt.Optimizer, error) {
	if slot.Algo == AlgoGA {
		s, err := ga.New(o.Cfg.GA, rng)
		if err != nil {
			return nil, err
		}
		s.Log = log
		s.Metrics = o.Metrics
		s.Heuristic = o.Cfg.Heuristic
		return s, nil
	}

	s, err := ts.New(o.Cfg.TS, rng)
	if err != nil {
		return nil, err
	}
	s.Log = log
	s.Metrics = o.Metrics
	s.Initial = shared
	s.Heuristic = o.Cfg.Heuristic
	return s, nil
}
