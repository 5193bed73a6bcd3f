package ts

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/metrics"
	"flexShop/internal/move"
	"flexShop/internal/opt"
	"flexShop/internal/pq"
)

// minDiversifyNeighborhood - меньшая окрестность не даёт выбрать
// заметно худшего соседа.
const minDiversifyNeighborhood = 10

// Solver - табу-поиск по окрестности переноса операции.
type Solver struct {
	Cfg Config
	Rng *rand.Rand

	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Initial - начальное решение. nil - построить эвристикой Heuristic.
	Initial   *jobshop.Solution
	Heuristic jobshop.Heuristic
}

// New возвращает новый TS-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
// Используется в фабриках.
func New(cfg Config, rng *rand.Rand) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &Solver{Cfg: cfg, Rng: rng, Log: zap.NewNop()}, nil
}

// Solve - основной цикл алгоритма
func (s *Solver) Solve(ctx context.Context, inst *jobshop.Instance) (opt.Result, error) {
	// Валидация входных данных
	if err := inst.Validate(); err != nil {
		return opt.Result{}, err
	}
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, err
	}
	if s.Rng == nil {
		return opt.Result{}, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}

	eval, err := jobshop.NewEvaluator(inst)
	if err != nil {
		return opt.Result{}, err
	}

	initial := s.Initial
	if initial == nil {
		f, err := jobshop.NewFactory(eval, s.Rng)
		if err != nil {
			return opt.Result{}, err
		}
		if initial, err = f.New(s.Heuristic); err != nil {
			return opt.Result{}, fmt.Errorf("initial solution: %w", err)
		}
	} else {
		// решение могло быть оценено на другом экземпляре
		if initial, err = jobshop.NewSolution(eval, initial.Schedule()); err != nil {
			return opt.Result{}, fmt.Errorf("initial solution: %w", err)
		}
	}

	return s.run(ctx, eval, initial)
}

func (s *Solver) run(ctx context.Context, eval *jobshop.Evaluator, initial *jobshop.Solution) (opt.Result, error) {
	log := logging.OrNop(s.Log)
	stop := s.Cfg.Budget.Start()

	gen, err := move.NewGenerator(eval, s.Rng)
	if err != nil {
		return opt.Result{}, err
	}

	seed := initial
	best := initial
	resetSeed := initial
	tabu := newTabuList(s.Cfg.TabuSize)
	elite := newElite(s.Cfg.KeepBest)
	elite.Offer(initial)

	var trace []opt.TracePoint
	stagnation := 0
	diversifications := 0
	stopped := "budget"

	result := func(iter int) opt.Result {
		bestOf := elite.Best()
		s.Metrics.ObserveRun(metrics.RunStats{
			Algo:        "ts",
			Evaluations: eval.Evaluations(),
			Iterations:  iter,
			Infeasible:  map[string]int{"neighbor": gen.Infeasible},
			Best:        bestOf.Makespan(),
		})
		return opt.Result{
			Solution:    bestOf,
			Evaluations: eval.Evaluations(),
			Iterations:  iter,
			Duration:    stop.Elapsed(),
			Trace:       trace,
			Meta: map[string]any{
				"stopped":          stopped,
				"diversifications": diversifications,
				"infeasible":       gen.Infeasible,
				"tabu_size":        tabu.Len(),
			},
		}
	}

	log.Debug("tabu search started",
		zap.Int("initial_makespan", initial.Makespan()),
		zap.Int("neighborhood", s.Cfg.NeighborhoodSize),
		zap.Int("tabu_size", s.Cfg.TabuSize),
	)

	iter := 0
	for ; !stop.Done(iter); iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			stopped = "context"
			return result(iter), err
		}

		nb, err := gen.Neighborhood(seed, s.Cfg.NeighborhoodSize, s.Cfg.NeighborhoodWait, s.Cfg.ProbChangeMachine)
		if err != nil {
			stopped = "error"
			return result(iter), fmt.Errorf("neighborhood at iteration %d: %w", iter, err)
		}
		if len(nb) == 0 {
			stopped = "empty_neighborhood"
			break
		}
		sort.SliceStable(nb, func(i, j int) bool { return jobshop.Less(nb[i], nb[j]) })

		// Первый нетабуированный сосед либо сосед лучше рекорда (аспирация).
		// Если все соседи в табу, берётся лучший из них.
		chosen := nb[0]
		for _, c := range nb {
			if jobshop.Less(c, best) || !tabu.Contains(c) {
				chosen = c
				break
			}
		}

		if !jobshop.Less(chosen, seed) {
			tabu.Push(seed)
		}
		seed = chosen
		elite.Offer(chosen)

		if jobshop.Less(chosen, best) {
			best = chosen
			stagnation = 0
			log.Debug("new best", zap.Int("iteration", iter), zap.Int("makespan", best.Makespan()))
		} else {
			stagnation++
		}

		if stagnation > s.Cfg.ResetThreshold {
			switch {
			case jobshop.Less(seed, resetSeed):
				// текущее решение ещё улучшается, даём ему новый интервал
				resetSeed = seed
				stagnation = 0
			case len(nb) > minDiversifyNeighborhood:
				lo := len(nb) / 5
				seed = nb[lo+s.Rng.Intn(len(nb)-lo)]
				tabu.Push(seed)
				resetSeed = seed
				stagnation = 0
				diversifications++
				s.Metrics.Diversified()
				log.Debug("forced diversification",
					zap.Int("iteration", iter),
					zap.Int("makespan", seed.Makespan()),
				)
			}
		}

		if s.Cfg.Benchmark {
			trace = append(trace, opt.TracePoint{
				Step:         iter,
				Current:      seed.Makespan(),
				Best:         best.Makespan(),
				Neighborhood: len(nb),
				Tabu:         tabu.Len(),
			})
		}
	}

	res := result(iter)
	log.Debug("tabu search finished",
		zap.Int("iterations", iter),
		zap.Int("makespan", res.Makespan()),
		zap.String("stopped", stopped),
	)
	return res, nil
}

// elite хранит до k различных лучших решений в max-куче:
// на вершине худшее из сохранённых.
type elite struct {
	k int
	h *pq.Heap[*jobshop.Solution]
}

func newElite(k int) *elite {
	return &elite{
		k: k,
		h: pq.New(func(a, b *jobshop.Solution) bool { return jobshop.Compare(a, b) > 0 }),
	}
}

func (e *elite) Offer(s *jobshop.Solution) {
	if e.h.Any(func(x *jobshop.Solution) bool { return jobshop.Equal(x, s) }) {
		return
	}
	if e.h.Len() < e.k {
		e.h.Push(s)
		return
	}
	if worst, _ := e.h.Peek(); jobshop.Less(s, worst) {
		e.h.ReplaceTop(s)
	}
}

func (e *elite) Best() *jobshop.Solution {
	return jobshop.Best(e.h.Items()...)
}

func (e *elite) Len() int { return e.h.Len() }
