package sa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/metrics"
	"flexShop/internal/move"
	"flexShop/internal/opt"
)

// Solver - структура реализации алгоритма имитации отжига
type Solver struct {
	Cfg Config
	Rng *rand.Rand

	Log     *zap.Logger
	Metrics *metrics.Metrics

	Initial   *jobshop.Solution
	Heuristic jobshop.Heuristic
}

// New возвращает новый SA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// Solve - реализация эвристики.
func (s *Solver) Solve(ctx context.Context, inst *jobshop.Instance) (opt.Result, error) {
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
	gen, err := move.NewGenerator(eval, s.Rng)
	if err != nil {
		return opt.Result{}, err
	}

	// Инициализация текущего решения
	curr := s.Initial
	if curr == nil {
		f, err := jobshop.NewFactory(eval, s.Rng)
		if err != nil {
			return opt.Result{}, err
		}
		if curr, err = f.New(s.Heuristic); err != nil {
			return opt.Result{}, fmt.Errorf("initial solution: %w", err)
		}
	} else if curr, err = jobshop.NewSolution(eval, curr.Schedule()); err != nil {
		return opt.Result{}, fmt.Errorf("initial solution: %w", err)
	}
	best := curr

	stop := s.Cfg.Budget.Start()
	T := s.Cfg.InitialTemp
	stopped := "budget"

	log := logging.OrNop(s.Log)
	result := func(iter int) opt.Result {
		log.Debug("annealing finished",
			zap.String("stopped", stopped),
			zap.Int("iterations", iter),
			zap.Float64("temperature", T),
			zap.Int("makespan", best.Makespan()),
		)
		s.Metrics.ObserveRun(metrics.RunStats{
			Algo:        "sa",
			Evaluations: eval.Evaluations(),
			Iterations:  iter,
			Infeasible:  map[string]int{"neighbor": gen.Infeasible},
			Best:        best.Makespan(),
		})
		return opt.Result{
			Solution:    best,
			Evaluations: eval.Evaluations(),
			Iterations:  iter,
			Duration:    stop.Elapsed(),
			Meta: map[string]any{
				"initial_temp": s.Cfg.InitialTemp,
				"final_temp":   s.Cfg.FinalTemp,
				"alpha":        s.Cfg.Alpha,
				"T":            T,
				"stopped":      stopped,
			},
		}
	}

	iter := 0
	for ; !stop.Done(iter) && T > s.Cfg.FinalTemp; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			stopped = "context"
			return result(iter), err
		}

		cand, err := gen.Reinsert(curr, s.Cfg.ProbChangeMachine)
		if errors.Is(err, move.ErrNoMove) {
			stopped = "no_move"
			break
		}
		if err != nil {
			return result(iter), err
		}

		delta := cand.Makespan() - curr.Makespan()
		accept := false
		if delta <= 0 {
			// Неухудшающее решение принимаем всегда
			accept = true
		} else {
			// Критерий Метрополиса:
			// допускает принятие ухудшающих решений
			p := math.Exp(-float64(delta) / T)
			if s.Rng.Float64() < p {
				accept = true
			}
		}

		if accept {
			curr = cand
			// Обновление глобально лучшего решения
			if jobshop.Less(curr, best) {
				best = curr
			}
		}

		// Охлаждение температуры
		T *= s.Cfg.Alpha
	}

	return result(iter), nil
}
