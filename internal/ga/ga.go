package ga

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/metrics"
	"flexShop/internal/opt"
)

// errStopped - бюджет исчерпан во время повторов кроссовера.
var errStopped = errors.New("ga: stopped")

// Solver - реализация генетического алгоритма для FJSSP с переналадками.
type Solver struct {
	Cfg Config
	Rng *rand.Rand

	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Heuristic задаёт первую особь начальной популяции, остальные случайные.
	Heuristic jobshop.Heuristic
}

// New возвращает новый GA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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
	// Проверка корректности входных данных и конфигурации
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
	factory, err := jobshop.NewFactory(eval, s.Rng)
	if err != nil {
		return opt.Result{}, err
	}

	log := logging.OrNop(s.Log)
	stop := s.Cfg.Budget.Start()
	popSize := s.Cfg.Population

	// Две популяции: текущая (A) и следующая (B)
	popA := make([]*jobshop.Solution, popSize)
	popB := make([]*jobshop.Solution, popSize)

	// Инициализация начальной популяции
	for i := range popA {
		h := jobshop.HeuristicRandom
		if i == 0 && s.Heuristic != "" {
			h = s.Heuristic
		}
		if popA[i], err = factory.New(h); err != nil {
			return opt.Result{}, fmt.Errorf("initial population: %w", err)
		}
	}

	st := &run{
		solver: s,
		eval:   eval,
		mate:   newBreeder(eval, s.Rng).crossover,
		stop:   stop,
		best:   jobshop.Best(popA...),
	}
	st.record(0, popA)

	log.Debug("genetic algorithm started",
		zap.Int("population", popSize),
		zap.String("selection", string(s.Cfg.Selection)),
		zap.Int("initial_best", st.best.Makespan()),
	)

	// Индексы для сортировки популяции по приспособленности
	idxs := make([]int, popSize)
	tour := make([]int, 0, s.Cfg.TournamentSize)
	var cum []float64

	gen := 0
	for ; !stop.Done(gen); gen++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return st.result(gen, "context"), err
		}

		for i := range idxs {
			idxs[i] = i
		}
		sort.SliceStable(idxs, func(i, j int) bool {
			return jobshop.Less(popA[idxs[i]], popA[idxs[j]])
		})

		write := 0

		// Элитизм (переносим лучших особей без изменений)
		for e := 0; e < s.Cfg.Elite; e++ {
			popB[write] = popA[idxs[e]]
			write++
		}

		if s.Cfg.Selection == SelectionFitness {
			cum = fitnessWeights(popA, cum)
		}

		// Генерация остальных особей нового поколения
		for write < popSize {
			var p1, p2 int
			switch s.Cfg.Selection {
			case SelectionTournament:
				p1, p2 = tournamentSelect(popA, s.Cfg.TournamentSize, s.Rng, tour)
			case SelectionFitness:
				p1, p2 = rouletteSelect(cum, s.Rng)
			default:
				p1, p2 = randomSelect(popSize, s.Rng)
			}

			child, err := st.breed(ctx, gen, popA[p1], popA[p2])
			if err != nil {
				return st.stopped(gen, err)
			}
			popB[write] = child
			write++

			if write < popSize {
				child, err = st.breed(ctx, gen, popA[p2], popA[p1])
				if err != nil {
					return st.stopped(gen, err)
				}
				popB[write] = child
				write++
			}
		}

		// Смена поколений
		popA, popB = popB, popA
		st.record(gen+1, popA)
	}

	res := st.result(gen, "budget")
	log.Debug("genetic algorithm finished",
		zap.Int("generations", gen),
		zap.Int("makespan", res.Makespan()),
		zap.Int("fallbacks", st.fallbacks),
	)
	return res, nil
}

// run - изменяемое состояние одного запуска.
type run struct {
	solver *Solver
	eval   *jobshop.Evaluator
	mate   func(p1, p2 *jobshop.Solution, mutationRate float64) (*jobshop.Solution, error)
	stop   opt.Stopper

	best       *jobshop.Solution
	trace      []opt.TracePoint
	infeasible int
	fallbacks  int
}

// breed повторяет кроссовер до допустимого потомка. После исчерпания
// попыток возвращает первого родителя.
func (r *run) breed(ctx context.Context, gen int, p1, p2 *jobshop.Solution) (*jobshop.Solution, error) {
	cfg := r.solver.Cfg
	for try := 0; try < cfg.MaxCrossoverRetries; try++ {
		if r.stop.Done(gen) {
			return nil, errStopped
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := r.mate(p1, p2, cfg.MutationRate)
		if errors.Is(err, jobshop.ErrInfeasibleSolution) {
			r.infeasible++
			continue
		}
		if err != nil {
			return nil, err
		}
		if jobshop.Less(child, r.best) {
			r.best = child
		}
		return child, nil
	}

	r.fallbacks++
	r.solver.Metrics.CrossoverFallback()
	logging.OrNop(r.solver.Log).Debug("crossover retries exhausted, copying parent",
		zap.Int("generation", gen),
		zap.Int("retries", cfg.MaxCrossoverRetries),
	)
	return p1, nil
}

// stopped завершает запуск, прерванный во время размножения.
func (r *run) stopped(gen int, err error) (opt.Result, error) {
	switch {
	case errors.Is(err, errStopped):
		return r.result(gen, "budget"), nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return r.result(gen, "context"), err
	default:
		return r.result(gen, "error"), err
	}
}

func (r *run) record(gen int, pop []*jobshop.Solution) {
	if !r.solver.Cfg.Benchmark {
		return
	}
	genBest := pop[0]
	sum := 0
	for _, s := range pop {
		sum += s.Makespan()
		if jobshop.Less(s, genBest) {
			genBest = s
		}
	}
	r.trace = append(r.trace, opt.TracePoint{
		Step:    gen,
		Current: genBest.Makespan(),
		Best:    r.best.Makespan(),
		Average: float64(sum) / float64(len(pop)),
	})
}
