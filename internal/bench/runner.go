package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/opt"
)

type Algorithm struct {
	Name    string
	Factory func(seed int64) (opt.Optimizer, error)
}

type Case struct {
	Name string
	Inst *jobshop.Instance
}

// GeneratedCase строит случайный экземпляр, фиксированный для конфигурации.
func GeneratedCase(g jobshop.Generator, instanceSeed int64) (Case, error) {
	inst, err := jobshop.RandomInstance(g, randForSeed(instanceSeed))
	if err != nil {
		return Case{}, err
	}
	return Case{
		Name: fmt.Sprintf("rand-%dx%d-%d", g.Jobs, g.Machines, instanceSeed),
		Inst: inst,
	}, nil
}

type Record struct {
	Algo     string
	Instance string
	Jobs     int
	Machines int
	Tasks    int
	Runs     int

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64

	MakespanBest int
	MakespanMean float64
	MakespanStd  float64

	EvaluationsMean float64
}

// Run - один запуск алгоритма, сохраняется для выгрузки телеметрии.
type Run struct {
	Seed   int64
	Result opt.Result
}

type Runner struct {
	Runs          int
	BaseSeed      int64
	PerRunTimeout time.Duration // 0 = no timeout

	Log *zap.Logger
}

// RunCase выполняет Runs запусков с сидами BaseSeed+i и сводит статистику.
// Запуск, прерванный таймаутом, учитывается, если вернул решение.
func (r Runner) RunCase(ctx context.Context, c Case, algo Algorithm) (Record, []Run, error) {
	log := logging.OrNop(r.Log).With(zap.String("algo", algo.Name), zap.String("instance", c.Name))
	ev, err := jobshop.NewEvaluator(c.Inst)
	if err != nil {
		return Record{}, nil, err
	}

	makespans := make([]int, 0, r.Runs)
	timesMs := make([]float64, 0, r.Runs)
	evals := make([]float64, 0, r.Runs)
	runs := make([]Run, 0, r.Runs)

	for i := 0; i < r.Runs; i++ {
		runSeed := r.BaseSeed + int64(i)

		op, err := algo.Factory(runSeed)
		if err != nil {
			return Record{}, nil, fmt.Errorf("run %d: %w", i, err)
		}

		runCtx := ctx
		cancel := func() {}
		if r.PerRunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, r.PerRunTimeout)
		}
		start := time.Now()
		res, err := op.Solve(runCtx, c.Inst)
		dur := time.Since(start)
		cancel()

		switch {
		case err == nil:
		case ctx.Err() != nil:
			return Record{}, nil, fmt.Errorf("run %d: cancelled: %w", i, err)
		case errors.Is(err, context.DeadlineExceeded) && res.Solution != nil:
			log.Debug("run hit timeout", zap.Int("run", i))
		default:
			return Record{}, nil, fmt.Errorf("run %d: solve error: %w", i, err)
		}
		if res.Solution == nil {
			return Record{}, nil, fmt.Errorf("run %d: no solution", i)
		}
		got, err := ev.Makespan(res.Solution.Schedule())
		if err != nil {
			return Record{}, nil, fmt.Errorf("run %d: invalid schedule: %w", i, err)
		}
		if got != res.Makespan() {
			return Record{}, nil, fmt.Errorf("run %d: reported makespan %d, evaluated %d", i, res.Makespan(), got)
		}

		makespans = append(makespans, got)
		timesMs = append(timesMs, float64(dur.Microseconds())/1000.0)
		evals = append(evals, float64(res.Evaluations))
		runs = append(runs, Run{Seed: runSeed, Result: res})
	}

	msStats := CalcIntStats(makespans)
	tStats := CalcFloatStats(timesMs)
	eStats := CalcFloatStats(evals)

	rec := Record{
		Algo:     algo.Name,
		Instance: c.Name,
		Jobs:     c.Inst.Jobs,
		Machines: c.Inst.Machines,
		Tasks:    c.Inst.NumTasks(),
		Runs:     r.Runs,

		TimeBestMs: tStats.Best,
		TimeMeanMs: tStats.Mean,
		TimeStdMs:  tStats.Std,

		MakespanBest: msStats.Best,
		MakespanMean: msStats.Mean,
		MakespanStd:  msStats.Std,

		EvaluationsMean: eStats.Mean,
	}
	log.Info("case finished",
		zap.Int("runs", r.Runs),
		zap.Int("makespan_best", rec.MakespanBest),
		zap.Float64("makespan_mean", rec.MakespanMean),
		zap.Float64("time_mean_ms", rec.TimeMeanMs),
	)
	return rec, runs, nil
}

func WriteCSV(path string, records []Record) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"algo", "instance", "jobs", "machines", "tasks", "runs",
		"time_best_ms", "time_mean_ms", "time_std_ms",
		"makespan_best", "makespan_mean", "makespan_std",
		"evaluations_mean",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Algo,
			r.Instance,
			itoa(r.Jobs),
			itoa(r.Machines),
			itoa(r.Tasks),
			itoa(r.Runs),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),

			itoa(r.MakespanBest),
			ftoa(r.MakespanMean),
			ftoa(r.MakespanStd),

			ftoa(r.EvaluationsMean),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteTraceCSV выгружает телеметрию одного запуска по итерациям.
func WriteTraceCSV(path string, trace []opt.TracePoint) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "current", "best", "average", "neighborhood", "tabu"}); err != nil {
		return err
	}
	for _, p := range trace {
		row := []string{
			itoa(p.Step),
			itoa(p.Current),
			itoa(p.Best),
			ftoa(p.Average),
			itoa(p.Neighborhood),
			itoa(p.Tabu),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
