package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flexShop/internal/bench"
	"flexShop/internal/config"
	"flexShop/internal/dataset"
	"flexShop/internal/jobshop"
	"flexShop/internal/metrics"
)

var benchFlags struct {
	algos         []string
	runs          int
	seed          int64
	pairs         string
	instanceSeed  int64
	perRunTimeout time.Duration
	out           string
	traceDir      string
}

var benchCmd = &cobra.Command{
	Use:   "bench [instances...]",
	Short: "Сравнить алгоритмы на наборе экземпляров",
	Long: `bench запускает каждый алгоритм несколько раз с разными сидами на каждом
экземпляре и сохраняет статистику в CSV. Экземпляры берутся из аргументов,
из секции bench конфигурации или генерируются по флагу --pairs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		c, log, err := setup(func(c *config.Config) {
			if len(args) > 0 {
				c.Bench.Instances = args
			}
			if f.Changed("algos") {
				c.Bench.Algorithms = benchFlags.algos
			}
			if f.Changed("runs") {
				c.Bench.Runs = benchFlags.runs
			}
			if f.Changed("out") {
				c.Bench.Output = benchFlags.out
			}
			if f.Changed("trace-dir") {
				c.Bench.TraceDir = benchFlags.traceDir
			}
			if f.Changed("seed") {
				c.Seed = benchFlags.seed
			}
		})
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		cases, err := benchCases(c, log)
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			return fmt.Errorf("не задано ни одного экземпляра: передайте файлы или --pairs")
		}

		reg, m := metrics.NewRegistry()
		available := algorithms(c, log, m)
		var selected []bench.Algorithm
		for _, a := range c.Bench.Algorithms {
			al, ok := available[a]
			if !ok {
				return fmt.Errorf("алгоритм %q не поддерживается; доступные: %v", a, keys(available))
			}
			selected = append(selected, al)
		}

		runner := bench.Runner{
			Runs:          c.Bench.Runs,
			BaseSeed:      c.Seed,
			PerRunTimeout: benchFlags.perRunTimeout,
			Log:           log,
		}

		w := cmd.OutOrStdout()
		var records []bench.Record
		for _, bc := range cases {
			for _, a := range selected {
				fmt.Fprintf(w, "Запущен алгоритм %s; экземпляр %s, %d работ, %d станков (запусков=%d)...\n",
					a.Name, bc.Name, bc.Inst.Jobs, bc.Inst.Machines, runner.Runs)

				rec, runs, err := runner.RunCase(cmd.Context(), bc, a)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", bc.Name, a.Name, err)
				}
				records = append(records, rec)

				fmt.Fprintf(w, "  makespan: лучшее=%d среднее=%.2f отклонение=%.2f | время: среднее=%.2fms отклонение=%.2fms\n",
					rec.MakespanBest, rec.MakespanMean, rec.MakespanStd,
					rec.TimeMeanMs, rec.TimeStdMs,
				)

				if c.Bench.TraceDir != "" {
					for _, r := range runs {
						name := fmt.Sprintf("%s_%s_%d.csv", bc.Name, a.Name, r.Seed)
						if err := bench.WriteTraceCSV(filepath.Join(c.Bench.TraceDir, name), r.Result.Trace); err != nil {
							return err
						}
					}
				}
			}
		}

		if err := bench.WriteCSV(c.Bench.Output, records); err != nil {
			return fmt.Errorf("запись CSV: %w", err)
		}
		fmt.Fprintln(w, "Сохранено:", c.Bench.Output)

		if c.MetricsFile != "" {
			return metrics.WriteTextfile(reg, c.MetricsFile)
		}
		return nil
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringSliceVar(&benchFlags.algos, "algos", nil, "алгоритмы: ts, ga, sa, search (через запятую)")
	f.IntVar(&benchFlags.runs, "runs", 0, "количество запусков каждого алгоритма (с разными сидами)")
	f.Int64Var(&benchFlags.seed, "seed", 0, "базовый сид для запусков алгоритмов")
	f.StringVar(&benchFlags.pairs, "pairs", "", "случайные экземпляры: работы x станки (через запятую), например 10x5,20x10")
	f.Int64Var(&benchFlags.instanceSeed, "instance-seed", 777, "базовый сид генерации экземпляров")
	f.DurationVar(&benchFlags.perRunTimeout, "per-run-timeout", 0, "таймаут одного запуска; 0 - без ограничения")
	f.StringVarP(&benchFlags.out, "out", "o", "", "путь к выходному CSV-файлу")
	f.StringVar(&benchFlags.traceDir, "trace-dir", "", "каталог для телеметрии запусков")
}

// algorithms собирает фабрики; телеметрия включается, если задан каталог трасс.
func algorithms(c *config.Config, log *zap.Logger, m *metrics.Metrics) map[string]bench.Algorithm {
	h := jobshop.Heuristic(c.Heuristic)
	trace := c.Bench.TraceDir != ""

	tsCfg := c.TS()
	tsCfg.Benchmark = trace
	gaCfg := c.GAConfig()
	gaCfg.Benchmark = trace
	sc := c.Search()
	sc.TS.Benchmark = trace
	sc.GA.Benchmark = trace

	return map[string]bench.Algorithm{
		"ts":     {Name: "TS", Factory: bench.TSFactory(tsCfg, h, log, m)},
		"ga":     {Name: "GA", Factory: bench.GAFactory(gaCfg, h, log, m)},
		"sa":     {Name: "SA", Factory: bench.SAFactory(c.SA(), h, log, m)},
		"search": {Name: "SEARCH", Factory: bench.SearchFactory(sc, log, m)},
	}
}

func benchCases(c *config.Config, log *zap.Logger) ([]bench.Case, error) {
	var cases []bench.Case
	loader := dataset.NewLoader(log)
	for _, path := range c.Bench.Instances {
		file, inst, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, bench.Case{Name: file.Name, Inst: inst})
	}

	generated, err := parsePairs(benchFlags.pairs, benchFlags.instanceSeed)
	if err != nil {
		return nil, err
	}
	return append(cases, generated...), nil
}

func parsePairs(s string, baseInstanceSeed int64) ([]bench.Case, error) {
	parts := splitCSV(s)
	cases := make([]bench.Case, 0, len(parts))

	for i, p := range parts {
		jm := strings.Split(p, "x")
		if len(jm) != 2 {
			return nil, fmt.Errorf("пара %q невалидной схемы, пример: 20x5", p)
		}
		jobs, err := strconv.Atoi(strings.TrimSpace(jm[0]))
		if err != nil {
			return nil, fmt.Errorf("пара %q: ошибка парсинга количества работ: %w", p, err)
		}
		machines, err := strconv.Atoi(strings.TrimSpace(jm[1]))
		if err != nil {
			return nil, fmt.Errorf("пара %q: ошибка парсинга количества станков: %w", p, err)
		}
		if jobs <= 0 || machines <= 0 {
			return nil, fmt.Errorf("пара %q: количество работ и станков должно быть > 0", p)
		}

		g := jobshop.DefaultGenerator()
		g.Jobs = jobs
		g.Machines = machines
		seed := baseInstanceSeed + int64(i)*10_000 + int64(jobs)*100 + int64(machines)

		c, err := bench.GeneratedCase(g, seed)
		if err != nil {
			return nil, fmt.Errorf("пара %q: %w", p, err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func keys(m map[string]bench.Algorithm) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
