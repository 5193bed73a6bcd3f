package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flexShop/internal/config"
	"flexShop/internal/dataset"
	"flexShop/internal/jobshop"
	"flexShop/internal/metrics"
	"flexShop/internal/search"
	"flexShop/internal/store"
)

var solveFlags struct {
	workers       int
	parallelism   int
	seed          int64
	ga            bool
	heuristic     string
	distinctSeeds bool
	timeout       time.Duration
	out           string
	metricsFile   string
	storeDir      string
	warmStart     bool
}

var solveCmd = &cobra.Command{
	Use:   "solve <instance>",
	Short: "Найти расписание для экземпляра (.fjs или .yaml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		c, log, err := setup(func(c *config.Config) {
			if f.Changed("workers") {
				c.Workers = solveFlags.workers
			}
			if f.Changed("parallelism") {
				c.Parallelism = solveFlags.parallelism
			}
			if f.Changed("seed") {
				c.Seed = solveFlags.seed
			}
			if f.Changed("ga") {
				c.GA = solveFlags.ga
			}
			if f.Changed("heuristic") {
				c.Heuristic = solveFlags.heuristic
			}
			if f.Changed("distinct-seeds") {
				c.DistinctSeeds = solveFlags.distinctSeeds
			}
			if f.Changed("metrics-file") {
				c.MetricsFile = solveFlags.metricsFile
			}
			if f.Changed("store-dir") {
				c.Store.Kind = "file"
				c.Store.Dir = solveFlags.storeDir
			}
		})
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		return runSolve(cmd.Context(), cmd.OutOrStdout(), c, log, args[0])
	},
}

func init() {
	f := solveCmd.Flags()
	f.IntVarP(&solveFlags.workers, "workers", "w", 0, "число воркеров табу-поиска")
	f.IntVar(&solveFlags.parallelism, "parallelism", 0, "максимум одновременно работающих воркеров; 0 - без ограничения")
	f.Int64Var(&solveFlags.seed, "seed", 0, "базовый сид")
	f.BoolVar(&solveFlags.ga, "ga", false, "запустить генетический алгоритм дополнительным воркером")
	f.StringVar(&solveFlags.heuristic, "heuristic", "", "начальная эвристика: random | spt | lpt")
	f.BoolVar(&solveFlags.distinctSeeds, "distinct-seeds", false, "каждый воркер строит своё начальное решение")
	f.DurationVar(&solveFlags.timeout, "timeout", 0, "ограничение времени поиска; 0 - без ограничения")
	f.StringVarP(&solveFlags.out, "out", "o", "", "куда записать решение (JSON)")
	f.StringVar(&solveFlags.metricsFile, "metrics-file", "", "выгрузить метрики Prometheus в файл")
	f.StringVar(&solveFlags.storeDir, "store-dir", "", "каталог хранилища лучших решений")
	f.BoolVar(&solveFlags.warmStart, "warm-start", false, "начать с сохранённого лучшего решения")
}

// solutionReport - выгружаемое решение вместе с диаграммой Ганта.
type solutionReport struct {
	Instance string            `json:"instance"`
	RunID    string            `json:"run_id"`
	Solution *jobshop.Solution `json:"solution"`
	Timeline []jobshop.Slot    `json:"timeline"`
}

func runSolve(ctx context.Context, w io.Writer, c *config.Config, log *zap.Logger, path string) error {
	file, inst, err := dataset.NewLoader(log).Load(path)
	if err != nil {
		return err
	}
	ev, err := jobshop.NewEvaluator(inst)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, c, ev, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, m := metrics.NewRegistry()
	o, err := search.New(c.Search(), log, m)
	if err != nil {
		return err
	}

	if solveFlags.warmStart && st != nil {
		prev, rec, err := st.Load(ctx, file.Name)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			log.Warn("stored solution unusable", zap.Error(err))
		default:
			log.Info("warm start", zap.String("from_run", rec.RunID.String()), zap.Int("makespan", prev.Makespan()))
			o.Initial = prev
		}
	}

	if solveFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, solveFlags.timeout)
		defer cancel()
	}

	out, err := o.Run(ctx, inst)
	if out.Best == nil {
		return err
	}
	if err != nil {
		log.Warn("search interrupted, using best found", zap.Error(err))
	}

	printOutcome(w, file.Name, out)

	if st != nil {
		// сохранение не должно зависеть от истёкшего таймаута поиска
		if _, err := st.Save(context.WithoutCancel(ctx), file.Name, out.RunID, out.Best); err != nil {
			return fmt.Errorf("save best: %w", err)
		}
	}
	if solveFlags.out != "" {
		if err := writeReport(solveFlags.out, ev, file.Name, out); err != nil {
			return err
		}
		fmt.Fprintln(w, "Сохранено:", solveFlags.out)
	}
	if c.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.MetricsFile), 0o755); err != nil {
			return err
		}
		if err := metrics.WriteTextfile(reg, c.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, c *config.Config, ev *jobshop.Evaluator, log *zap.Logger) (store.Store, func(), error) {
	switch c.Store.Kind {
	case "file":
		fs, err := store.NewFileStore(c.Store.Dir, ev, log)
		return fs, func() {}, err
	case "mysql":
		db, err := store.OpenMySQL(c.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLStore(db, c.Store.Table, ev, log)
		if err == nil {
			err = s.Migrate(ctx)
		}
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func printOutcome(w io.Writer, name string, out search.Outcome) {
	fmt.Fprintf(w, "Экземпляр %s, запуск %s\n", name, out.RunID)
	if out.Initial != nil {
		fmt.Fprintf(w, "  Начальное решение: %d\n", out.Initial.Makespan())
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  воркер\tалгоритм\tсид\tmakespan\tитераций\tоценок\tошибка")
	for _, r := range out.Workers {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Worker, r.Algo, r.Seed, r.Result.Makespan(), r.Result.Iterations, r.Result.Evaluations, errText)
	}
	tw.Flush()
	fmt.Fprintf(w, "Лучшее решение: makespan=%d (воркер %d), станки %v, время %s\n",
		out.Best.Makespan(), out.BestWorker, out.Best.MachineMakespans(), out.Duration.Round(time.Millisecond))
}

func writeReport(path string, ev *jobshop.Evaluator, name string, out search.Outcome) error {
	timeline, err := ev.Timeline(out.Best.Schedule())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(solutionReport{
		Instance: name,
		RunID:    out.RunID.String(),
		Solution: out.Best,
		Timeline: timeline,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
