package cmd

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flexShop/internal/dataset"
	"flexShop/internal/jobshop"
)

var (
	genCfg  = jobshop.DefaultGenerator()
	genSeed int64
	genName string
)

var generateCmd = &cobra.Command{
	Use:   "generate <out.yaml|out.fjs>",
	Short: "Сгенерировать случайный экземпляр",
	Long: `generate строит случайный экземпляр с последовательными задачами в работах.
Формат .fjs не хранит переналадки, поэтому для него задайте --max-setup 0.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := setup(nil)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		inst, err := jobshop.RandomInstance(genCfg, rand.New(rand.NewSource(genSeed)))
		if err != nil {
			return err
		}
		name := genName
		if name == "" {
			name = fmt.Sprintf("rand-%dx%d-%d", genCfg.Jobs, genCfg.Machines, genSeed)
		}
		if err := dataset.Save(args[0], dataset.FromInstance(name, inst)); err != nil {
			return err
		}
		log.Info("instance generated",
			zap.String("path", args[0]),
			zap.Int("tasks", inst.NumTasks()),
			zap.Int64("seed", genSeed),
		)
		fmt.Fprintln(cmd.OutOrStdout(), "Сохранено:", args[0])
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&genCfg.Jobs, "jobs", genCfg.Jobs, "количество работ")
	f.IntVar(&genCfg.Machines, "machines", genCfg.Machines, "количество станков")
	f.IntVar(&genCfg.MinTasks, "min-tasks", genCfg.MinTasks, "минимум задач в работе")
	f.IntVar(&genCfg.MaxTasks, "max-tasks", genCfg.MaxTasks, "максимум задач в работе")
	f.IntVar(&genCfg.Flexibility, "flexibility", genCfg.Flexibility, "максимум доступных станков на задачу")
	f.IntVar(&genCfg.MinTime, "min-time", genCfg.MinTime, "минимальное время обработки")
	f.IntVar(&genCfg.MaxTime, "max-time", genCfg.MaxTime, "максимальное время обработки")
	f.IntVar(&genCfg.MinSetup, "min-setup", genCfg.MinSetup, "минимальная переналадка")
	f.IntVar(&genCfg.MaxSetup, "max-setup", genCfg.MaxSetup, "максимальная переналадка; 0 - без переналадок")
	f.Float64Var(&genCfg.UndefinedSetup, "undefined-setup", genCfg.UndefinedSetup, "доля неопределённых переходов между работами")
	f.Int64Var(&genSeed, "seed", 1, "сид генерации")
	f.StringVar(&genName, "name", "", "имя экземпляра")
}
