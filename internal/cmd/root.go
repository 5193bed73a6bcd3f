package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flexShop/internal/config"
	"flexShop/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "flexshop",
	Short: "Решатель FJSSP с переналадками: табу-поиск и генетический алгоритм",
	Long: `flexshop строит расписание гибкого цеха с переналадками, зависящими
от последовательности, минимизируя время завершения всех работ.`,
	SilenceUsage: true,
}

// ExecuteContext запускает корневую команду.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "путь к YAML-конфигурации")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логирования: debug | info | warn | error")

	rootCmd.AddCommand(solveCmd, benchCmd, generateCmd)
}

// setup читает конфигурацию, применяет переопределения флагами и создаёт логгер.
func setup(override func(*config.Config)) (*config.Config, *zap.Logger, error) {
	r := config.NewReader(nil)
	c, err := r.Read(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if override != nil {
		override(c)
	}
	if err := r.Validate(c); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return c, log, nil
}
