package ts

import (
	"fmt"
	"time"

	"flexShop/internal/opt"
)

type Config struct {
	Budget opt.Budget

	// TabuSize - ёмкость табу-списка.
	TabuSize int

	// NeighborhoodSize - число соседей на итерацию. 0 завершает поиск сразу.
	NeighborhoodSize int
	// NeighborhoodWait ограничивает время сбора окрестности, 0 - без ограничения.
	NeighborhoodWait time.Duration

	ProbChangeMachine float64

	// ResetThreshold - итераций без улучшения рекорда до принудительной диверсификации.
	ResetThreshold int

	// KeepBest - сколько лучших различных решений хранить.
	KeepBest int

	// Benchmark включает запись телеметрии по итерациям.
	Benchmark bool
}

func DefaultConfig() Config {
	return Config{
		Budget: opt.Budget{Iterations: 500},

		TabuSize: 50,

		NeighborhoodSize: 60,
		NeighborhoodWait: 500 * time.Millisecond,

		ProbChangeMachine: 0.3,
		ResetThreshold:    50,
		KeepBest:          5,
	}
}

func (c Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	if c.TabuSize <= 0 {
		return fmt.Errorf(
			"TabuSize должно быть > 0 (получено %d)",
			c.TabuSize,
		)
	}
	if c.NeighborhoodSize < 0 {
		return fmt.Errorf(
			"NeighborhoodSize должно быть >= 0 (получено %d)",
			c.NeighborhoodSize,
		)
	}
	if c.NeighborhoodWait < 0 {
		return fmt.Errorf(
			"NeighborhoodWait должно быть >= 0 (получено %s)",
			c.NeighborhoodWait,
		)
	}
	if c.ProbChangeMachine < 0 || c.ProbChangeMachine > 1 {
		return fmt.Errorf(
			"вероятность смены станка должна быть в диапазоне [0,1] (получено %f)",
			c.ProbChangeMachine,
		)
	}
	if c.ResetThreshold <= 0 {
		return fmt.Errorf(
			"ResetThreshold должно быть > 0 (получено %d)",
			c.ResetThreshold,
		)
	}
	if c.KeepBest <= 0 {
		return fmt.Errorf(
			"KeepBest должно быть > 0 (получено %d)",
			c.KeepBest,
		)
	}
	return nil
}
