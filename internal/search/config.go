package search

import (
	"fmt"

	"flexShop/internal/ga"
	"flexShop/internal/jobshop"
	"flexShop/internal/ts"
)

type Config struct {
	// Workers - число воркеров табу-поиска. 0 допустимо при RunGA.
	Workers int
	// Parallelism ограничивает число одновременно работающих воркеров,
	// 0 - без ограничения сверх их числа.
	Parallelism int
	// DistinctSeeds - каждый воркер строит своё начальное решение,
	// иначе все стартуют с общего.
	DistinctSeeds bool
	Heuristic     jobshop.Heuristic
	RunGA         bool

	// Seed - базовое зерно, из которого выводятся зёрна воркеров.
	Seed int64

	TS ts.Config
	GA ga.Config
}

func DefaultConfig() Config {
	return Config{
		Workers:   4,
		Heuristic: jobshop.HeuristicRandom,
		Seed:      1,
		TS:        ts.DefaultConfig(),
		GA:        ga.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("число воркеров должно быть >= 0 (получено %d)", c.Workers)
	}
	if c.Workers == 0 && !c.RunGA {
		return fmt.Errorf("должен быть задан хотя бы один воркер TS или GA")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("параллелизм должен быть >= 0 (получено %d)", c.Parallelism)
	}
	if c.Heuristic != "" {
		if _, err := jobshop.ParseHeuristic(string(c.Heuristic)); err != nil {
			return err
		}
	}
	if c.Workers > 0 {
		if err := c.TS.Validate(); err != nil {
			return fmt.Errorf("tabu search: %w", err)
		}
	}
	if c.RunGA {
		if err := c.GA.Validate(); err != nil {
			return fmt.Errorf("genetic: %w", err)
		}
	}
	return nil
}
