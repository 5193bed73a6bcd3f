package ga

import (
	"fmt"

	"flexShop/internal/opt"
)

// Selection - стратегия выбора пары родителей.
type Selection string

const (
	// SelectionTournament - из случайной группы берутся два лучших.
	SelectionTournament Selection = "tournament"
	// SelectionFitness - рулетка с весом 1/makespan.
	SelectionFitness Selection = "fitness"
	// SelectionRandom - равновероятный выбор.
	SelectionRandom Selection = "random"
)

type Config struct {
	Population int
	// Budget.Iterations - число поколений.
	Budget         opt.Budget
	Elite          int
	Selection      Selection
	TournamentSize int
	MutationRate   float64

	// MaxCrossoverRetries - попыток кроссовера на одного потомка.
	// После исчерпания потомком становится копия первого родителя.
	MaxCrossoverRetries int

	Benchmark bool
}

func (c Config) Validate() error {
	if c.Population < 2 || c.Population%2 != 0 {
		return fmt.Errorf(
			"размер популяции должен быть чётным и >= 2 (получено %d)",
			c.Population,
		)
	}
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	if c.Elite < 0 || c.Elite >= c.Population {
		return fmt.Errorf(
			"число элитных особей должно быть в диапазоне [0, population) (получено %d)",
			c.Elite,
		)
	}
	switch c.Selection {
	case SelectionTournament:
		if c.TournamentSize < 2 || c.TournamentSize > c.Population {
			return fmt.Errorf(
				"размер турнира должен быть в диапазоне [2, population] (получено %d)",
				c.TournamentSize,
			)
		}
	case SelectionFitness, SelectionRandom:
		// ok
	default:
		return fmt.Errorf(
			"неизвестная стратегия отбора %q",
			c.Selection,
		)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf(
			"вероятность мутации должна быть в диапазоне [0,1] (получено %f)",
			c.MutationRate,
		)
	}
	if c.MaxCrossoverRetries <= 0 {
		return fmt.Errorf(
			"число попыток кроссовера должно быть > 0 (получено %d)",
			c.MaxCrossoverRetries,
		)
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Population:          100,
		Budget:              opt.Budget{Iterations: 200},
		Elite:               4,
		Selection:           SelectionTournament,
		TournamentSize:      5,
		MutationRate:        0.15,
		MaxCrossoverRetries: 50,
	}
}
