package sa

import (
	"fmt"

	"flexShop/internal/opt"
)

type Config struct {
	Budget opt.Budget

	InitialTemp float64
	FinalTemp   float64
	Alpha       float64

	ProbChangeMachine float64
}

func DefaultConfig() Config {
	return Config{
		Budget: opt.Budget{Iterations: 20000},

		InitialTemp: 200.0,
		FinalTemp:   0.05,
		Alpha:       0.9995,

		ProbChangeMachine: 0.3,
	}
}

func (c Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	if c.InitialTemp <= 0 {
		return fmt.Errorf(
			"InitialTemp должно быть > 0 (получено %f)",
			c.InitialTemp,
		)
	}
	if c.FinalTemp <= 0 {
		return fmt.Errorf(
			"FinalTemp должно быть > 0 (получено %f)",
			c.FinalTemp,
		)
	}
	if c.FinalTemp >= c.InitialTemp {
		return fmt.Errorf(
			"FinalTemp должно быть < InitialTemp (получено %f >= %f)",
			c.FinalTemp,
			c.InitialTemp,
		)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf(
			"alpha должно лежать в интервале (0,1) (получено %f)",
			c.Alpha,
		)
	}
	if c.ProbChangeMachine < 0 || c.ProbChangeMachine > 1 {
		return fmt.Errorf(
			"вероятность смены станка должна быть в диапазоне [0,1] (получено %f)",
			c.ProbChangeMachine,
		)
	}
	return nil
}
