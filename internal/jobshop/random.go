package jobshop

import (
	"fmt"
	"math/rand"
)

// Generator описывает параметры случайного экземпляра.
type Generator struct {
	Jobs        int `yaml:"jobs"`
	Machines    int `yaml:"machines"`
	MinTasks    int `yaml:"min_tasks"`
	MaxTasks    int `yaml:"max_tasks"`
	Flexibility int `yaml:"flexibility"` // максимум доступных станков на задачу

	MinTime int `yaml:"min_time"`
	MaxTime int `yaml:"max_time"`

	// MaxSetup == 0 отключает переналадки.
	MinSetup int `yaml:"min_setup"`
	MaxSetup int `yaml:"max_setup"`
	// UndefinedSetup - доля неопределённых переходов между задачами разных работ.
	UndefinedSetup float64 `yaml:"undefined_setup"`
}

// DefaultGenerator - небольшой экземпляр с переналадками.
func DefaultGenerator() Generator {
	return Generator{
		Jobs:        10,
		Machines:    5,
		MinTasks:    3,
		MaxTasks:    6,
		Flexibility: 3,
		MinTime:     1,
		MaxTime:     99,
		MinSetup:    1,
		MaxSetup:    20,
	}
}

func (g Generator) Validate() error {
	if g.Jobs <= 0 || g.Machines <= 0 {
		return fmt.Errorf("jobs и machines должны быть > 0 (получено %d, %d)", g.Jobs, g.Machines)
	}
	if g.MinTasks <= 0 || g.MaxTasks < g.MinTasks {
		return fmt.Errorf("некорректные границы числа задач [%d, %d]", g.MinTasks, g.MaxTasks)
	}
	if g.Flexibility <= 0 {
		return fmt.Errorf("flexibility должно быть > 0 (получено %d)", g.Flexibility)
	}
	if g.MinTime < 0 || g.MaxTime < g.MinTime {
		return fmt.Errorf("некорректные границы времени обработки [%d, %d]", g.MinTime, g.MaxTime)
	}
	if g.MinSetup < 0 || g.MaxSetup < 0 || (g.MaxSetup > 0 && g.MaxSetup < g.MinSetup) {
		return fmt.Errorf("некорректные границы переналадки [%d, %d]", g.MinSetup, g.MaxSetup)
	}
	if g.UndefinedSetup < 0 || g.UndefinedSetup >= 1 {
		return fmt.Errorf("undefined_setup должно быть в диапазоне [0,1) (получено %f)", g.UndefinedSetup)
	}
	return nil
}

// RandomInstance строит экземпляр с последовательными задачами в каждой работе.
// Неопределёнными могут быть только переходы между разными работами.
func RandomInstance(g Generator, rng *rand.Rand) (*Instance, error) {
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var tasks []Task
	for j := 0; j < g.Jobs; j++ {
		k := g.MinTasks + rng.Intn(g.MaxTasks-g.MinTasks+1)
		for i := 0; i < k; i++ {
			tasks = append(tasks, Task{Job: j, ID: i, Sequence: i})
		}
	}

	n := len(tasks)
	proc := make([]int, n*g.Machines)
	for i := range proc {
		proc[i] = -1
	}
	flex := min(g.Flexibility, g.Machines)
	for t := 0; t < n; t++ {
		k := 1 + rng.Intn(flex)
		for _, m := range rng.Perm(g.Machines)[:k] {
			proc[t*g.Machines+m] = randIn(rng, g.MinTime, g.MaxTime)
		}
	}

	var setup []int
	if g.MaxSetup > 0 {
		setup = make([]int, n*n)
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				switch {
				case a == b:
					setup[a*n+b] = 0
				case tasks[a].Job != tasks[b].Job && rng.Float64() < g.UndefinedSetup:
					setup[a*n+b] = -1
				default:
					setup[a*n+b] = randIn(rng, g.MinSetup, g.MaxSetup)
				}
			}
		}
	}

	return NewInstance(g.Jobs, g.Machines, tasks, proc, setup)
}

func randIn(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
