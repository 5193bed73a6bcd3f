package opt

import (
	"context"
	"fmt"
	"time"

	"flexShop/internal/jobshop"
)

type Optimizer interface {
	Solve(ctx context.Context, inst *jobshop.Instance) (Result, error)
}

type Result struct {
	Solution    *jobshop.Solution
	Evaluations int
	Iterations  int
	Duration    time.Duration
	// Trace заполняется только в режиме бенчмарка.
	Trace []TracePoint
	Meta  map[string]any
}

// Makespan лучшего решения, -1 если решения нет.
func (r Result) Makespan() int {
	if r.Solution == nil {
		return -1
	}
	return r.Solution.Makespan()
}

// TracePoint - одна точка телеметрии: итерация TS или поколение GA.
type TracePoint struct {
	Step         int     `json:"step"`
	Current      int     `json:"current"`
	Best         int     `json:"best"`
	Average      float64 `json:"average,omitempty"`
	Neighborhood int     `json:"neighborhood,omitempty"`
	Tabu         int     `json:"tabu,omitempty"`
}

// Budget - условие остановки: число итераций и/или длительность.
// Срабатывает первое из заданных ограничений.
type Budget struct {
	Iterations int           `yaml:"iterations" json:"iterations"`
	Duration   time.Duration `yaml:"duration" json:"duration"`
}

func (b Budget) Validate() error {
	if b.Iterations < 0 {
		return fmt.Errorf("число итераций должно быть >= 0 (получено %d)", b.Iterations)
	}
	if b.Duration < 0 {
		return fmt.Errorf("длительность должна быть >= 0 (получено %s)", b.Duration)
	}
	if b.Iterations == 0 && b.Duration == 0 {
		return fmt.Errorf("должно быть задано число итераций > 0 или длительность > 0")
	}
	return nil
}

// Start фиксирует момент запуска.
func (b Budget) Start() Stopper {
	return Stopper{b: b, start: time.Now()}
}

// Stopper проверяет бюджет на границах итераций.
type Stopper struct {
	b     Budget
	start time.Time
}

// Done сообщает, что итерация iter (с нуля) уже не должна выполняться.
func (s Stopper) Done(iter int) bool {
	if s.b.Iterations > 0 && iter >= s.b.Iterations {
		return true
	}
	return s.b.Duration > 0 && time.Since(s.start) >= s.b.Duration
}

func (s Stopper) Elapsed() time.Duration { return time.Since(s.start) }
