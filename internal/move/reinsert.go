// Package move строит соседние решения переносом одной операции
// внутри окна, допустимого по очередности работы, с возможной сменой станка.
package move

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"flexShop/internal/jobshop"
)

// ErrNoMove - за отведённое число попыток не найден допустимый сосед.
var ErrNoMove = errors.New("move: no feasible neighbor")

// DefaultAttempts - попыток на одного соседа.
const DefaultAttempts = 20

// Generator держит оценщик и генератор случайных чисел воркера.
// Не безопасен для конкурентного использования.
type Generator struct {
	ev  *jobshop.Evaluator
	rng *rand.Rand

	// Attempts - попыток построить одного соседа до ErrNoMove.
	Attempts int

	// Infeasible - число отброшенных недопустимых кандидатов.
	Infeasible int
}

func NewGenerator(ev *jobshop.Evaluator, rng *rand.Rand) (*Generator, error) {
	if ev == nil {
		return nil, fmt.Errorf("оценщик не инициализирован (nil)")
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &Generator{ev: ev, rng: rng, Attempts: DefaultAttempts}, nil
}

// Reinsert извлекает случайную операцию и вставляет её в другую позицию окна
// [lower, upper], где lower и upper ограничены ближайшими операциями той же
// работы с меньшим и большим Sequence. С вероятностью probChangeMachine
// операция переводится на другой доступный станок. Если окно состоит из
// единственной позиции, смена станка обязательна.
func (g *Generator) Reinsert(seed *jobshop.Solution, probChangeMachine float64) (*jobshop.Solution, error) {
	inst := g.ev.Instance()
	n := seed.Len()

	for attempt := 0; attempt < g.Attempts; attempt++ {
		pos := g.rng.Intn(n)
		op := seed.At(pos)
		t, _ := inst.TaskIndex(op.Job, op.Task)
		usable := inst.Usable(t)

		lower, upper := window(seed, pos)

		// позиции вставки в укороченном расписании, кроме исходной
		slots := upper - lower
		changeMachine := len(usable) > 1 && g.rng.Float64() < probChangeMachine
		if slots == 0 {
			if len(usable) < 2 {
				continue
			}
			changeMachine = true
		}

		at := pos
		if slots > 0 {
			at = lower + g.rng.Intn(slots)
			if at >= pos {
				at++
			}
		}
		if changeMachine {
			op.Machine = otherMachine(usable, op.Machine, g.rng)
		}

		sched := make(jobshop.Schedule, 0, n)
		for i := 0; i < n; i++ {
			if i == pos {
				continue
			}
			if len(sched) == at {
				sched = append(sched, op)
			}
			sched = append(sched, seed.At(i))
		}
		if len(sched) == at {
			sched = append(sched, op)
		}

		sol, err := jobshop.NewSolution(g.ev, sched)
		if errors.Is(err, jobshop.ErrInfeasibleSolution) {
			g.Infeasible++
			continue
		}
		if err != nil {
			return nil, err
		}
		return sol, nil
	}
	return nil, ErrNoMove
}

// window возвращает границы вставки для операции pos в координатах
// расписания без неё.
func window(seed *jobshop.Solution, pos int) (lower, upper int) {
	op := seed.At(pos)
	n := seed.Len()

	lower = 0
	for i := pos - 1; i >= 0; i-- {
		o := seed.At(i)
		if o.Job == op.Job && o.Sequence < op.Sequence {
			lower = i + 1
			break
		}
	}
	upper = n - 1
	for i := pos + 1; i < n; i++ {
		o := seed.At(i)
		if o.Job == op.Job && o.Sequence > op.Sequence {
			upper = i - 1
			break
		}
	}
	return lower, upper
}

func otherMachine(usable []int, current int, rng *rand.Rand) int {
	k := rng.Intn(len(usable) - 1)
	if usable[k] == current {
		return usable[len(usable)-1]
	}
	return usable[k]
}

// Neighborhood собирает до size различных соседей seed. Сбор прекращается
// по достижении size, по истечении maxWait (0 - без ограничения) или
// после size*Attempts неудачных либо повторных кандидатов.
// Соседи возвращаются в порядке получения.
func (g *Generator) Neighborhood(seed *jobshop.Solution, size int, maxWait time.Duration, probChangeMachine float64) ([]*jobshop.Solution, error) {
	if size <= 0 {
		return nil, nil
	}
	var deadline time.Time
	if maxWait > 0 {
		deadline = time.Now().Add(maxWait)
	}

	out := make([]*jobshop.Solution, 0, size)
	seen := make(map[jobshop.Key][]*jobshop.Solution, size)
	misses := 0
	budget := size * g.Attempts

	for len(out) < size && misses < budget {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		cand, err := g.Reinsert(seed, probChangeMachine)
		if errors.Is(err, ErrNoMove) {
			misses++
			continue
		}
		if err != nil {
			return out, err
		}
		if jobshop.Equal(cand, seed) || contains(seen[cand.Key()], cand) {
			misses++
			continue
		}
		seen[cand.Key()] = append(seen[cand.Key()], cand)
		out = append(out, cand)
	}
	return out, nil
}

func contains(bucket []*jobshop.Solution, s *jobshop.Solution) bool {
	for _, b := range bucket {
		if jobshop.Equal(b, s) {
			return true
		}
	}
	return false
}
