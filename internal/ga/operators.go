package ga

import (
	"fmt"
	"math/rand"
	"sort"

	"flexShop/internal/jobshop"
)

// breeder держит буферы кроссовера. mark и stamp отмечают задачи,
// попавшие в перенесённый отрезок, без очистки массива между вызовами.
type breeder struct {
	ev  *jobshop.Evaluator
	rng *rand.Rand

	mark  []int
	stamp int

	jobStamp []int
	jobMin   []int // работа -> минимальный Sequence в отрезке
	jobMax   []int // работа -> максимальный Sequence в отрезке
}

func newBreeder(ev *jobshop.Evaluator, rng *rand.Rand) *breeder {
	inst := ev.Instance()
	return &breeder{
		ev:       ev,
		rng:      rng,
		mark:     make([]int, inst.NumTasks()),
		jobStamp: make([]int, inst.Jobs),
		jobMin:   make([]int, inst.Jobs),
		jobMax:   make([]int, inst.Jobs),
	}
}

// crossover переносит отрезок [x, y) первого родителя без изменений.
// Остальные операции берутся в порядке второго родителя и попадают до
// или после отрезка: до, если в отрезке есть задача той же работы с большим
// Sequence, после, если с меньшим. Если верно и то и другое, потомок
// недопустим. Операции без ограничений сохраняют сторону по своей позиции
// во втором родителе.
func (b *breeder) crossover(p1, p2 *jobshop.Solution, mutationRate float64) (*jobshop.Solution, error) {
	n := p1.Len()
	x := b.rng.Intn(n)
	y := x + 1 + b.rng.Intn(n-x)
	return b.cross(p1, p2, x, y, mutationRate)
}

func (b *breeder) cross(p1, p2 *jobshop.Solution, x, y int, mutationRate float64) (*jobshop.Solution, error) {
	inst := b.ev.Instance()
	n := p1.Len()

	b.stamp++
	for i := x; i < y; i++ {
		op := p1.At(i)
		t, ok := inst.TaskIndex(op.Job, op.Task)
		if !ok {
			return nil, fmt.Errorf("%w: unknown task (%d, %d)", jobshop.ErrIncompleteSolution, op.Job, op.Task)
		}
		b.mark[t] = b.stamp
		j := op.Job
		if b.jobStamp[j] != b.stamp {
			b.jobStamp[j] = b.stamp
			b.jobMin[j], b.jobMax[j] = op.Sequence, op.Sequence
			continue
		}
		b.jobMin[j] = min(b.jobMin[j], op.Sequence)
		b.jobMax[j] = max(b.jobMax[j], op.Sequence)
	}

	before := make(jobshop.Schedule, 0, n)
	after := make(jobshop.Schedule, 0, n)
	for i := 0; i < p2.Len(); i++ {
		op := p2.At(i)
		t, ok := inst.TaskIndex(op.Job, op.Task)
		if !ok {
			return nil, fmt.Errorf("%w: unknown task (%d, %d)", jobshop.ErrIncompleteSolution, op.Job, op.Task)
		}
		if b.mark[t] == b.stamp {
			continue
		}

		larger, smaller := false, false
		if j := op.Job; b.jobStamp[j] == b.stamp {
			larger = b.jobMax[j] > op.Sequence
			smaller = b.jobMin[j] < op.Sequence
		}
		switch {
		case larger && smaller:
			return nil, fmt.Errorf("%w: job %d task %d must precede and follow the transplanted slice",
				jobshop.ErrInfeasibleSolution, op.Job, op.Task)
		case larger:
			before = append(before, op)
		case smaller:
			after = append(after, op)
		case i < x:
			before = append(before, op)
		default:
			after = append(after, op)
		}
	}

	child := before
	for i := x; i < y; i++ {
		child = append(child, p1.At(i))
	}
	child = append(child, after...)

	if mutationRate > 0 && b.rng.Float64() < mutationRate {
		b.mutateMachine(child)
	}
	return jobshop.NewSolution(b.ev, child)
}

// mutateMachine переводит случайную операцию на другой доступный станок.
func (b *breeder) mutateMachine(s jobshop.Schedule) {
	if len(s) == 0 {
		return
	}
	inst := b.ev.Instance()
	k := b.rng.Intn(len(s))
	t, ok := inst.TaskIndex(s[k].Job, s[k].Task)
	if !ok {
		return
	}
	us := inst.Usable(t)
	if len(us) < 2 {
		return
	}
	m := us[b.rng.Intn(len(us)-1)]
	if m == s[k].Machine {
		m = us[len(us)-1]
	}
	s[k].Machine = m
}

// tournamentSelect реализует турнирный отбор: из случайной группы
// размера size возвращаются индексы двух лучших различных особей.
func tournamentSelect(pop []*jobshop.Solution, size int, rng *rand.Rand, buf []int) (int, int) {
	buf = buf[:0]
	for i := 0; i < size; i++ {
		buf = append(buf, rng.Intn(len(pop)))
	}
	sort.Slice(buf, func(i, j int) bool { return jobshop.Less(pop[buf[i]], pop[buf[j]]) })
	p1 := buf[0]
	for _, c := range buf[1:] {
		if c != p1 {
			return p1, c
		}
	}
	return p1, otherIndex(len(pop), p1, rng)
}

// rouletteSelect выбирает пару с вероятностью, пропорциональной 1/makespan.
// cum - префиксные суммы весов.
func rouletteSelect(cum []float64, rng *rand.Rand) (int, int) {
	pick := func() int {
		r := rng.Float64() * cum[len(cum)-1]
		i := sort.SearchFloat64s(cum, r)
		if i >= len(cum) {
			i = len(cum) - 1
		}
		return i
	}
	p1 := pick()
	for try := 0; try < 8; try++ {
		if p2 := pick(); p2 != p1 {
			return p1, p2
		}
	}
	return p1, otherIndex(len(cum), p1, rng)
}

func randomSelect(n int, rng *rand.Rand) (int, int) {
	p1 := rng.Intn(n)
	return p1, otherIndex(n, p1, rng)
}

func otherIndex(n, i int, rng *rand.Rand) int {
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return j
}

// fitnessWeights заполняет cum префиксными суммами 1/makespan.
func fitnessWeights(pop []*jobshop.Solution, cum []float64) []float64 {
	cum = cum[:0]
	sum := 0.0
	for _, s := range pop {
		w := 1.0
		if ms := s.Makespan(); ms > 0 {
			w = 1 / float64(ms)
		}
		sum += w
		cum = append(cum, sum)
	}
	return cum
}
