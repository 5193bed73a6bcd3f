package jobshop

import (
	"fmt"
	"math/rand"

	"flexShop/internal/pq"
)

// Heuristic - способ построения начального решения.
type Heuristic string

const (
	HeuristicRandom Heuristic = "random"
	HeuristicSPT    Heuristic = "spt"
	HeuristicLPT    Heuristic = "lpt"
)

// ParseHeuristic проверяет имя эвристики.
func ParseHeuristic(s string) (Heuristic, error) {
	switch h := Heuristic(s); h {
	case HeuristicRandom, HeuristicSPT, HeuristicLPT:
		return h, nil
	default:
		return "", fmt.Errorf("неизвестная эвристика %q", s)
	}
}

const (
	DefaultMaxRetries  = 50
	DefaultMaxRestarts = 200
)

// Factory строит допустимые начальные решения.
// Результат детерминирован для фиксированного состояния rng.
type Factory struct {
	ev  *Evaluator
	rng *rand.Rand

	// MaxRetries - число попыток выбрать допустимую тройку
	// (работа, задача, станок) до перезапуска построения.
	MaxRetries int
	// MaxRestarts - число перезапусков до ErrGenerationStuck.
	MaxRestarts int

	st buildState
}

func NewFactory(ev *Evaluator, rng *rand.Rand) (*Factory, error) {
	if ev == nil {
		return nil, fmt.Errorf("оценщик не инициализирован (nil)")
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	inst := ev.Instance()
	return &Factory{
		ev:          ev,
		rng:         rng,
		MaxRetries:  DefaultMaxRetries,
		MaxRestarts: DefaultMaxRestarts,
		st: buildState{
			inst:  inst,
			next:  make([]int, inst.Jobs),
			avail: make([][]int, inst.Jobs),
			last:  make([]int, inst.Machines),
		},
	}, nil
}

// New строит решение выбранной эвристикой.
func (f *Factory) New(h Heuristic) (*Solution, error) {
	switch h {
	case HeuristicRandom, "":
		return f.Random()
	case HeuristicSPT:
		return f.ShortestFirst()
	case HeuristicLPT:
		return f.LongestFirst()
	default:
		return nil, fmt.Errorf("неизвестная эвристика %q", h)
	}
}

// Random - случайная доступная работа, случайная доступная задача,
// случайный доступный станок.
func (f *Factory) Random() (*Solution, error) {
	for restart := 0; restart <= f.MaxRestarts; restart++ {
		if sol := f.tryRandom(); sol != nil {
			return sol, nil
		}
	}
	return nil, fmt.Errorf("%w: random construction failed after %d restarts", ErrGenerationStuck, f.MaxRestarts)
}

// ShortestFirst - задачи выбираются по возрастанию среднего времени обработки.
func (f *Factory) ShortestFirst() (*Solution, error) {
	inst := f.ev.Instance()
	return f.byPriority("spt", func(a, b int) bool {
		pa, pb := inst.MeanProcTime(a), inst.MeanProcTime(b)
		if pa != pb {
			return pa < pb
		}
		return a < b
	})
}

// LongestFirst - задачи выбираются по убыванию среднего времени обработки.
func (f *Factory) LongestFirst() (*Solution, error) {
	inst := f.ev.Instance()
	return f.byPriority("lpt", func(a, b int) bool {
		pa, pb := inst.MeanProcTime(a), inst.MeanProcTime(b)
		if pa != pb {
			return pa > pb
		}
		return a < b
	})
}

func (f *Factory) tryRandom() *Solution {
	st := &f.st
	st.reset()
	n := st.inst.NumTasks()

	for len(st.sched) < n {
		placed := false
		for attempt := 0; attempt < f.MaxRetries; attempt++ {
			j := st.active[f.rng.Intn(len(st.active))]
			t := st.avail[j][f.rng.Intn(len(st.avail[j]))]
			us := st.inst.Usable(t)
			m := us[f.rng.Intn(len(us))]
			if !st.admissible(t, m) {
				continue
			}
			st.place(t, m)
			placed = true
			break
		}
		if !placed {
			return nil
		}
	}
	return f.finish()
}

func (f *Factory) byPriority(name string, less func(a, b int) bool) (*Solution, error) {
	st := &f.st
	n := st.inst.NumTasks()

	for restart := 0; restart <= f.MaxRestarts; restart++ {
		st.reset()
		h := pq.New(less)
		for _, j := range st.active {
			for _, t := range st.avail[j] {
				h.Push(t)
			}
		}

		var deferred []int
		stuck := false
		for len(st.sched) < n && !stuck {
			deferred = deferred[:0]
			placed := false
			for h.Len() > 0 {
				t, _ := h.Pop()
				m, ok := f.pickMachine(t)
				if !ok {
					deferred = append(deferred, t)
					continue
				}
				for _, u := range st.place(t, m) {
					h.Push(u)
				}
				placed = true
				break
			}
			for _, t := range deferred {
				h.Push(t)
			}
			stuck = !placed
		}
		if stuck {
			continue
		}
		if sol := f.finish(); sol != nil {
			return sol, nil
		}
	}
	return nil, fmt.Errorf("%w: %s construction failed after %d restarts", ErrGenerationStuck, name, f.MaxRestarts)
}

// pickMachine перебирает доступные станки в случайном порядке.
func (f *Factory) pickMachine(t int) (int, bool) {
	us := f.st.inst.Usable(t)
	for _, k := range f.rng.Perm(len(us)) {
		if f.st.admissible(t, us[k]) {
			return us[k], true
		}
	}
	return -1, false
}

func (f *Factory) finish() *Solution {
	sol, err := NewSolution(f.ev, f.st.sched.Clone())
	if err != nil {
		return nil
	}
	return sol
}

// buildState - состояние пошагового построения расписания.
type buildState struct {
	inst *Instance

	next   []int   // работа -> позиция в JobTasks следующей закрытой задачи
	avail  [][]int // работа -> открытые задачи
	active []int   // работы с открытыми задачами
	last   []int   // станок -> последняя задача
	sched  Schedule
}

func (st *buildState) reset() {
	st.active = st.active[:0]
	for j := range st.next {
		st.next[j] = 0
		st.avail[j] = st.avail[j][:0]
		st.unlock(j)
		st.active = append(st.active, j)
	}
	for m := range st.last {
		st.last[m] = -1
	}
	st.sched = st.sched[:0]
}

// unlock открывает следующую группу очередности работы j.
func (st *buildState) unlock(j int) []int {
	jt := st.inst.JobTasks(j)
	from := len(st.avail[j])
	if st.next[j] >= len(jt) {
		return nil
	}
	seq := st.inst.Tasks[jt[st.next[j]]].Sequence
	for st.next[j] < len(jt) && st.inst.Tasks[jt[st.next[j]]].Sequence == seq {
		st.avail[j] = append(st.avail[j], jt[st.next[j]])
		st.next[j]++
	}
	return st.avail[j][from:]
}

// admissible: переналадка с последней задачи станка определена и станок
// не получил ранее задачу той же работы с большим Sequence.
func (st *buildState) admissible(t, m int) bool {
	prev := st.last[m]
	if prev < 0 {
		return true
	}
	if st.inst.SetupTime(prev, t) < 0 {
		return false
	}
	pt, ct := st.inst.Tasks[prev], st.inst.Tasks[t]
	return pt.Job != ct.Job || pt.Sequence <= ct.Sequence
}

// place добавляет операцию и возвращает вновь открытые задачи.
func (st *buildState) place(t, m int) []int {
	task := st.inst.Tasks[t]
	j := task.Job
	st.sched = append(st.sched, Operation{Job: j, Task: task.ID, Sequence: task.Sequence, Machine: m})
	st.last[m] = t

	av := st.avail[j]
	for i, u := range av {
		if u == t {
			av[i] = av[len(av)-1]
			st.avail[j] = av[:len(av)-1]
			break
		}
	}
	if len(st.avail[j]) > 0 {
		return nil
	}
	opened := st.unlock(j)
	if len(opened) == 0 {
		for i, a := range st.active {
			if a == j {
				st.active = append(st.active[:i], st.active[i+1:]...)
				break
			}
		}
	}
	return opened
}
