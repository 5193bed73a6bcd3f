package jobshop

import "fmt"

// Slot - рассчитанное положение операции на станке.
type Slot struct {
	Operation
	Start int `json:"start"`
	Setup int `json:"setup"`
	End   int `json:"end"`
}

// Evaluator рассчитывает времена завершения станков для расписания.
// Держит переиспользуемые буферы, поэтому не безопасен для конкурентного
// использования: один оценщик на воркер.
type Evaluator struct {
	inst *Instance

	busy     []int // станок -> занят до
	lastTask []int // станок -> последняя задача, -1 если пусто

	jobSeq   []int // работа -> Sequence последней обработанной задачи
	jobReady []int // работа -> завершение всех задач с меньшим Sequence
	jobDone  []int // работа -> максимум завершений обработанных задач

	seen  []uint32
	stamp uint32

	evals int
}

func NewEvaluator(inst *Instance) (*Evaluator, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		inst:     inst,
		busy:     make([]int, inst.Machines),
		lastTask: make([]int, inst.Machines),
		jobSeq:   make([]int, inst.Jobs),
		jobReady: make([]int, inst.Jobs),
		jobDone:  make([]int, inst.Jobs),
		seen:     make([]uint32, inst.NumTasks()),
	}, nil
}

// Instance возвращает экземпляр, для которого создан оценщик.
func (e *Evaluator) Instance() *Instance { return e.inst }

// Evaluations - число вызовов Evaluate с момента создания.
func (e *Evaluator) Evaluations() int { return e.evals }

// Evaluate записывает в out время завершения каждого станка и возвращает его.
// Если cap(out) < Machines, выделяется новый срез.
func (e *Evaluator) Evaluate(s Schedule, out []int) ([]int, error) {
	return e.run(s, out, nil)
}

// Makespan - максимум по станкам.
func (e *Evaluator) Makespan(s Schedule) (int, error) {
	out, err := e.run(s, nil, nil)
	if err != nil {
		return 0, err
	}
	return maxOf(out), nil
}

// Timeline рассчитывает начало, переналадку и завершение каждой операции
// в порядке расписания. Используется для выгрузки диаграммы Ганта.
func (e *Evaluator) Timeline(s Schedule) ([]Slot, error) {
	slots := make([]Slot, len(s))
	if _, err := e.run(s, nil, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (e *Evaluator) run(s Schedule, out []int, slots []Slot) ([]int, error) {
	inst := e.inst
	e.evals++

	if len(s) != inst.NumTasks() {
		return nil, fmt.Errorf("%w: %d operations for %d tasks", ErrIncompleteSolution, len(s), inst.NumTasks())
	}

	e.stamp++
	if e.stamp == 0 {
		for i := range e.seen {
			e.seen[i] = 0
		}
		e.stamp = 1
	}
	for m := range e.busy {
		e.busy[m] = 0
		e.lastTask[m] = -1
	}
	for j := range e.jobSeq {
		e.jobSeq[j] = -1
		e.jobReady[j] = 0
		e.jobDone[j] = 0
	}

	for i, op := range s {
		t, ok := inst.TaskIndex(op.Job, op.Task)
		if !ok {
			return nil, fmt.Errorf("%w: operation %d refers to unknown task (%d, %d)", ErrIncompleteSolution, i, op.Job, op.Task)
		}
		if e.seen[t] == e.stamp {
			return nil, fmt.Errorf("%w: task (%d, %d) scheduled twice", ErrIncompleteSolution, op.Job, op.Task)
		}
		e.seen[t] = e.stamp
		if inst.Tasks[t].Sequence != op.Sequence {
			return nil, fmt.Errorf("%w: operation %d has sequence %d, task has %d", ErrIncompleteSolution, i, op.Sequence, inst.Tasks[t].Sequence)
		}

		j := op.Job
		switch {
		case op.Sequence < e.jobSeq[j]:
			return nil, fmt.Errorf("%w: job %d sequence %d after %d", ErrInfeasibleSolution, j, op.Sequence, e.jobSeq[j])
		case op.Sequence > e.jobSeq[j]:
			e.jobReady[j] = e.jobDone[j]
			e.jobSeq[j] = op.Sequence
		}

		m := op.Machine
		if m < 0 || m >= inst.Machines {
			return nil, fmt.Errorf("%w: machine %d out of range", ErrInfeasibleSolution, m)
		}
		proc := inst.ProcTime(t, m)
		if proc < 0 {
			return nil, fmt.Errorf("%w: task (%d, %d) cannot run on machine %d", ErrInfeasibleSolution, op.Job, op.Task, m)
		}

		setup := 0
		if prev := e.lastTask[m]; prev >= 0 {
			setup = inst.SetupTime(prev, t)
			if setup < 0 {
				return nil, fmt.Errorf("%w: undefined setup %d -> %d on machine %d", ErrInfeasibleSolution, prev, t, m)
			}
		}

		start := e.busy[m]
		if r := e.jobReady[j]; r > start {
			start = r
		}
		end := start + setup + proc
		e.busy[m] = end
		e.lastTask[m] = t
		if end > e.jobDone[j] {
			e.jobDone[j] = end
		}

		if slots != nil {
			slots[i] = Slot{Operation: op, Start: start, Setup: setup, End: end}
		}
	}

	if cap(out) < inst.Machines {
		out = make([]int, inst.Machines)
	}
	out = out[:inst.Machines]
	copy(out, e.busy)
	return out, nil
}

func maxOf(xs []int) int {
	best := 0
	for _, v := range xs {
		if v > best {
			best = v
		}
	}
	return best
}
