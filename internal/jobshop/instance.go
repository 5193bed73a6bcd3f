package jobshop

import (
	"errors"
	"fmt"
	"sort"
)

// Task - задача работы. Sequence задаёт группу очередности внутри работы:
// задачи с меньшим Sequence должны быть завершены раньше, задачи с равным
// Sequence между собой не упорядочены.
type Task struct {
	Job      int `json:"job" yaml:"job"`
	ID       int `json:"task" yaml:"task"`
	Sequence int `json:"sequence" yaml:"sequence"`
}

// Instance - неизменяемые данные задачи. Создаётся через NewInstance и
// разделяется всеми воркерами только на чтение.
type Instance struct {
	Jobs     int
	Machines int
	// Tasks в порядке плотных индексов.
	Tasks []Task
	// ProcTimes длины len(Tasks)*Machines, -1 = станок недоступен.
	ProcTimes []int
	// Setup длины len(Tasks)*len(Tasks): переналадка при переходе с задачи A
	// на задачу B на одном станке, -1 = переход не определён.
	// nil означает нулевые переналадки.
	Setup []int

	jobTasks  [][]int // работа -> плотные индексы по возрастанию Sequence
	taskIndex [][]int // (работа, ID задачи) -> плотный индекс, -1 если нет
	usable    [][]int // задача -> доступные станки
	meanProc  []float64
}

// NewInstance собирает и проверяет экземпляр задачи.
// ID задач внутри работы должны быть неотрицательными и уникальными.
func NewInstance(jobs, machines int, tasks []Task, procTimes, setup []int) (*Instance, error) {
	inst := &Instance{
		Jobs:      jobs,
		Machines:  machines,
		Tasks:     tasks,
		ProcTimes: procTimes,
		Setup:     setup,
	}
	if err := inst.checkShape(); err != nil {
		return nil, err
	}
	inst.build()
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (inst *Instance) checkShape() error {
	if inst.Jobs <= 0 {
		return fmt.Errorf("jobs must be > 0 (got %d)", inst.Jobs)
	}
	if inst.Machines <= 0 {
		return fmt.Errorf("machines must be > 0 (got %d)", inst.Machines)
	}
	n := len(inst.Tasks)
	if n == 0 {
		return errors.New("instance has no tasks")
	}
	if len(inst.ProcTimes) != n*inst.Machines {
		return fmt.Errorf("procTimes length must be tasks*machines=%d (got %d)", n*inst.Machines, len(inst.ProcTimes))
	}
	if inst.Setup != nil && len(inst.Setup) != n*n {
		return fmt.Errorf("setup length must be tasks*tasks=%d (got %d)", n*n, len(inst.Setup))
	}
	for i, t := range inst.Tasks {
		if t.Job < 0 || t.Job >= inst.Jobs {
			return fmt.Errorf("task %d: job %d out of range [0,%d)", i, t.Job, inst.Jobs)
		}
		if t.ID < 0 {
			return fmt.Errorf("task %d: id must be >= 0 (got %d)", i, t.ID)
		}
		if t.Sequence < 0 {
			return fmt.Errorf("task %d: sequence must be >= 0 (got %d)", i, t.Sequence)
		}
	}
	return nil
}

func (inst *Instance) build() {
	n := len(inst.Tasks)
	inst.jobTasks = make([][]int, inst.Jobs)
	maxID := make([]int, inst.Jobs)
	for i, t := range inst.Tasks {
		inst.jobTasks[t.Job] = append(inst.jobTasks[t.Job], i)
		if t.ID+1 > maxID[t.Job] {
			maxID[t.Job] = t.ID + 1
		}
	}
	for j := range inst.jobTasks {
		ts := inst.jobTasks[j]
		sort.SliceStable(ts, func(a, b int) bool {
			return inst.Tasks[ts[a]].Sequence < inst.Tasks[ts[b]].Sequence
		})
	}

	inst.taskIndex = make([][]int, inst.Jobs)
	for j := range inst.taskIndex {
		row := make([]int, maxID[j])
		for k := range row {
			row[k] = -1
		}
		inst.taskIndex[j] = row
	}

	inst.usable = make([][]int, n)
	inst.meanProc = make([]float64, n)
	for i, t := range inst.Tasks {
		if inst.taskIndex[t.Job][t.ID] == -1 {
			inst.taskIndex[t.Job][t.ID] = i
		} else {
			// дубликат: помечаем, Validate сообщит об ошибке
			inst.taskIndex[t.Job][t.ID] = -2
		}
		sum := 0
		for m := 0; m < inst.Machines; m++ {
			if p := inst.ProcTimes[i*inst.Machines+m]; p >= 0 {
				inst.usable[i] = append(inst.usable[i], m)
				sum += p
			}
		}
		if k := len(inst.usable[i]); k > 0 {
			inst.meanProc[i] = float64(sum) / float64(k)
		}
	}
}

// Validate проверяет инварианты экземпляра.
func (inst *Instance) Validate() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if inst.jobTasks == nil {
		return errors.New("instance is not built, use NewInstance")
	}
	for i, t := range inst.Tasks {
		if inst.taskIndex[t.Job][t.ID] == -2 {
			return fmt.Errorf("duplicate task id %d in job %d", t.ID, t.Job)
		}
		if len(inst.usable[i]) == 0 {
			return fmt.Errorf("task %d (job %d, id %d) has no usable machine", i, t.Job, t.ID)
		}
	}
	for i, v := range inst.ProcTimes {
		if v < -1 {
			return fmt.Errorf("procTimes[%d] must be >= -1 (got %d)", i, v)
		}
	}
	for i, v := range inst.Setup {
		if v < -1 {
			return fmt.Errorf("setup[%d] must be >= -1 (got %d)", i, v)
		}
	}
	for j, ts := range inst.jobTasks {
		if len(ts) == 0 {
			return fmt.Errorf("job %d has no tasks", j)
		}
	}
	return nil
}

// NumTasks - общее число задач.
func (inst *Instance) NumTasks() int { return len(inst.Tasks) }

// JobTasks возвращает плотные индексы задач работы по возрастанию Sequence.
// Срез принадлежит экземпляру и не должен изменяться.
func (inst *Instance) JobTasks(job int) []int { return inst.jobTasks[job] }

// TaskIndex возвращает плотный индекс задачи (job, id).
func (inst *Instance) TaskIndex(job, id int) (int, bool) {
	if job < 0 || job >= len(inst.taskIndex) {
		return -1, false
	}
	row := inst.taskIndex[job]
	if id < 0 || id >= len(row) || row[id] < 0 {
		return -1, false
	}
	return row[id], true
}

// ProcTime - время обработки задачи на станке, -1 если станок недоступен.
func (inst *Instance) ProcTime(task, machine int) int {
	return inst.ProcTimes[task*inst.Machines+machine]
}

// SetupTime - переналадка при переходе с задачи from на задачу to.
// -1 означает, что переход не определён.
func (inst *Instance) SetupTime(from, to int) int {
	if inst.Setup == nil {
		return 0
	}
	return inst.Setup[from*len(inst.Tasks)+to]
}

// Usable возвращает доступные станки задачи. Срез не должен изменяться.
func (inst *Instance) Usable(task int) []int { return inst.usable[task] }

// MeanProcTime - среднее время обработки по доступным станкам.
func (inst *Instance) MeanProcTime(task int) float64 { return inst.meanProc[task] }

// MaxSequence - наибольший номер группы очередности работы.
func (inst *Instance) MaxSequence(job int) int {
	ts := inst.jobTasks[job]
	return inst.Tasks[ts[len(ts)-1]].Sequence
}

// Operation - элементарное решение: задача (Job, Task) с номером Sequence
// выполняется на станке Machine.
type Operation struct {
	Job      int `json:"job"`
	Task     int `json:"task"`
	Sequence int `json:"sequence"`
	Machine  int `json:"machine"`
}

// Schedule - упорядоченный список операций, по одной на задачу.
type Schedule []Operation

// Clone возвращает независимую копию.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}
