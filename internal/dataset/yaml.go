// Package dataset читает и пишет файлы экземпляров: собственный YAML-формат
// с матрицей переналадок и текстовый формат Brandimarte (.fjs).
package dataset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"flexShop/internal/jobshop"
)

// TaskRow - задача в файле. Times[m] - время на станке m, -1 = недоступен.
type TaskRow struct {
	Job      int   `yaml:"job"`
	Task     int   `yaml:"task"`
	Sequence int   `yaml:"sequence"`
	Times    []int `yaml:"times,flow"`
}

// File - YAML-представление экземпляра. Setup[a][b] задаётся в порядке Tasks.
type File struct {
	Name     string    `yaml:"name,omitempty"`
	Jobs     int       `yaml:"jobs"`
	Machines int       `yaml:"machines"`
	Tasks    []TaskRow `yaml:"tasks"`
	Setup    [][]int   `yaml:"setup,omitempty,flow"`
}

// Instance собирает и проверяет экземпляр.
func (f *File) Instance() (*jobshop.Instance, error) {
	n := len(f.Tasks)
	if f.Machines <= 0 {
		return nil, fmt.Errorf("machines must be > 0 (got %d)", f.Machines)
	}
	tasks := make([]jobshop.Task, n)
	proc := make([]int, 0, n*f.Machines)
	for i, t := range f.Tasks {
		if len(t.Times) != f.Machines {
			return nil, fmt.Errorf("task %d/%d: %d times for %d machines", t.Job, t.Task, len(t.Times), f.Machines)
		}
		tasks[i] = jobshop.Task{Job: t.Job, ID: t.Task, Sequence: t.Sequence}
		proc = append(proc, t.Times...)
	}
	var setup []int
	if len(f.Setup) > 0 {
		if len(f.Setup) != n {
			return nil, fmt.Errorf("setup: %d rows for %d tasks", len(f.Setup), n)
		}
		setup = make([]int, 0, n*n)
		for i, row := range f.Setup {
			if len(row) != n {
				return nil, fmt.Errorf("setup row %d: %d columns for %d tasks", i, len(row), n)
			}
			setup = append(setup, row...)
		}
	}
	return jobshop.NewInstance(f.Jobs, f.Machines, tasks, proc, setup)
}

// FromInstance строит файловое представление экземпляра.
func FromInstance(name string, inst *jobshop.Instance) *File {
	n := inst.NumTasks()
	f := &File{Name: name, Jobs: inst.Jobs, Machines: inst.Machines, Tasks: make([]TaskRow, n)}
	for i, t := range inst.Tasks {
		times := make([]int, inst.Machines)
		for m := range times {
			times[m] = inst.ProcTime(i, m)
		}
		f.Tasks[i] = TaskRow{Job: t.Job, Task: t.ID, Sequence: t.Sequence, Times: times}
	}
	if inst.Setup != nil {
		f.Setup = make([][]int, n)
		for a := range f.Setup {
			f.Setup[a] = append([]int(nil), inst.Setup[a*n:(a+1)*n]...)
		}
	}
	return f
}

func ReadYAML(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse yaml instance: %w", err)
	}
	return &f, nil
}

func WriteYAML(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
