// Package jobshoptest содержит небольшие экземпляры для тестов.
package jobshoptest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
)

// ToyOptimum - оптимальный makespan для Toy, получен полным перебором.
const ToyOptimum = 8

// Toy - 3 работы по 2 задачи, 2 станка, без переналадок.
func Toy(t testing.TB) *jobshop.Instance {
	t.Helper()
	tasks := []jobshop.Task{
		{Job: 0, ID: 0, Sequence: 0}, {Job: 0, ID: 1, Sequence: 1},
		{Job: 1, ID: 0, Sequence: 0}, {Job: 1, ID: 1, Sequence: 1},
		{Job: 2, ID: 0, Sequence: 0}, {Job: 2, ID: 1, Sequence: 1},
	}
	proc := []int{
		3, 4,
		2, 2,
		2, 3,
		4, 3,
		3, 3,
		2, 3,
	}
	inst, err := jobshop.NewInstance(3, 2, tasks, proc, nil)
	require.NoError(t, err)
	return inst
}

// Setup - 2 работы, 2 станка, переналадки с неопределённым переходом.
// Плотные индексы: 0 = (0,0), 1 = (0,1), 2 = (1,0).
func Setup(t testing.TB) *jobshop.Instance {
	t.Helper()
	tasks := []jobshop.Task{
		{Job: 0, ID: 0, Sequence: 0},
		{Job: 0, ID: 1, Sequence: 1},
		{Job: 1, ID: 0, Sequence: 0},
	}
	proc := []int{
		3, -1,
		-1, 2,
		4, 1,
	}
	setup := []int{
		0, 0, 5,
		0, 0, -1,
		1, 2, 0,
	}
	inst, err := jobshop.NewInstance(2, 2, tasks, proc, setup)
	require.NoError(t, err)
	return inst
}

// Random - случайный экземпляр среднего размера с переналадками.
func Random(t testing.TB, seed int64) *jobshop.Instance {
	t.Helper()
	g := jobshop.DefaultGenerator()
	g.Jobs = 6
	g.Machines = 4
	g.MinTasks = 2
	g.MaxTasks = 4
	inst, err := jobshop.RandomInstance(g, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return inst
}

// Initial строит случайное допустимое решение.
func Initial(t testing.TB, inst *jobshop.Instance, seed int64) *jobshop.Solution {
	t.Helper()
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	f, err := jobshop.NewFactory(ev, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	sol, err := f.Random()
	require.NoError(t, err)
	return sol
}

// Scaled - экземпляр той же формы с временами, умноженными на k.
// Решения одного экземпляра допустимы на другом, но с иным makespan.
func Scaled(t testing.TB, inst *jobshop.Instance, k int) *jobshop.Instance {
	t.Helper()
	scale := func(xs []int) []int {
		if xs == nil {
			return nil
		}
		out := make([]int, len(xs))
		for i, v := range xs {
			out[i] = v
			if v > 0 {
				out[i] = v * k
			}
		}
		return out
	}
	tasks := append([]jobshop.Task(nil), inst.Tasks...)
	scaled, err := jobshop.NewInstance(inst.Jobs, inst.Machines, tasks, scale(inst.ProcTimes), scale(inst.Setup))
	require.NoError(t, err)
	return scaled
}
