package jobshop_test

import (
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
)

func randomSolutions(t *testing.T, inst *jobshop.Instance, n int, seed int64) []*jobshop.Solution {
	t.Helper()
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	f, err := jobshop.NewFactory(ev, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	out := make([]*jobshop.Solution, 0, n)
	for i := 0; i < n; i++ {
		s, err := f.Random()
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestCompare_TotalOrder(t *testing.T) {
	sols := randomSolutions(t, jobshoptest.Random(t, 3), 40, 5)

	for _, a := range sols {
		for _, b := range sols {
			ab, ba := jobshop.Compare(a, b), jobshop.Compare(b, a)
			outcomes := 0
			if ab < 0 {
				outcomes++
			}
			if ab > 0 {
				outcomes++
			}
			if ab == 0 {
				outcomes++
			}
			require.Equal(t, 1, outcomes)
			assert.Equal(t, -ab, ba)
		}
	}

	sorted := slices.Clone(sols)
	sort.SliceStable(sorted, func(i, j int) bool { return jobshop.Less(sorted[i], sorted[j]) })
	again := slices.Clone(sorted)
	sort.SliceStable(again, func(i, j int) bool { return jobshop.Less(again[i], again[j]) })
	assert.Equal(t, sorted, again)
	for i := 1; i < len(sorted); i++ {
		assert.LessOrEqual(t, jobshop.Compare(sorted[i-1], sorted[i]), 0)
	}
}

func TestCompare_TieBreakPrefersBalance(t *testing.T) {
	tasks := []jobshop.Task{
		{Job: 0, ID: 0, Sequence: 0},
		{Job: 1, ID: 0, Sequence: 0},
		{Job: 2, ID: 0, Sequence: 0},
	}
	proc := []int{
		10, 10, 10,
		2, 2, 5,
		3, 3, 3,
	}
	inst, err := jobshop.NewInstance(3, 3, tasks, proc, nil)
	require.NoError(t, err)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)

	// профиль [10, 3, 2]
	balanced, err := jobshop.NewSolution(ev, jobshop.Schedule{op(0, 0, 0, 0), op(1, 0, 0, 1), op(2, 0, 0, 2)})
	require.NoError(t, err)
	// профиль [10, 5, 3]
	skewed, err := jobshop.NewSolution(ev, jobshop.Schedule{op(0, 0, 0, 0), op(1, 0, 0, 2), op(2, 0, 0, 1)})
	require.NoError(t, err)

	require.Equal(t, balanced.Makespan(), skewed.Makespan())
	assert.True(t, jobshop.Less(balanced, skewed))
	assert.False(t, jobshop.Equal(balanced, skewed))
	assert.Same(t, balanced, jobshop.Best(skewed, nil, balanced))
}

func TestSolution_EqualAndImmutable(t *testing.T) {
	inst := jobshoptest.Toy(t)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)

	sched := jobshop.Schedule{op(0, 0, 0, 0), op(1, 0, 0, 1), op(2, 0, 0, 0), op(0, 1, 1, 1), op(1, 1, 1, 1), op(2, 1, 1, 0)}
	a, err := jobshop.NewSolution(ev, sched.Clone())
	require.NoError(t, err)
	b, err := jobshop.NewSolution(ev, sched.Clone())
	require.NoError(t, err)

	assert.True(t, jobshop.Equal(a, b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, 0, jobshop.Compare(a, b))

	exported := a.Schedule()
	exported[0].Machine = 1
	mm := a.MachineMakespans()
	mm[0] = -100
	assert.Equal(t, 0, a.At(0).Machine)
	assert.NotEqual(t, -100, a.MachineMakespans()[0])
	assert.Equal(t, len(sched), a.Len())
}
