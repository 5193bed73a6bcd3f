package move

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
)

func newGen(t *testing.T, inst *jobshop.Instance, seed int64) *Generator {
	t.Helper()
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	g, err := NewGenerator(ev, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return g
}

// movedOne проверяет, что b получено из a переносом одной операции.
func movedOne(a, b *jobshop.Solution) bool {
	n := a.Len()
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			rest := make([]jobshop.Operation, 0, n)
			for i := 0; i < n; i++ {
				if i != from {
					rest = append(rest, a.At(i))
				}
			}
			moved := b.At(to)
			if moved.Job != a.At(from).Job || moved.Task != a.At(from).Task {
				continue
			}
			ok := true
			k := 0
			for i := 0; i < n && ok; i++ {
				if i == to {
					continue
				}
				ok = b.At(i) == rest[k]
				k++
			}
			if ok {
				return true
			}
		}
	}
	return false
}

func TestReinsert_SingleOperationMoved(t *testing.T) {
	inst := jobshoptest.Random(t, 12)
	seed := jobshoptest.Initial(t, inst, 3)
	g := newGen(t, inst, 1)

	for i := 0; i < 50; i++ {
		nb, err := g.Reinsert(seed, 0.3)
		require.NoError(t, err)
		assert.False(t, jobshop.Equal(seed, nb))
		assert.True(t, movedOne(seed, nb))
	}
}

func TestReinsert_SingleSlotForcesMachineChange(t *testing.T) {
	tasks := []jobshop.Task{
		{Job: 0, ID: 0, Sequence: 0},
		{Job: 0, ID: 1, Sequence: 1},
	}
	inst, err := jobshop.NewInstance(1, 2, tasks, []int{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	seed, err := jobshop.NewSolution(ev, jobshop.Schedule{
		{Job: 0, Task: 0, Sequence: 0, Machine: 0},
		{Job: 0, Task: 1, Sequence: 1, Machine: 0},
	})
	require.NoError(t, err)

	g := newGen(t, inst, 2)
	for i := 0; i < 20; i++ {
		nb, err := g.Reinsert(seed, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, nb.At(0).Task)
		assert.Equal(t, 1, nb.At(1).Task)
		assert.NotEqual(t, 0, nb.At(0).Machine+nb.At(1).Machine)
	}
}

func TestReinsert_NoMove(t *testing.T) {
	inst, err := jobshop.NewInstance(1, 1, []jobshop.Task{{}}, []int{5}, nil)
	require.NoError(t, err)
	seed := jobshoptest.Initial(t, inst, 1)

	g := newGen(t, inst, 1)
	_, err = g.Reinsert(seed, 1)
	assert.ErrorIs(t, err, ErrNoMove)

	nb, err := g.Neighborhood(seed, 5, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, nb)
}

func TestWindow(t *testing.T) {
	inst := jobshoptest.Toy(t)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	seed, err := jobshop.NewSolution(ev, jobshop.Schedule{
		{Job: 0, Task: 0, Sequence: 0, Machine: 0},
		{Job: 1, Task: 0, Sequence: 0, Machine: 1},
		{Job: 0, Task: 1, Sequence: 1, Machine: 1},
		{Job: 2, Task: 0, Sequence: 0, Machine: 0},
		{Job: 1, Task: 1, Sequence: 1, Machine: 0},
		{Job: 2, Task: 1, Sequence: 1, Machine: 1},
	})
	require.NoError(t, err)

	lo, hi := window(seed, 0)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)

	lo, hi = window(seed, 2)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 5, hi)

	lo, hi = window(seed, 3)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 4, hi)
}

func TestNeighborhood_DistinctAndBounded(t *testing.T) {
	inst := jobshoptest.Random(t, 6)
	seed := jobshoptest.Initial(t, inst, 6)
	g := newGen(t, inst, 9)

	nb, err := g.Neighborhood(seed, 30, 0, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, nb)
	assert.LessOrEqual(t, len(nb), 30)
	for i := range nb {
		assert.False(t, jobshop.Equal(nb[i], seed))
		for j := i + 1; j < len(nb); j++ {
			assert.False(t, jobshop.Equal(nb[i], nb[j]))
		}
	}

	empty, err := g.Neighborhood(seed, 0, time.Second, 0.2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNeighborhood_Reproducible(t *testing.T) {
	inst := jobshoptest.Random(t, 6)
	seed := jobshoptest.Initial(t, inst, 6)

	a, err := newGen(t, inst, 4).Neighborhood(seed, 15, 0, 0.5)
	require.NoError(t, err)
	b, err := newGen(t, inst, 4).Neighborhood(seed, 15, 0, 0.5)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.True(t, jobshop.Equal(a[i], b[i]))
	}
}

func TestNeighborhood_Deadline(t *testing.T) {
	inst := jobshoptest.Random(t, 6)
	seed := jobshoptest.Initial(t, inst, 6)
	g := newGen(t, inst, 9)

	start := time.Now()
	nb, err := g.Neighborhood(seed, 100_000, 20*time.Millisecond, 0.2)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Less(t, len(nb), 100_000)
}
