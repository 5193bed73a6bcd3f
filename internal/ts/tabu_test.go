package ts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
)

func distinct(t *testing.T, n int) []*jobshop.Solution {
	t.Helper()
	inst := jobshoptest.Random(t, 31)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	f, err := jobshop.NewFactory(ev, rand.New(rand.NewSource(8)))
	require.NoError(t, err)

	var out []*jobshop.Solution
	for len(out) < n {
		s, err := f.Random()
		require.NoError(t, err)
		dup := false
		for _, o := range out {
			dup = dup || jobshop.Equal(o, s)
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

func TestTabuList_FIFO(t *testing.T) {
	sols := distinct(t, 5)
	tl := newTabuList(3)

	for _, s := range sols[:3] {
		tl.Push(s)
	}
	assert.Equal(t, 3, tl.Len())
	for _, s := range sols[:3] {
		assert.True(t, tl.Contains(s))
	}
	assert.False(t, tl.Contains(sols[3]))

	tl.Push(sols[3])
	tl.Push(sols[4])
	assert.Equal(t, 3, tl.Len())
	assert.False(t, tl.Contains(sols[0]))
	assert.False(t, tl.Contains(sols[1]))
	assert.True(t, tl.Contains(sols[2]))
	assert.True(t, tl.Contains(sols[4]))
}

func TestTabuList_EqualNotIdentical(t *testing.T) {
	inst := jobshoptest.Toy(t)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	s := jobshoptest.Initial(t, inst, 1)
	copyOf, err := jobshop.NewSolution(ev, s.Schedule())
	require.NoError(t, err)

	tl := newTabuList(2)
	tl.Push(s)
	assert.True(t, tl.Contains(copyOf))
}

func TestElite_KeepsBestK(t *testing.T) {
	sols := distinct(t, 8)
	e := newElite(3)
	for _, s := range sols {
		e.Offer(s)
		e.Offer(s)
	}
	assert.Equal(t, 3, e.Len())
	assert.Equal(t, 0, jobshop.Compare(jobshop.Best(sols...), e.Best()))

	kept := e.h.Items()
	worstKept := kept[0]
	for _, k := range kept {
		if jobshop.Less(worstKept, k) {
			worstKept = k
		}
	}
	better := 0
	for _, s := range sols {
		if jobshop.Less(s, worstKept) {
			better++
		}
	}
	assert.LessOrEqual(t, better, 2)
}

func TestElite_DuplicateOfferDoesNotAllocate(t *testing.T) {
	sols := distinct(t, 4)
	e := newElite(4)
	for _, s := range sols {
		e.Offer(s)
	}
	allocs := testing.AllocsPerRun(100, func() { e.Offer(sols[2]) })
	assert.Zero(t, allocs)
	assert.Equal(t, 4, e.Len())
}
