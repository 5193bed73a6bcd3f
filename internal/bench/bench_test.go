package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/ga"
	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
	"flexShop/internal/opt"
	"flexShop/internal/sa"
	"flexShop/internal/search"
	"flexShop/internal/ts"
)

func TestCalcIntStats(t *testing.T) {
	s := CalcIntStats([]int{4, 2, 6})
	assert.Equal(t, 3, s.N)
	assert.Equal(t, 2, s.Best)
	assert.InDelta(t, 4.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.Std, 1e-9)

	one := CalcIntStats([]int{7})
	assert.Equal(t, IntStats{N: 1, Best: 7, Mean: 7}, one)
	assert.Equal(t, IntStats{}, CalcIntStats(nil))
}

func TestCalcFloatStats(t *testing.T) {
	s := CalcFloatStats([]float64{1, 2, 3, 4})
	assert.Equal(t, 1.0, s.Best)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-9)
}

func smallTS() ts.Config {
	cfg := ts.DefaultConfig()
	cfg.Budget = opt.Budget{Iterations: 20}
	cfg.NeighborhoodSize = 10
	cfg.NeighborhoodWait = 0
	cfg.Benchmark = true
	return cfg
}

func TestRunner_RunCase(t *testing.T) {
	c := Case{Name: "toy", Inst: jobshoptest.Toy(t)}
	r := Runner{Runs: 3, BaseSeed: 10}

	rec, runs, err := r.RunCase(context.Background(), c, Algorithm{Name: "TS", Factory: TSFactory(smallTS(), "", nil, nil)})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "TS", rec.Algo)
	assert.Equal(t, "toy", rec.Instance)
	assert.Equal(t, 6, rec.Tasks)
	assert.GreaterOrEqual(t, rec.MakespanBest, jobshoptest.ToyOptimum)
	assert.GreaterOrEqual(t, rec.MakespanMean, float64(rec.MakespanBest))
	assert.Positive(t, rec.EvaluationsMean)
	for i, run := range runs {
		assert.Equal(t, int64(10+i), run.Seed)
		assert.NotEmpty(t, run.Result.Trace)
	}
}

func TestRunner_AllFactories(t *testing.T) {
	c, err := GeneratedCase(jobshop.DefaultGenerator(), 3)
	require.NoError(t, err)
	assert.Contains(t, c.Name, "rand-")

	gc := ga.DefaultConfig()
	gc.Population = 10
	gc.Budget = opt.Budget{Iterations: 5}
	sc := sa.DefaultConfig()
	sc.Budget = opt.Budget{Iterations: 200}
	oc := search.DefaultConfig()
	oc.Workers = 2
	oc.TS = smallTS()

	algos := []Algorithm{
		{Name: "GA", Factory: GAFactory(gc, jobshop.HeuristicSPT, nil, nil)},
		{Name: "SA", Factory: SAFactory(sc, "", nil, nil)},
		{Name: "SEARCH", Factory: SearchFactory(oc, nil, nil)},
	}
	r := Runner{Runs: 2, BaseSeed: 1}
	for _, a := range algos {
		rec, runs, err := r.RunCase(context.Background(), c, a)
		require.NoError(t, err, a.Name)
		assert.Len(t, runs, 2)
		assert.Positive(t, rec.MakespanBest)
	}
}

func TestRunner_FactoryError(t *testing.T) {
	bad := smallTS()
	bad.TabuSize = 0
	c := Case{Name: "toy", Inst: jobshoptest.Toy(t)}
	_, _, err := Runner{Runs: 1}.RunCase(context.Background(), c, Algorithm{Name: "TS", Factory: TSFactory(bad, "", nil, nil)})
	assert.Error(t, err)
}

type failing struct{}

func (failing) Solve(context.Context, *jobshop.Instance) (opt.Result, error) {
	return opt.Result{}, errors.New("boom")
}

func TestRunner_SolveError(t *testing.T) {
	c := Case{Name: "toy", Inst: jobshoptest.Toy(t)}
	algo := Algorithm{Name: "X", Factory: func(int64) (opt.Optimizer, error) { return failing{}, nil }}
	_, _, err := Runner{Runs: 1}.RunCase(context.Background(), c, algo)
	assert.ErrorContains(t, err, "boom")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "bench.csv")
	recs := []Record{{Algo: "TS", Instance: "toy", Jobs: 3, Machines: 2, Tasks: 6, Runs: 1, MakespanBest: 8, MakespanMean: 8}}
	require.NoError(t, WriteCSV(path, recs))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "algo", rows[0][0])
	assert.Equal(t, []string{"TS", "toy", "3", "2", "6", "1"}, rows[1][:6])
	assert.Equal(t, "8", rows[1][9])
}

func TestWriteTraceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	trace := []opt.TracePoint{{Step: 0, Current: 12, Best: 12}, {Step: 1, Current: 11, Best: 11, Neighborhood: 5, Tabu: 1}}
	require.NoError(t, WriteTraceCSV(path, trace))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "11", "11", "0.000000", "5", "1"}, rows[2])
}
