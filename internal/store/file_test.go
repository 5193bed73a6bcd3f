package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexShop/internal/jobshop"
	"flexShop/internal/jobshop/jobshoptest"
)

// pair возвращает два решения с разным порядком: лучшее и худшее.
func pair(t *testing.T) (*jobshop.Evaluator, *jobshop.Solution, *jobshop.Solution) {
	t.Helper()
	inst := jobshoptest.Random(t, 11)
	ev, err := jobshop.NewEvaluator(inst)
	require.NoError(t, err)
	a := jobshoptest.Initial(t, inst, 1)
	for seed := int64(2); seed < 100; seed++ {
		b := jobshoptest.Initial(t, inst, seed)
		switch {
		case jobshop.Less(a, b):
			return ev, a, b
		case jobshop.Less(b, a):
			return ev, b, a
		}
	}
	t.Fatal("no two distinct solutions")
	return nil, nil, nil
}

func TestFileStore_SaveOnlyImprovements(t *testing.T) {
	ev, better, worse := pair(t)
	fs, err := NewFileStore(t.TempDir(), ev, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = fs.Load(ctx, "mk01")
	assert.ErrorIs(t, err, ErrNotFound)

	run := uuid.New()
	saved, err := fs.Save(ctx, "mk01", run, worse)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = fs.Save(ctx, "mk01", uuid.New(), worse)
	require.NoError(t, err)
	assert.False(t, saved, "equal solution must not overwrite")

	saved, err = fs.Save(ctx, "mk01", run, better)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = fs.Save(ctx, "mk01", uuid.New(), worse)
	require.NoError(t, err)
	assert.False(t, saved)

	got, rec, err := fs.Load(ctx, "mk01")
	require.NoError(t, err)
	assert.True(t, jobshop.Equal(better, got))
	assert.Equal(t, run, rec.RunID)
	assert.Equal(t, better.Makespan(), rec.Makespan)
	assert.Len(t, rec.Digest, 64)
}

func TestFileStore_DetectsTampering(t *testing.T) {
	ev, better, worse := pair(t)
	fs, err := NewFileStore(t.TempDir(), ev, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = fs.Save(ctx, "inst/a b", uuid.New(), better)
	require.NoError(t, err)

	path := fs.path("inst/a b")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	rec.Payload, err = jobshop.Encode(worse)
	require.NoError(t, err)
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = fs.Load(ctx, "inst/a b")
	assert.ErrorIs(t, err, ErrDigestMismatch)
	assert.ErrorIs(t, err, ErrUnusable)

	// повреждённая запись заменяется даже худшим решением
	saved, err := fs.Save(ctx, "inst/a b", uuid.New(), worse)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestFileStore_LoadsFormattedRecord(t *testing.T) {
	ev, better, _ := pair(t)
	fs, err := NewFileStore(t.TempDir(), ev, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = fs.Save(ctx, "mk02", uuid.New(), better)
	require.NoError(t, err)
	got, _, err := fs.Load(ctx, "mk02")
	require.NoError(t, err)
	assert.True(t, jobshop.Equal(better, got))

	// файл, переформатированный вручную, остаётся валидным
	path := fs.path("mk02")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	data, err = json.MarshalIndent(rec, "", "\t")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, _, err = fs.Load(ctx, "mk02")
	require.NoError(t, err)
	assert.True(t, jobshop.Equal(better, got))

	saved, err := fs.Save(ctx, "mk02", uuid.New(), better)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestFileStore_ReplacesRecordOfChangedInstance(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	orig := jobshoptest.Random(t, 11)
	evOrig, err := jobshop.NewEvaluator(orig)
	require.NoError(t, err)
	before, err := NewFileStore(dir, evOrig, nil)
	require.NoError(t, err)
	_, err = before.Save(ctx, "mk03", uuid.New(), jobshoptest.Initial(t, orig, 1))
	require.NoError(t, err)

	// экземпляр перегенерирован под тем же именем
	regen := jobshoptest.Scaled(t, orig, 10)
	evRegen, err := jobshop.NewEvaluator(regen)
	require.NoError(t, err)
	after, err := NewFileStore(dir, evRegen, nil)
	require.NoError(t, err)

	_, _, err = after.Load(ctx, "mk03")
	assert.ErrorIs(t, err, ErrUnusable)

	sol := jobshoptest.Initial(t, regen, 2)
	saved, err := after.Save(ctx, "mk03", uuid.New(), sol)
	require.NoError(t, err)
	assert.True(t, saved)

	got, rec, err := after.Load(ctx, "mk03")
	require.NoError(t, err)
	assert.True(t, jobshop.Equal(sol, got))
	assert.Equal(t, sol.Makespan(), rec.Makespan)
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	ev, better, _ := pair(t)
	dir := t.TempDir()
	fs, err := NewFileStore(dir, ev, nil)
	require.NoError(t, err)

	_, err = fs.Save(context.Background(), "x", uuid.New(), better)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.best.json", entries[0].Name())
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Digest([]byte("a")), Digest([]byte("a")))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
	assert.Len(t, Digest(nil), 64)
}
