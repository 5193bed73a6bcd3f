package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileStore держит по одному JSON-файлу на экземпляр в каталоге Dir.
type FileStore struct {
	Dir string
	ev  *jobshop.Evaluator
	log *zap.Logger
	mu  sync.Mutex
}

func NewFileStore(dir string, ev *jobshop.Evaluator, log *zap.Logger) (*FileStore, error) {
	if ev == nil {
		return nil, errors.New("store: nil evaluator")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}
	return &FileStore{Dir: dir, ev: ev, log: logging.OrNop(log)}, nil
}

func (f *FileStore) path(instance string) string {
	name := unsafeName.ReplaceAllString(instance, "_")
	if name == "" {
		name = "instance"
	}
	return filepath.Join(f.Dir, name+".best.json")
}

func (f *FileStore) Load(ctx context.Context, instance string) (*jobshop.Solution, Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(ctx, instance)
}

func (f *FileStore) load(ctx context.Context, instance string) (*jobshop.Solution, Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, Record{}, err
	}
	data, err := os.ReadFile(f.path(instance))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Record{}, ErrNotFound
	}
	if err != nil {
		return nil, Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, Record{}, fmt.Errorf("read %s: %w", f.path(instance), err)
	}
	sol, err := decode(f.ev, rec)
	if err != nil {
		return nil, rec, err
	}
	return sol, rec, nil
}

func (f *FileStore) Save(ctx context.Context, instance string, runID uuid.UUID, s *jobshop.Solution) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, _, err := f.load(ctx, instance)
	switch {
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrUnusable):
		f.log.Warn("stored solution is unusable, replacing", zap.String("instance", instance), zap.Error(err))
		stored = nil
	case err != nil:
		return false, err
	}
	if !improves(s, stored) {
		f.log.Debug("stored solution is not worse, skipping",
			zap.String("instance", instance),
			zap.Int("stored", stored.Makespan()),
			zap.Int("candidate", s.Makespan()),
		)
		return false, nil
	}

	rec, err := newRecord(instance, runID, s)
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if err := writeAtomic(f.path(instance), data); err != nil {
		return false, err
	}
	f.log.Info("best solution saved",
		zap.String("instance", instance),
		zap.String("run_id", runID.String()),
		zap.Int("makespan", rec.Makespan),
	)
	return true, nil
}

// writeAtomic пишет во временный файл рядом и переименовывает его.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flexshop-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
