// Package store хранит лучшее найденное решение экземпляра между запусками.
// Запись перезаписывается только строгим улучшением.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"flexShop/internal/jobshop"
)

var (
	ErrNotFound       = errors.New("store: no stored solution")
	ErrDigestMismatch = errors.New("store: payload digest mismatch")
	// ErrUnusable - запись прочитана, но решение из неё не восстановить:
	// повреждён payload или экземпляр с тем же именем изменился.
	// Save такую запись заменяет.
	ErrUnusable = errors.New("store: stored solution is unusable")
)

// Record - сохранённое решение с метаданными запуска.
type Record struct {
	Instance string          `json:"instance"`
	RunID    uuid.UUID       `json:"run_id"`
	Makespan int             `json:"makespan"`
	Digest   string          `json:"digest"`
	SavedAt  time.Time       `json:"saved_at"`
	Payload  json.RawMessage `json:"solution"`
}

// Store привязан к одному вычислителю: сохранённые решения при чтении
// заново оцениваются на нём.
type Store interface {
	// Load возвращает сохранённое решение или ErrNotFound.
	Load(ctx context.Context, instance string) (*jobshop.Solution, Record, error)
	// Save записывает решение, если оно лучше сохранённого, и сообщает, записано ли.
	Save(ctx context.Context, instance string, runID uuid.UUID, s *jobshop.Solution) (bool, error)
}

// Digest - blake3 от компактного JSON решения, в hex.
func Digest(payload []byte) string {
	h := blake3.New()
	_, _ = h.Write(payload)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func newRecord(instance string, runID uuid.UUID, s *jobshop.Solution) (Record, error) {
	payload, err := jobshop.Encode(s)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Instance: instance,
		RunID:    runID,
		Makespan: s.Makespan(),
		Digest:   Digest(payload),
		SavedAt:  time.Now().UTC().Round(time.Microsecond),
		Payload:  payload,
	}, nil
}

// decode проверяет дайджест и восстанавливает решение. Любая ошибка
// оборачивает ErrUnusable.
func decode(ev *jobshop.Evaluator, rec Record) (*jobshop.Solution, error) {
	// форматирование файла не должно влиять на дайджест
	var payload bytes.Buffer
	if err := json.Compact(&payload, rec.Payload); err != nil {
		return nil, fmt.Errorf("%w: instance %q: %w", ErrUnusable, rec.Instance, err)
	}
	if Digest(payload.Bytes()) != rec.Digest {
		return nil, fmt.Errorf("%w: %w: instance %q run %s", ErrUnusable, ErrDigestMismatch, rec.Instance, rec.RunID)
	}
	sol, err := jobshop.Decode(ev, payload.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: instance %q: %w", ErrUnusable, rec.Instance, err)
	}
	return sol, nil
}

// improves сообщает, нужно ли заменить сохранённое решение кандидатом.
func improves(cand, stored *jobshop.Solution) bool {
	return stored == nil || jobshop.Less(cand, stored)
}
