package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenMySQL открывает пул соединений. parseTime включается принудительно.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// SQLStore хранит решения в таблице MySQL, по строке на экземпляр.
type SQLStore struct {
	db    *sql.DB
	table string
	ev    *jobshop.Evaluator
	log   *zap.Logger
}

func NewSQLStore(db *sql.DB, table string, ev *jobshop.Evaluator, log *zap.Logger) (*SQLStore, error) {
	if db == nil || ev == nil {
		return nil, errors.New("store: nil db or evaluator")
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("store: bad table name %q", table)
	}
	return &SQLStore{db: db, table: table, ev: ev, log: logging.OrNop(log)}, nil
}

// Migrate создаёт таблицу, если её нет.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
		  instance VARCHAR(255) NOT NULL PRIMARY KEY,
		  run_id   CHAR(36)     NOT NULL,
		  makespan INT          NOT NULL,
		  digest   CHAR(64)     NOT NULL,
		  payload  MEDIUMBLOB   NOT NULL,
		  saved_at DATETIME(6)  NOT NULL
		)`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scan(row rowScanner) (Record, error) {
	var rec Record
	var runID string
	var payload []byte
	err := row.Scan(&rec.Instance, &runID, &rec.Makespan, &rec.Digest, &payload, &rec.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if rec.RunID, err = uuid.Parse(runID); err != nil {
		return Record{}, fmt.Errorf("instance %q: run id: %w", rec.Instance, err)
	}
	rec.Payload = payload
	return rec, nil
}

func (s *SQLStore) selectQuery(lock bool) string {
	q := `SELECT instance, run_id, makespan, digest, payload, saved_at FROM ` + s.table + ` WHERE instance = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	return q
}

func (s *SQLStore) Load(ctx context.Context, instance string) (*jobshop.Solution, Record, error) {
	rec, err := s.scan(s.db.QueryRowContext(ctx, s.selectQuery(false), instance))
	if err != nil {
		return nil, Record{}, err
	}
	sol, err := decode(s.ev, rec)
	if err != nil {
		return nil, rec, err
	}
	return sol, rec, nil
}

func (s *SQLStore) Save(ctx context.Context, instance string, runID uuid.UUID, sol *jobshop.Solution) (saved bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !saved {
			_ = tx.Rollback()
		}
	}()

	var stored *jobshop.Solution
	rec, err := s.scan(tx.QueryRowContext(ctx, s.selectQuery(true), instance))
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return false, err
	default:
		if stored, err = decode(s.ev, rec); err != nil {
			if !errors.Is(err, ErrUnusable) {
				return false, err
			}
			s.log.Warn("stored solution is unusable, replacing", zap.String("instance", instance), zap.Error(err))
		}
	}
	err = nil
	if !improves(sol, stored) {
		return false, nil
	}

	next, err := newRecord(instance, runID, sol)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+s.table+` (instance, run_id, makespan, digest, payload, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		  run_id = VALUES(run_id),
		  makespan = VALUES(makespan),
		  digest = VALUES(digest),
		  payload = VALUES(payload),
		  saved_at = VALUES(saved_at)`,
		next.Instance, next.RunID.String(), next.Makespan, next.Digest, []byte(next.Payload), next.SavedAt,
	)
	if err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	s.log.Info("best solution saved",
		zap.String("instance", instance),
		zap.String("run_id", runID.String()),
		zap.Int("makespan", next.Makespan),
	)
	return true, nil
}
