package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lib/pq"

	"dor/internal/repository"
	"dor/pkg/platform/sentinel"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS objects (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		body       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE objects ADD COLUMN IF NOT EXISTS revision BIGINT NOT NULL DEFAULT 0`,
	`ALTER TABLE objects ADD COLUMN IF NOT EXISTS source_id TEXT`,
	`CREATE UNIQUE INDEX IF NOT EXISTS objects_source_id_key ON objects (source_id)`,
}

// PostgresStore persists objects as JSONB rows in the objects table. The
// revision and source_id columns mirror the body for compare-and-swap and
// uniqueness.
type PostgresStore struct {
	db      *sql.DB
	metrics *Metrics
}

type PostgresOption func(*PostgresStore)

func WithPostgresMetrics(m *Metrics) PostgresOption {
	return func(s *PostgresStore) {
		s.metrics = m
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates or upgrades the objects table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate objects table: %w", classifyPostgres(err))
		}
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, id string) (repository.Object, error) {
	start := time.Now()
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM objects WHERE id = $1`, id).Scan(&body)
	s.metrics.ObserveOperation(backendPostgres, "find", start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("object %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find object %s: %w", id, classifyPostgres(err))
	}
	return repository.Decode(body)
}

func (s *PostgresStore) Save(ctx context.Context, obj repository.Object) error {
	st, err := stage(obj)
	if err != nil {
		return err
	}

	start := time.Now()
	var res sql.Result
	if st.prev == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO objects (id, kind, body, revision, source_id, updated_at)
			VALUES ($1, $2, $3, 1, NULLIF($4, ''), now())
			ON CONFLICT (id) DO NOTHING`,
			st.id, string(obj.Kind()), st.data, st.sourceID)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE objects
			SET kind = $2, body = $3, revision = revision + 1, source_id = NULLIF($4, ''), updated_at = now()
			WHERE id = $1 AND revision = $5`,
			st.id, string(obj.Kind()), st.data, st.sourceID, st.prev)
	}
	s.metrics.ObserveOperation(backendPostgres, "save", start)
	if err != nil {
		st.rollback()
		if isUniqueViolation(err) && st.sourceID != "" {
			return &repository.DuplicateSourceIDError{SourceID: st.sourceID, ExistingID: s.sourceOwner(ctx, st.sourceID)}
		}
		return fmt.Errorf("save object %s: %w", st.id, classifyPostgres(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		st.rollback()
		return revisionConflict(st.id, st.prev, s.storedRevision(ctx, st.id))
	}
	return nil
}

// sourceOwner is best effort; it only enriches the conflict error.
func (s *PostgresStore) sourceOwner(ctx context.Context, sourceID string) string {
	var id string
	_ = s.db.QueryRowContext(ctx, `SELECT id FROM objects WHERE source_id = $1`, sourceID).Scan(&id)
	return id
}

func (s *PostgresStore) storedRevision(ctx context.Context, id string) int64 {
	var rev int64
	_ = s.db.QueryRowContext(ctx, `SELECT revision FROM objects WHERE id = $1`, id).Scan(&rev)
	return rev
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// classifyPostgres marks errors that mean the database could not be used at
// all as sentinel.ErrUnavailable. Errors the server answered with (bad SQL,
// constraint failures) stay as they are.
func classifyPostgres(err error) error {
	var (
		pqErr  *pq.Error
		netErr net.Error
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &pqErr):
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return err
	case errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	default:
		return err
	}
}
