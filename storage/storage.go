// Package storage persists accounts, boards, tasks and share relations in
// PostgreSQL and provides the Redis-backed view cache.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"shareboard/core"
	"shareboard/domain"
)

// persistenceError marks a failed database operation as
// domain.ErrPersistenceFailure while keeping the driver error in the chain.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistenceFailure, err)
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same store code serves plain and transactional access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the persistence ports over one PostgreSQL database.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, persistenceError("open postgres", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, persistenceError("ping postgres", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS boards (
		id          BIGSERIAL PRIMARY KEY,
		owner_id    BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		UNIQUE (owner_id, title)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          BIGSERIAL PRIMARY KEY,
		board_id    BIGINT REFERENCES boards (id) ON DELETE SET NULL,
		author_id   BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		image       BYTEA,
		due         TIMESTAMPTZ,
		created     TIMESTAMPTZ NOT NULL,
		color       TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL,
		pos         INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_board_idx ON tasks (board_id)`,
	`CREATE INDEX IF NOT EXISTS tasks_author_idx ON tasks (author_id)`,
	`CREATE TABLE IF NOT EXISTS shares (
		task_id              BIGINT NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
		recipient_id         BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		destination_board_id BIGINT REFERENCES boards (id) ON DELETE SET NULL,
		pos                  INT NOT NULL DEFAULT 0,
		PRIMARY KEY (task_id, recipient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS shares_recipient_idx ON shares (recipient_id)`,
	`CREATE INDEX IF NOT EXISTS shares_destination_idx ON shares (destination_board_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return persistenceError("apply schema", err)
		}
	}
	return nil
}

// Ports returns non-transactional port implementations over the pool.
func (s *Store) Ports() core.Ports {
	return portsOver(s.db)
}

// InTransaction runs fn against ports bound to a single database transaction,
// committing on nil and rolling back on error or panic.
func (s *Store) InTransaction(ctx context.Context, fn func(p core.Ports) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError("begin transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err := fn(portsOver(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistenceError("commit transaction", err)
	}
	return nil
}

func portsOver(q querier) core.Ports {
	return core.Ports{
		Users:  userStore{q},
		Boards: boardStore{q},
		Tasks:  taskStore{q},
	}
}
