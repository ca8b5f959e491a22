// Package store persists the AFIP entities in SQLite. It is the only
// shared mutable resource in the system; the receipt-number claim uses a
// conditional update so two local processes can never claim the same row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "afip.store")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// dbtx is the intersection of *sql.DB and *sql.Tx the repositories use.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store gives access to every repository. A Store either wraps the plain
// connection or, inside WithTx, an open transaction; InTransaction lets
// callers with non-idempotent remote side effects refuse the latter.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. ":memory:" gives a private in-memory database, which tests
// use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single in-memory database exists per connection; more than one
	// open connection would shred it. On-disk databases gain nothing from
	// extra connections under SQLite's writer lock either.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.WithField("path", path).Debug("Database ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.tx != nil {
		return errors.New("store: close called on transactional store")
	}
	return s.db.Close()
}

// InTransaction reports whether this Store wraps an open transaction.
func (s *Store) InTransaction() bool {
	return s.tx != nil
}

// WithTx runs fn with a Store bound to a single transaction, committing
// on nil and rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx != nil {
		return errors.New("store: nested transactions are not supported")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Store{db: s.db, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) h() dbtx {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}
