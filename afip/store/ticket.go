package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/afip-tools/go-afip-client/afip/model"
)

// SaveTicket persists a freshly issued ticket. Tickets are never updated
// afterwards.
func (s *Store) SaveTicket(ctx context.Context, t *model.AuthTicket) error {
	res, err := s.h().ExecContext(ctx,
		`INSERT INTO auth_tickets (taxpayer_id, service, unique_id, generated, expires, token, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TaxPayerID, t.Service, t.UniqueID, t.Generated, t.Expires, t.Token, t.Signature,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

// LatestTicket returns the most recent unexpired ticket for the exact
// (taxpayer, service) pair, or ErrNotFound.
func (s *Store) LatestTicket(ctx context.Context, taxpayerID int64, service string, now time.Time) (*model.AuthTicket, error) {
	return s.scanTicket(s.h().QueryRowContext(ctx,
		`SELECT id, taxpayer_id, service, unique_id, generated, expires, token, signature
		 FROM auth_tickets
		 WHERE taxpayer_id = ? AND service = ? AND expires > ?
		 ORDER BY expires DESC LIMIT 1`,
		taxpayerID, service, now))
}

// AnyActiveTicket returns an unexpired ticket for the service regardless
// of owner, or ErrNotFound.
func (s *Store) AnyActiveTicket(ctx context.Context, service string, now time.Time) (*model.AuthTicket, error) {
	return s.scanTicket(s.h().QueryRowContext(ctx,
		`SELECT id, taxpayer_id, service, unique_id, generated, expires, token, signature
		 FROM auth_tickets
		 WHERE service = ? AND expires > ?
		 ORDER BY expires DESC LIMIT 1`,
		service, now))
}

// DeleteExpiredTickets sweeps tickets whose expiry has passed and returns
// how many were removed. Expiry itself is never enforced elsewhere; this
// is the caller-driven garbage collection.
func (s *Store) DeleteExpiredTickets(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.h().ExecContext(ctx, `DELETE FROM auth_tickets WHERE expires <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tickets: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) scanTicket(row *sql.Row) (*model.AuthTicket, error) {
	t := &model.AuthTicket{}
	err := row.Scan(&t.ID, &t.TaxPayerID, &t.Service, &t.UniqueID, &t.Generated, &t.Expires, &t.Token, &t.Signature)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	return t, nil
}
