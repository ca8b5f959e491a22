package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/afip-tools/go-afip-client/afip/model"
)

// CreateValidation records one submission round-trip.
func (s *Store) CreateValidation(ctx context.Context, v *model.Validation) error {
	res, err := s.h().ExecContext(ctx,
		`INSERT INTO validations (batch_id, processed_date, result) VALUES (?, ?, ?)`,
		v.BatchID, v.ProcessedDate, v.Result)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	v.ID, err = res.LastInsertId()
	return err
}

// CreateReceiptValidation records an approval, attaching the remote
// observations. Observations are deduplicated by (code, message): an
// existing row is linked, a missing one created.
func (s *Store) CreateReceiptValidation(ctx context.Context, rv *model.ReceiptValidation) error {
	res, err := s.h().ExecContext(ctx,
		`INSERT INTO receipt_validations (validation_id, receipt_id, result, cae, cae_expiration)
		 VALUES (?, ?, ?, ?, ?)`,
		rv.ValidationID, rv.ReceiptID, rv.Result, rv.CAE, rv.CAEExpiration)
	if err != nil {
		return fmt.Errorf("insert receipt validation: %w", err)
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range rv.Observations {
		obs := &rv.Observations[i]
		if err := s.getOrCreateObservation(ctx, obs); err != nil {
			return err
		}
		if _, err := s.h().ExecContext(ctx,
			`INSERT OR IGNORE INTO receipt_validation_observations (receipt_validation_id, observation_id) VALUES (?, ?)`,
			rv.ID, obs.ID); err != nil {
			return fmt.Errorf("link observation: %w", err)
		}
	}
	return nil
}

func (s *Store) getOrCreateObservation(ctx context.Context, obs *model.Observation) error {
	err := s.h().QueryRowContext(ctx,
		`SELECT id FROM observations WHERE code = ? AND message = ?`,
		obs.Code, obs.Message).Scan(&obs.ID)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("look up observation: %w", err)
	}

	res, err := s.h().ExecContext(ctx,
		`INSERT INTO observations (code, message) VALUES (?, ?)`, obs.Code, obs.Message)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	obs.ID, err = res.LastInsertId()
	return err
}

// GetReceiptValidation returns the approval for a receipt, or ErrNotFound
// if AFIP never approved it (or the local row was lost).
func (s *Store) GetReceiptValidation(ctx context.Context, receiptID int64) (*model.ReceiptValidation, error) {
	rv := &model.ReceiptValidation{}
	err := s.h().QueryRowContext(ctx,
		`SELECT id, validation_id, receipt_id, result, cae, cae_expiration
		 FROM receipt_validations WHERE receipt_id = ?`, receiptID,
	).Scan(&rv.ID, &rv.ValidationID, &rv.ReceiptID, &rv.Result, &rv.CAE, &rv.CAEExpiration)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan receipt validation: %w", err)
	}

	rows, err := s.h().QueryContext(ctx,
		`SELECT o.id, o.code, o.message
		 FROM observations o
		 JOIN receipt_validation_observations rvo ON rvo.observation_id = o.id
		 WHERE rvo.receipt_validation_id = ?
		 ORDER BY o.code`, rv.ID)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var obs model.Observation
		if err := rows.Scan(&obs.ID, &obs.Code, &obs.Message); err != nil {
			return nil, err
		}
		rv.Observations = append(rv.Observations, obs)
	}
	return rv, rows.Err()
}

// HasValidation reports whether a receipt already has an approval.
func (s *Store) HasValidation(ctx context.Context, receiptID int64) (bool, error) {
	var one int
	err := s.h().QueryRowContext(ctx,
		`SELECT 1 FROM receipt_validations WHERE receipt_id = ?`, receiptID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check validation: %w", err)
	}
	return true, nil
}

// CountReceiptValidations is a test and reporting helper.
func (s *Store) CountReceiptValidations(ctx context.Context) (int, error) {
	var n int
	err := s.h().QueryRowContext(ctx, `SELECT COUNT(*) FROM receipt_validations`).Scan(&n)
	return n, err
}
