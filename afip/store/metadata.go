package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/afip-tools/go-afip-client/afip/model"
)

// UpsertGenericType inserts or refreshes one lookup row, keyed by
// (kind, code). The dimension is append-only: codes are never removed,
// only their description and validity window move.
func (s *Store) UpsertGenericType(ctx context.Context, gt *model.GenericType) error {
	res, err := s.h().ExecContext(ctx,
		`INSERT INTO afip_types (kind, code, description, valid_from, valid_to)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(kind, code) DO UPDATE SET
		   description = excluded.description,
		   valid_from = excluded.valid_from,
		   valid_to = excluded.valid_to`,
		gt.Kind, gt.Code, gt.Description, nullTimePtr(gt.ValidFrom), nullTimePtr(gt.ValidTo))
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", gt.Kind, gt.Code, err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		gt.ID = id
	}
	return nil
}

// GenericTypes lists one dimension ordered by code.
func (s *Store) GenericTypes(ctx context.Context, kind model.MetadataKind) ([]model.GenericType, error) {
	rows, err := s.h().QueryContext(ctx,
		`SELECT id, kind, code, description, valid_from, valid_to
		 FROM afip_types WHERE kind = ? ORDER BY CAST(code AS INTEGER), code`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []model.GenericType
	for rows.Next() {
		var gt model.GenericType
		var from, to sql.NullTime
		if err := rows.Scan(&gt.ID, &gt.Kind, &gt.Code, &gt.Description, &from, &to); err != nil {
			return nil, err
		}
		if from.Valid {
			gt.ValidFrom = &from.Time
		}
		if to.Valid {
			gt.ValidTo = &to.Time
		}
		out = append(out, gt)
	}
	return out, rows.Err()
}

// GenericType fetches one lookup row by kind and code.
func (s *Store) GenericType(ctx context.Context, kind model.MetadataKind, code string) (*model.GenericType, error) {
	var gt model.GenericType
	var from, to sql.NullTime
	err := s.h().QueryRowContext(ctx,
		`SELECT id, kind, code, description, valid_from, valid_to
		 FROM afip_types WHERE kind = ? AND code = ?`, kind, code,
	).Scan(&gt.ID, &gt.Kind, &gt.Code, &gt.Description, &from, &to)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, code, err)
	}
	if from.Valid {
		gt.ValidFrom = &from.Time
	}
	if to.Valid {
		gt.ValidTo = &to.Time
	}
	return &gt, nil
}
