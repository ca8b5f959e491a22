package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/crypto"
	"github.com/afip-tools/go-afip-client/afip/model"
)

// SaveTaxPayer inserts or updates a taxpayer. Whenever a certificate blob
// is present its expiration is recomputed from the PEM, so the stored
// date can never drift from the actual certificate.
func (s *Store) SaveTaxPayer(ctx context.Context, tp *model.TaxPayer) error {
	if !tp.CUIT.Valid() {
		return fmt.Errorf("store: taxpayer %q: invalid CUIT %s", tp.Name, tp.CUIT)
	}

	if len(tp.CertificatePEM) > 0 {
		expires, err := crypto.CertificateExpiration(tp.CertificatePEM)
		if err != nil {
			return err
		}
		tp.CertificateExpires = expires
	}

	if tp.ActiveSince.IsZero() {
		tp.ActiveSince = time.Now()
	}

	if tp.ID == 0 {
		res, err := s.h().ExecContext(ctx,
			`INSERT INTO taxpayers (name, cuit, sandbox, key_pem, certificate_pem, certificate_expires, active_since)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tp.Name, uint64(tp.CUIT), tp.Sandbox, tp.KeyPEM, tp.CertificatePEM, nullTime(tp.CertificateExpires), tp.ActiveSince,
		)
		if err != nil {
			return fmt.Errorf("insert taxpayer: %w", err)
		}
		tp.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.h().ExecContext(ctx,
		`UPDATE taxpayers SET name = ?, cuit = ?, sandbox = ?, key_pem = ?, certificate_pem = ?, certificate_expires = ?, active_since = ?
		 WHERE id = ?`,
		tp.Name, uint64(tp.CUIT), tp.Sandbox, tp.KeyPEM, tp.CertificatePEM, nullTime(tp.CertificateExpires), tp.ActiveSince, tp.ID,
	)
	if err != nil {
		return fmt.Errorf("update taxpayer: %w", err)
	}
	return nil
}

// GetTaxPayer fetches a taxpayer by id.
func (s *Store) GetTaxPayer(ctx context.Context, id int64) (*model.TaxPayer, error) {
	return s.scanTaxPayer(s.h().QueryRowContext(ctx,
		`SELECT id, name, cuit, sandbox, key_pem, certificate_pem, certificate_expires, active_since
		 FROM taxpayers WHERE id = ?`, id))
}

// FirstTaxPayer returns the oldest registered taxpayer, or ErrNotFound
// when none exist. Used by ticket acquisition when no specific taxpayer is
// known.
func (s *Store) FirstTaxPayer(ctx context.Context) (*model.TaxPayer, error) {
	return s.scanTaxPayer(s.h().QueryRowContext(ctx,
		`SELECT id, name, cuit, sandbox, key_pem, certificate_pem, certificate_expires, active_since
		 FROM taxpayers ORDER BY id LIMIT 1`))
}

func (s *Store) scanTaxPayer(row *sql.Row) (*model.TaxPayer, error) {
	tp := &model.TaxPayer{}
	var cuit uint64
	var certExpires sql.NullTime

	err := row.Scan(&tp.ID, &tp.Name, &cuit, &tp.Sandbox, &tp.KeyPEM, &tp.CertificatePEM, &certExpires, &tp.ActiveSince)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan taxpayer: %w", err)
	}

	tp.CUIT = afip.CUIT(cuit)
	if certExpires.Valid {
		tp.CertificateExpires = certExpires.Time
	}
	return tp, nil
}

// CreatePointOfSales registers a sales point under a taxpayer.
func (s *Store) CreatePointOfSales(ctx context.Context, pos *model.PointOfSales) error {
	res, err := s.h().ExecContext(ctx,
		`INSERT INTO points_of_sales (number, taxpayer_id, issuing_name, issuing_address, vat_condition, gross_income, sales_terms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pos.Number, pos.TaxPayerID, pos.IssuingName, pos.IssuingAddress, pos.VatCondition, pos.GrossIncome, pos.SalesTerms,
	)
	if err != nil {
		return fmt.Errorf("insert point of sales: %w", err)
	}
	pos.ID, err = res.LastInsertId()
	return err
}

// GetPointOfSales fetches a sales point by id.
func (s *Store) GetPointOfSales(ctx context.Context, id int64) (*model.PointOfSales, error) {
	pos := &model.PointOfSales{}
	var issuingName, issuingAddress, vatCondition, grossIncome, salesTerms sql.NullString

	err := s.h().QueryRowContext(ctx,
		`SELECT id, number, taxpayer_id, issuing_name, issuing_address, vat_condition, gross_income, sales_terms
		 FROM points_of_sales WHERE id = ?`, id,
	).Scan(&pos.ID, &pos.Number, &pos.TaxPayerID, &issuingName, &issuingAddress, &vatCondition, &grossIncome, &salesTerms)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan point of sales: %w", err)
	}

	pos.IssuingName = issuingName.String
	pos.IssuingAddress = issuingAddress.String
	pos.VatCondition = vatCondition.String
	pos.GrossIncome = grossIncome.String
	pos.SalesTerms = salesTerms.String
	return pos, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
