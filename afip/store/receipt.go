package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/afip-tools/go-afip-client/afip/model"
)

// CreateReceipt inserts a receipt together with its VAT, tax and entry
// children.
func (s *Store) CreateReceipt(ctx context.Context, r *model.Receipt) error {
	var number any
	if r.ReceiptNumber != nil {
		number = *r.ReceiptNumber
	}

	res, err := s.h().ExecContext(ctx,
		`INSERT INTO receipts (point_of_sales_id, receipt_type_code, concept, document_type_code, document_number,
		                       receipt_number, issued_date, total_amount, net_untaxed, net_taxed, exempt_amount,
		                       currency_code, currency_quote, service_start, service_end, expiration_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PointOfSalesID, r.ReceiptTypeCode, r.Concept, r.DocumentTypeCode, r.DocumentNumber,
		number, r.IssuedDate, r.TotalAmount.String(), r.NetUntaxed.String(), r.NetTaxed.String(),
		r.ExemptAmount.String(), r.CurrencyCode, r.CurrencyQuote.String(),
		nullTimePtr(r.ServiceStart), nullTimePtr(r.ServiceEnd), nullTimePtr(r.ExpirationDate),
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range r.Vat {
		v := &r.Vat[i]
		v.ReceiptID = r.ID
		res, err := s.h().ExecContext(ctx,
			`INSERT INTO vats (receipt_id, type_code, base_amount, amount) VALUES (?, ?, ?, ?)`,
			v.ReceiptID, v.TypeCode, v.BaseAmount.String(), v.Amount.String())
		if err != nil {
			return fmt.Errorf("insert vat: %w", err)
		}
		v.ID, _ = res.LastInsertId()
	}

	for i := range r.Taxes {
		t := &r.Taxes[i]
		t.ReceiptID = r.ID
		res, err := s.h().ExecContext(ctx,
			`INSERT INTO taxes (receipt_id, type_code, description, base_amount, aliquot, amount) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ReceiptID, t.TypeCode, t.Description, t.BaseAmount.String(), t.Aliquot.String(), t.Amount.String())
		if err != nil {
			return fmt.Errorf("insert tax: %w", err)
		}
		t.ID, _ = res.LastInsertId()
	}

	for i := range r.Entries {
		e := &r.Entries[i]
		e.ReceiptID = r.ID
		res, err := s.h().ExecContext(ctx,
			`INSERT INTO receipt_entries (receipt_id, description, quantity, unit_price, discount, vat_type_code)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ReceiptID, e.Description, e.Quantity.String(), e.UnitPrice.String(), e.Discount.String(), e.VatTypeCode)
		if err != nil {
			return fmt.Errorf("insert receipt entry: %w", err)
		}
		e.ID, _ = res.LastInsertId()
	}

	return nil
}

// RelateReceipts links a receipt to the receipt it refers to (e.g. a
// credit note to its invoice).
func (s *Store) RelateReceipts(ctx context.Context, receiptID, relatedID int64) error {
	_, err := s.h().ExecContext(ctx,
		`INSERT OR IGNORE INTO related_receipts (receipt_id, related_id) VALUES (?, ?)`,
		receiptID, relatedID)
	if err != nil {
		return fmt.Errorf("relate receipts: %w", err)
	}
	return nil
}

// GetReceipt loads a receipt with its children and the wire triples of
// its related receipts.
func (s *Store) GetReceipt(ctx context.Context, id int64) (*model.Receipt, error) {
	r := &model.Receipt{}
	var (
		number                           sql.NullInt64
		total, untaxed, taxed, exempt    string
		quote                            string
		serviceStart, serviceEnd, expiry sql.NullTime
	)

	err := s.h().QueryRowContext(ctx,
		`SELECT id, point_of_sales_id, receipt_type_code, concept, document_type_code, document_number,
		        receipt_number, issued_date, total_amount, net_untaxed, net_taxed, exempt_amount,
		        currency_code, currency_quote, service_start, service_end, expiration_date
		 FROM receipts WHERE id = ?`, id,
	).Scan(&r.ID, &r.PointOfSalesID, &r.ReceiptTypeCode, &r.Concept, &r.DocumentTypeCode, &r.DocumentNumber,
		&number, &r.IssuedDate, &total, &untaxed, &taxed, &exempt,
		&r.CurrencyCode, &quote, &serviceStart, &serviceEnd, &expiry)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan receipt: %w", err)
	}

	if number.Valid {
		n := number.Int64
		r.ReceiptNumber = &n
	}
	if r.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("receipt %d: total_amount: %w", id, err)
	}
	if r.NetUntaxed, err = decimal.NewFromString(untaxed); err != nil {
		return nil, fmt.Errorf("receipt %d: net_untaxed: %w", id, err)
	}
	if r.NetTaxed, err = decimal.NewFromString(taxed); err != nil {
		return nil, fmt.Errorf("receipt %d: net_taxed: %w", id, err)
	}
	if r.ExemptAmount, err = decimal.NewFromString(exempt); err != nil {
		return nil, fmt.Errorf("receipt %d: exempt_amount: %w", id, err)
	}
	if r.CurrencyQuote, err = decimal.NewFromString(quote); err != nil {
		return nil, fmt.Errorf("receipt %d: currency_quote: %w", id, err)
	}
	if serviceStart.Valid {
		r.ServiceStart = &serviceStart.Time
	}
	if serviceEnd.Valid {
		r.ServiceEnd = &serviceEnd.Time
	}
	if expiry.Valid {
		r.ExpirationDate = &expiry.Time
	}

	if err := s.loadReceiptChildren(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) loadReceiptChildren(ctx context.Context, r *model.Receipt) error {
	rows, err := s.h().QueryContext(ctx,
		`SELECT id, type_code, base_amount, amount FROM vats WHERE receipt_id = ? ORDER BY id`, r.ID)
	if err != nil {
		return fmt.Errorf("load vats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v model.Vat
		var base, amount string
		if err := rows.Scan(&v.ID, &v.TypeCode, &base, &amount); err != nil {
			return err
		}
		v.ReceiptID = r.ID
		if v.BaseAmount, err = decimal.NewFromString(base); err != nil {
			return err
		}
		if v.Amount, err = decimal.NewFromString(amount); err != nil {
			return err
		}
		r.Vat = append(r.Vat, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	taxRows, err := s.h().QueryContext(ctx,
		`SELECT id, type_code, description, base_amount, aliquot, amount FROM taxes WHERE receipt_id = ? ORDER BY id`, r.ID)
	if err != nil {
		return fmt.Errorf("load taxes: %w", err)
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var t model.Tax
		var desc sql.NullString
		var base, aliquot, amount string
		if err := taxRows.Scan(&t.ID, &t.TypeCode, &desc, &base, &aliquot, &amount); err != nil {
			return err
		}
		t.ReceiptID = r.ID
		t.Description = desc.String
		if t.BaseAmount, err = decimal.NewFromString(base); err != nil {
			return err
		}
		if t.Aliquot, err = decimal.NewFromString(aliquot); err != nil {
			return err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return err
		}
		r.Taxes = append(r.Taxes, t)
	}
	if err := taxRows.Err(); err != nil {
		return err
	}

	entryRows, err := s.h().QueryContext(ctx,
		`SELECT id, description, quantity, unit_price, discount, vat_type_code FROM receipt_entries WHERE receipt_id = ? ORDER BY id`, r.ID)
	if err != nil {
		return fmt.Errorf("load receipt entries: %w", err)
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var e model.ReceiptEntry
		var vatType sql.NullInt64
		var qty, price, discount string
		if err := entryRows.Scan(&e.ID, &e.Description, &qty, &price, &discount, &vatType); err != nil {
			return err
		}
		e.ReceiptID = r.ID
		e.VatTypeCode = int(vatType.Int64)
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return err
		}
		if e.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return err
		}
		if e.Discount, err = decimal.NewFromString(discount); err != nil {
			return err
		}
		r.Entries = append(r.Entries, e)
	}
	if err := entryRows.Err(); err != nil {
		return err
	}

	relRows, err := s.h().QueryContext(ctx,
		`SELECT rel.receipt_type_code, pos.number, rel.receipt_number
		 FROM related_receipts rr
		 JOIN receipts rel ON rel.id = rr.related_id
		 JOIN points_of_sales pos ON pos.id = rel.point_of_sales_id
		 WHERE rr.receipt_id = ? AND rel.receipt_number IS NOT NULL
		 ORDER BY rel.receipt_number`, r.ID)
	if err != nil {
		return fmt.Errorf("load related receipts: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var rel model.RelatedReceipt
		if err := relRows.Scan(&rel.ReceiptTypeCode, &rel.PointOfSalesNum, &rel.ReceiptNumber); err != nil {
			return err
		}
		r.RelatedReceipts = append(r.RelatedReceipts, rel)
	}
	return relRows.Err()
}

// ClaimReceiptNumber assigns number to the receipt if and only if it is
// still unnumbered. Returns false when another claimant got there first.
func (s *Store) ClaimReceiptNumber(ctx context.Context, receiptID, number int64) (bool, error) {
	res, err := s.h().ExecContext(ctx,
		`UPDATE receipts SET receipt_number = ? WHERE id = ? AND receipt_number IS NULL`,
		number, receiptID)
	if err != nil {
		return false, fmt.Errorf("claim receipt number: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseReceiptNumber frees a tentative number after a rejection so a
// retry can claim a fresh one.
func (s *Store) ReleaseReceiptNumber(ctx context.Context, receiptID int64) error {
	_, err := s.h().ExecContext(ctx,
		`UPDATE receipts SET receipt_number = NULL WHERE id = ?`, receiptID)
	if err != nil {
		return fmt.Errorf("release receipt number: %w", err)
	}
	return nil
}
