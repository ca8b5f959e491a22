package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Concept codes. Anything above products involves a service period, so
// the serializer must ship the service date range.
const (
	ConceptProducts            = 1
	ConceptServices            = 2
	ConceptProductsAndServices = 3
)

// Receipt is the central entity. Before authorization ReceiptNumber is
// nil; once authorized, (PointOfSalesID, ReceiptTypeCode, *ReceiptNumber)
// is globally unique and never reassigned.
type Receipt struct {
	ID int64

	PointOfSalesID  int64
	ReceiptTypeCode int
	Concept         int

	DocumentTypeCode int
	DocumentNumber   uint64

	ReceiptNumber *int64
	IssuedDate    time.Time

	TotalAmount decimal.Decimal
	// NetUntaxed is the portion outside the VAT regime (ImpTotConc).
	NetUntaxed decimal.Decimal
	// NetTaxed is the VAT base (ImpNeto).
	NetTaxed decimal.Decimal
	// ExemptAmount is VAT-exempt (ImpOpEx).
	ExemptAmount decimal.Decimal

	CurrencyCode  string
	CurrencyQuote decimal.Decimal

	// Service period, required when Concept involves services. Expiration
	// is the payment due date (FchVtoPago).
	ServiceStart   *time.Time
	ServiceEnd     *time.Time
	ExpirationDate *time.Time

	// RelatedReceipts references originating receipts, e.g. the invoice a
	// credit note corrects.
	RelatedReceipts []RelatedReceipt

	Vat     []Vat
	Taxes   []Tax
	Entries []ReceiptEntry
}

// RelatedReceipt identifies an already-authorized receipt by its wire
// triple.
type RelatedReceipt struct {
	ReceiptTypeCode int
	PointOfSalesNum int
	ReceiptNumber   int64
}

// HasServices reports whether the concept requires service dates.
func (r *Receipt) HasServices() bool {
	return r.Concept >= ConceptServices
}

// VatTotal sums the receipt's VAT lines.
func (r *Receipt) VatTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Vat {
		total = total.Add(v.Amount)
	}
	return total
}

// TaxTotal sums the receipt's non-VAT tax lines.
func (r *Receipt) TaxTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// CheckTotals verifies that
// total = untaxed + taxed + exempt + sum(vat) + sum(taxes).
func (r *Receipt) CheckTotals() error {
	sum := r.NetUntaxed.Add(r.NetTaxed).Add(r.ExemptAmount).Add(r.VatTotal()).Add(r.TaxTotal())
	if !sum.Equal(r.TotalAmount) {
		return fmt.Errorf("receipt totals do not reconcile: %s declared, %s computed", r.TotalAmount, sum)
	}
	return nil
}

// FormatNumber renders "NNNN-NNNNNNNN" for printable documents. Returns
// the empty string for unnumbered receipts.
func FormatNumber(pointOfSales int, receiptNumber *int64) string {
	if receiptNumber == nil {
		return ""
	}
	return fmt.Sprintf("%04d-%08d", pointOfSales, *receiptNumber)
}

// Vat is one VAT line: a rate type applied over a base amount.
type Vat struct {
	ID         int64
	ReceiptID  int64
	TypeCode   int
	BaseAmount decimal.Decimal
	Amount     decimal.Decimal
}

// Tax is one non-VAT tax line.
type Tax struct {
	ID          int64
	ReceiptID   int64
	TypeCode    int
	Description string
	BaseAmount  decimal.Decimal
	Aliquot     decimal.Decimal
	Amount      decimal.Decimal
}

// ComputeAmount returns base * aliquot / 100 for taxes given as a rate.
func (t *Tax) ComputeAmount() decimal.Decimal {
	return t.BaseAmount.Mul(t.Aliquot).Div(decimal.NewFromInt(100)).Round(2)
}

// ReceiptEntry is a printable line item. Presentation only; never sent to
// AFIP.
type ReceiptEntry struct {
	ID          int64
	ReceiptID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	VatTypeCode int
}

// TotalPrice is quantity * unit price - discount.
func (e *ReceiptEntry) TotalPrice() decimal.Decimal {
	return e.Quantity.Mul(e.UnitPrice).Sub(e.Discount)
}

// Batch-level and per-receipt validation results use AFIP's single-letter
// codes.
const (
	ResultApproved = "A"
	ResultRejected = "R"
	ResultPartial  = "P"
)

// Validation models one submission round-trip against WSFE.
type Validation struct {
	ID            int64
	BatchID       string
	ProcessedDate time.Time
	Result        string
}

// ReceiptValidation is the per-receipt outcome. A row exists if and only
// if AFIP approved the receipt; its number was honored remotely.
type ReceiptValidation struct {
	ID           int64
	ValidationID int64
	ReceiptID    int64
	Result       string

	CAE           string
	CAEExpiration time.Time

	Observations []Observation
}

// Observation is a remote-issued (code, message) pair, deduplicated and
// possibly shared across many validations.
type Observation struct {
	ID      int64
	Code    int
	Message string
}
