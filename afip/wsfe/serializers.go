package wsfe

import (
	"fmt"
	"sort"

	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/util"
)

// Batch carries one FECAESolicitar request: a homogeneous run of
// receipts for a single point of sales and receipt type.
type Batch struct {
	Count        int
	PointOfSales int
	ReceiptType  int
	Details      []ReceiptDetail
}

// ReceiptDetail is a single FECAEDetRequest record. Amounts are
// pre-rendered as fixed two-decimal strings since the service rejects
// scientific notation and trailing precision.
type ReceiptDetail struct {
	Concept    int
	DocType    int
	DocNumber  uint64
	From       int64
	To         int64
	Date       string
	Total      string
	NetUntaxed string
	NetTaxed   string
	Exempt     string
	VatAmount  string
	TaxAmount  string

	// Only rendered when the receipt covers services (concept 2 or 3).
	ServiceFrom string
	ServiceTo   string
	PaymentDue  string

	Currency      string
	CurrencyQuote string

	RelatedReceipts []RelatedReceiptDTO
	Vat             []VatDTO
	Taxes           []TaxDTO
}

type RelatedReceiptDTO struct {
	Type         int
	PointOfSales int
	Number       int64
}

type VatDTO struct {
	ID         int
	BaseAmount string
	Amount     string
}

type TaxDTO struct {
	ID          int
	Description string
	BaseAmount  string
	Aliquot     string
	Amount      string
}

// NewBatch serializes a run of receipts into a request batch. Callers
// are responsible for the receipts being homogeneous and already
// numbered; details are emitted in ascending receipt-number order as
// the service requires.
func NewBatch(pointOfSales int, receipts []*model.Receipt) (*Batch, error) {
	if len(receipts) == 0 {
		return nil, fmt.Errorf("wsfe: empty batch")
	}
	for _, r := range receipts {
		if r.ReceiptNumber == nil {
			return nil, fmt.Errorf("wsfe: receipt %d has no number", r.ID)
		}
	}
	sorted := make([]*model.Receipt, len(receipts))
	copy(sorted, receipts)
	sort.Slice(sorted, func(i, j int) bool {
		return *sorted[i].ReceiptNumber < *sorted[j].ReceiptNumber
	})

	b := &Batch{
		Count:        len(sorted),
		PointOfSales: pointOfSales,
		ReceiptType:  sorted[0].ReceiptTypeCode,
	}
	for _, r := range sorted {
		d, err := newReceiptDetail(r)
		if err != nil {
			return nil, err
		}
		b.Details = append(b.Details, *d)
	}
	return b, nil
}

func newReceiptDetail(r *model.Receipt) (*ReceiptDetail, error) {
	if r.ReceiptNumber == nil {
		return nil, fmt.Errorf("wsfe: receipt %d has no number", r.ID)
	}
	d := &ReceiptDetail{
		Concept:       int(r.Concept),
		DocType:       r.DocumentTypeCode,
		DocNumber:     r.DocumentNumber,
		From:          *r.ReceiptNumber,
		To:            *r.ReceiptNumber,
		Date:          util.FormatDate(r.IssuedDate),
		Total:         r.TotalAmount.StringFixed(2),
		NetUntaxed:    r.NetUntaxed.StringFixed(2),
		NetTaxed:      r.NetTaxed.StringFixed(2),
		Exempt:        r.ExemptAmount.StringFixed(2),
		VatAmount:     r.VatTotal().StringFixed(2),
		TaxAmount:     r.TaxTotal().StringFixed(2),
		Currency:      r.CurrencyCode,
		CurrencyQuote: r.CurrencyQuote.String(),
	}
	if r.HasServices() {
		if r.ServiceStart == nil || r.ServiceEnd == nil || r.ExpirationDate == nil {
			return nil, fmt.Errorf("wsfe: receipt %d covers services but is missing service dates", r.ID)
		}
		d.ServiceFrom = util.FormatDate(*r.ServiceStart)
		d.ServiceTo = util.FormatDate(*r.ServiceEnd)
		d.PaymentDue = util.FormatDate(*r.ExpirationDate)
	}
	for _, rel := range r.RelatedReceipts {
		d.RelatedReceipts = append(d.RelatedReceipts, RelatedReceiptDTO{
			Type:         rel.ReceiptTypeCode,
			PointOfSales: rel.PointOfSalesNum,
			Number:       rel.ReceiptNumber,
		})
	}
	for _, v := range r.Vat {
		d.Vat = append(d.Vat, VatDTO{
			ID:         v.TypeCode,
			BaseAmount: v.BaseAmount.StringFixed(2),
			Amount:     v.Amount.StringFixed(2),
		})
	}
	for _, t := range r.Taxes {
		d.Taxes = append(d.Taxes, TaxDTO{
			ID:          t.TypeCode,
			Description: t.Description,
			BaseAmount:  t.BaseAmount.StringFixed(2),
			Aliquot:     t.Aliquot.StringFixed(2),
			Amount:      t.Amount.StringFixed(2),
		})
	}
	return d, nil
}
