// Package pdf renders authorized receipts as printable A4 documents with
// the fiscal QR code mandated by RG 4892/2020. Only approved receipts can
// be rendered; the CAE and its expiration come from the stored validation.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
)

var logger = logrus.WithField("component", "afip.pdf")

// ReceiptView is the read model a printable receipt is rendered from: the
// receipt, its owner chain and its validation, loaded together.
type ReceiptView struct {
	Receipt      *model.Receipt
	PointOfSales *model.PointOfSales
	TaxPayer     *model.TaxPayer
	Validation   *model.ReceiptValidation
}

// Number renders the receipt's printable "NNNN-NNNNNNNN" number.
func (v *ReceiptView) Number() string {
	return model.FormatNumber(v.PointOfSales.Number, v.Receipt.ReceiptNumber)
}

// Generator loads receipt views and renders them to PDF.
type Generator struct {
	store *store.Store
}

func NewGenerator(st *store.Store) *Generator {
	return &Generator{store: st}
}

// View assembles the full read model for one receipt. Fails for receipts
// that were never approved: an unauthorized receipt has no CAE and must
// not be printable.
func (g *Generator) View(ctx context.Context, receiptID int64) (*ReceiptView, error) {
	r, err := g.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	pos, err := g.store.GetPointOfSales(ctx, r.PointOfSalesID)
	if err != nil {
		return nil, err
	}
	tp, err := g.store.GetTaxPayer(ctx, pos.TaxPayerID)
	if err != nil {
		return nil, err
	}
	rv, err := g.store.GetReceiptValidation(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("receipt %d is not authorized: %w", receiptID, err)
	}
	return &ReceiptView{Receipt: r, PointOfSales: pos, TaxPayer: tp, Validation: rv}, nil
}

// Render writes the receipt as an A4 PDF.
func (g *Generator) Render(ctx context.Context, receiptID int64, w io.Writer) error {
	v, err := g.View(ctx, receiptID)
	if err != nil {
		return err
	}
	return renderView(v, w)
}

func renderView(v *ReceiptView, w io.Writer) error {
	qrPNG, err := v.QRCodePNG(512)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// Issuer header
	pdf.SetFont("Helvetica", "B", 16)
	name := v.PointOfSales.IssuingName
	if name == "" {
		name = v.TaxPayer.Name
	}
	pdf.CellFormat(contentW, 9, name, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if v.PointOfSales.IssuingAddress != "" {
		pdf.CellFormat(contentW, 5, v.PointOfSales.IssuingAddress, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, fmt.Sprintf("CUIT: %d", v.TaxPayer.CUIT), "", 1, "L", false, 0, "")
	if v.PointOfSales.VatCondition != "" {
		pdf.CellFormat(contentW, 5, v.PointOfSales.VatCondition, "", 1, "L", false, 0, "")
	}
	if v.PointOfSales.GrossIncome != "" {
		pdf.CellFormat(contentW, 5, "IIBB: "+v.PointOfSales.GrossIncome, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// Receipt identity
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW/2, 6,
		fmt.Sprintf("Comprobante tipo %d", v.Receipt.ReceiptTypeCode), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "N° "+v.Number(), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Fecha: "+v.Receipt.IssuedDate.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5,
		fmt.Sprintf("Doc. receptor: %d-%d", v.Receipt.DocumentTypeCode, v.Receipt.DocumentNumber),
		"", 1, "L", false, 0, "")
	if v.Receipt.HasServices() && v.Receipt.ServiceStart != nil && v.Receipt.ServiceEnd != nil {
		pdf.CellFormat(contentW, 5,
			fmt.Sprintf("Período: %s al %s",
				v.Receipt.ServiceStart.Format("02/01/2006"),
				v.Receipt.ServiceEnd.Format("02/01/2006")),
			"", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// Line items
	col1 := contentW * 0.46
	col2 := contentW * 0.14
	col3 := contentW * 0.20
	col4 := contentW * 0.20

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Descripción", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cantidad", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "P. unitario", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Importe", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, e := range v.Receipt.Entries {
		pdf.CellFormat(col1, 6, e.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, e.Quantity.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "$"+e.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+e.TotalPrice().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// Totals
	pdf.SetFont("Helvetica", "", 9)
	if !v.Receipt.VatTotal().IsZero() {
		pdf.CellFormat(col1+col2+col3, 5, "IVA:", "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+v.Receipt.VatTotal().StringFixed(2), "", 1, "R", false, 0, "")
	}
	if !v.Receipt.TaxTotal().IsZero() {
		pdf.CellFormat(col1+col2+col3, 5, "Otros tributos:", "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+v.Receipt.TaxTotal().StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 7, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 7, "$"+v.Receipt.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// CAE block with fiscal QR
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("fiscal-qr", opts, bytes.NewReader(qrPNG))
	qrY := pdf.GetY()
	pdf.ImageOptions("fiscal-qr", 15, qrY, 30, 30, false, opts, 0, "")

	pdf.SetXY(50, qrY+6)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(60, 5, "CAE: "+v.Validation.CAE, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(60, 5, "Vto. CAE: "+v.Validation.CAEExpiration.Format("02/01/2006"), "", 2, "L", false, 0, "")

	if v.PointOfSales.SalesTerms != "" {
		pdf.SetXY(15, qrY+34)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, v.PointOfSales.SalesTerms, "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write document: %w", err)
	}
	logger.WithField("receipt_id", v.Receipt.ID).Debug("receipt PDF rendered")
	return nil
}
