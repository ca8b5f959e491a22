package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
)

func approvedReceiptFixtures(t *testing.T) (*store.Store, int64) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tp := &model.TaxPayer{Name: "John Smith", CUIT: afip.CUIT(20329642330), Sandbox: true}
	require.NoError(t, st.SaveTaxPayer(ctx, tp))
	pos := &model.PointOfSales{
		Number: 1, TaxPayerID: tp.ID,
		IssuingName: "John Smith", IssuingAddress: "Av. Corrientes 1234",
		VatCondition: "Responsable Monotributo", SalesTerms: "Contado",
	}
	require.NoError(t, st.CreatePointOfSales(ctx, pos))

	r := &model.Receipt{
		PointOfSalesID:   pos.ID,
		ReceiptTypeCode:  6,
		Concept:          model.ConceptProducts,
		DocumentTypeCode: 96,
		DocumentNumber:   203012345,
		IssuedDate:       time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		TotalAmount:      decimal.RequireFromString("121.00"),
		NetTaxed:         decimal.RequireFromString("100.00"),
		CurrencyCode:     "PES",
		CurrencyQuote:    decimal.NewFromInt(1),
		Vat: []model.Vat{
			{TypeCode: 5, BaseAmount: decimal.RequireFromString("100.00"), Amount: decimal.RequireFromString("21.00")},
		},
		Entries: []model.ReceiptEntry{
			{Description: "Socks", Quantity: decimal.NewFromInt(2),
				UnitPrice: decimal.RequireFromString("60.50"), Discount: decimal.Zero, VatTypeCode: 5},
		},
	}
	require.NoError(t, st.CreateReceipt(ctx, r))
	ok, err := st.ClaimReceiptNumber(ctx, r.ID, 382)
	require.NoError(t, err)
	require.True(t, ok)

	v := &model.Validation{BatchID: "batch", ProcessedDate: time.Now(), Result: model.ResultApproved}
	require.NoError(t, st.CreateValidation(ctx, v))
	require.NoError(t, st.CreateReceiptValidation(ctx, &model.ReceiptValidation{
		ValidationID: v.ID, ReceiptID: r.ID, Result: model.ResultApproved,
		CAE:           "70417054367476",
		CAEExpiration: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	}))

	return st, r.ID
}

func TestViewNumber(t *testing.T) {
	st, id := approvedReceiptFixtures(t)
	g := NewGenerator(st)

	v, err := g.View(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "0001-00000382", v.Number())
	assert.Equal(t, "70417054367476", v.Validation.CAE)
}

func TestViewRejectsUnvalidatedReceipt(t *testing.T) {
	st, _ := approvedReceiptFixtures(t)
	ctx := context.Background()

	r := &model.Receipt{
		PointOfSalesID: 1, ReceiptTypeCode: 6, Concept: model.ConceptProducts,
		DocumentTypeCode: 96, DocumentNumber: 1,
		IssuedDate:  time.Now(),
		TotalAmount: decimal.Zero, CurrencyCode: "PES", CurrencyQuote: decimal.NewFromInt(1),
	}
	require.NoError(t, st.CreateReceipt(ctx, r))

	_, err := NewGenerator(st).View(ctx, r.ID)
	assert.Error(t, err)
}

func TestQRCodeURL(t *testing.T) {
	st, id := approvedReceiptFixtures(t)
	v, err := NewGenerator(st).View(context.Background(), id)
	require.NoError(t, err)

	url, err := v.QRCodeURL()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://www.afip.gob.ar/fe/qr/?p="))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "https://www.afip.gob.ar/fe/qr/?p="))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	assert.EqualValues(t, 1, payload["ver"])
	assert.Equal(t, "2026-08-20", payload["fecha"])
	assert.EqualValues(t, 20329642330, payload["cuit"])
	assert.EqualValues(t, 1, payload["ptoVta"])
	assert.EqualValues(t, 6, payload["tipoCmp"])
	assert.EqualValues(t, 382, payload["nroCmp"])
	assert.EqualValues(t, 121.0, payload["importe"])
	assert.Equal(t, "PES", payload["moneda"])
	assert.EqualValues(t, 96, payload["tipoDocRec"])
	assert.EqualValues(t, 203012345, payload["nroDocRec"])
	assert.Equal(t, "E", payload["tipoCodAut"])
	assert.EqualValues(t, 70417054367476, payload["codAut"])
}

func TestQRCodePNG(t *testing.T) {
	st, id := approvedReceiptFixtures(t)
	v, err := NewGenerator(st).View(context.Background(), id)
	require.NoError(t, err)

	png, err := v.QRCodePNG(256)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestRenderProducesPDF(t *testing.T) {
	st, id := approvedReceiptFixtures(t)

	var buf bytes.Buffer
	require.NoError(t, NewGenerator(st).Render(context.Background(), id, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Greater(t, buf.Len(), 1000)
}
