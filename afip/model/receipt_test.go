package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckTotals(t *testing.T) {
	r := &Receipt{
		TotalAmount:  dec("121.00"),
		NetTaxed:     dec("100.00"),
		NetUntaxed:   dec("0"),
		ExemptAmount: dec("0"),
		Vat: []Vat{
			{TypeCode: 5, BaseAmount: dec("100.00"), Amount: dec("21.00")},
		},
	}
	require.NoError(t, r.CheckTotals())

	r.TotalAmount = dec("120.00")
	assert.Error(t, r.CheckTotals())
}

func TestCheckTotalsWithTaxes(t *testing.T) {
	r := &Receipt{
		TotalAmount:  dec("130.00"),
		NetTaxed:     dec("100.00"),
		NetUntaxed:   dec("0"),
		ExemptAmount: dec("0"),
		Vat: []Vat{
			{TypeCode: 5, BaseAmount: dec("100.00"), Amount: dec("21.00")},
		},
		Taxes: []Tax{
			{TypeCode: 3, BaseAmount: dec("100.00"), Aliquot: dec("9.00"), Amount: dec("9.00")},
		},
	}
	assert.NoError(t, r.CheckTotals())
}

func TestTaxComputeAmount(t *testing.T) {
	tax := &Tax{BaseAmount: dec("100.00"), Aliquot: dec("9")}
	assert.True(t, tax.ComputeAmount().Equal(dec("9")))

	tax = &Tax{BaseAmount: dec("33.33"), Aliquot: dec("21")}
	assert.Equal(t, "7.00", tax.ComputeAmount().StringFixed(2))
}

func TestHasServices(t *testing.T) {
	assert.False(t, (&Receipt{Concept: ConceptProducts}).HasServices())
	assert.True(t, (&Receipt{Concept: ConceptServices}).HasServices())
	assert.True(t, (&Receipt{Concept: ConceptProductsAndServices}).HasServices())
}

func TestFormatNumber(t *testing.T) {
	n := int64(382)
	assert.Equal(t, "0001-00000382", FormatNumber(1, &n))
	assert.Equal(t, "", FormatNumber(1, nil))
}

func TestEntryTotalPrice(t *testing.T) {
	e := &ReceiptEntry{Quantity: dec("3"), UnitPrice: dec("10.50"), Discount: dec("1.50")}
	assert.Equal(t, "30.00", e.TotalPrice().StringFixed(2))
}

func TestAuthTicketActive(t *testing.T) {
	tk := &AuthTicket{}
	tk.Expires = tk.Generated.Add(1)
	assert.True(t, tk.Active(tk.Generated))
	assert.False(t, tk.Active(tk.Expires))
}
