// Package model defines the entities the AFIP client persists and ships
// over the wire: taxpayers and their points of sales, authentication
// tickets, receipts with their VAT and tax lines, and validation results.
package model

import (
	"time"

	"github.com/afip-tools/go-afip-client/afip"
)

// TaxPayer owns the key material used to authenticate against AFIP and
// the points of sales receipts are numbered under.
type TaxPayer struct {
	ID   int64
	Name string
	CUIT afip.CUIT

	// Sandbox selects the homologation environment for every call made on
	// behalf of this taxpayer.
	Sandbox bool

	KeyPEM         []byte
	CertificatePEM []byte

	// CertificateExpires is derived from the certificate blob whenever it
	// changes; it is never authoritative on its own.
	CertificateExpires time.Time

	ActiveSince time.Time
}

// Environment maps the taxpayer's sandbox flag to an AFIP environment.
func (t *TaxPayer) Environment() afip.Environment {
	return afip.EnvironmentFor(t.Sandbox)
}

// PointOfSales is a registered sales point, owned by exactly one taxpayer.
// The issuing fields are defaults for printable receipts only; AFIP never
// sees them.
type PointOfSales struct {
	ID         int64
	Number     int
	TaxPayerID int64

	IssuingName    string
	IssuingAddress string
	VatCondition   string
	GrossIncome    string
	SalesTerms     string
}

// Services tickets can be issued for. Only wsfe is consumed here, but
// tickets are stored per service so other AFIP web services can share the
// table.
const (
	ServiceWsfe = "wsfe"
)

// AuthTicket is a signed credential for one (taxpayer, service) pair.
// Tickets are immutable once persisted and reusable while Expires is in
// the future; expired rows are garbage for the caller to collect.
type AuthTicket struct {
	ID         int64
	TaxPayerID int64
	Service    string

	// UniqueID is the random 31-bit id sent in the ticket request.
	UniqueID int32

	Generated time.Time
	Expires   time.Time

	Token     string
	Signature string
}

// Active reports whether the ticket is still usable at the given instant.
func (t *AuthTicket) Active(now time.Time) bool {
	return t.Expires.After(now)
}

// MetadataKind names one of AFIP's slowly-changing lookup dimensions.
type MetadataKind string

const (
	KindReceiptType  MetadataKind = "receipt_type"
	KindConceptType  MetadataKind = "concept_type"
	KindDocumentType MetadataKind = "document_type"
	KindVatType      MetadataKind = "vat_type"
	KindTaxType      MetadataKind = "tax_type"
	KindCurrencyType MetadataKind = "currency_type"
)

// AllMetadataKinds lists every kind the metadata refresh populates.
var AllMetadataKinds = []MetadataKind{
	KindReceiptType,
	KindConceptType,
	KindDocumentType,
	KindVatType,
	KindTaxType,
	KindCurrencyType,
}

// GenericType is one row of a lookup dimension: identified by code within
// its kind, append-only, with an optional validity window.
type GenericType struct {
	ID          int64
	Kind        MetadataKind
	Code        string
	Description string
	ValidFrom   *time.Time
	ValidTo     *time.Time
}
