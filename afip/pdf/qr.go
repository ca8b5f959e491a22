package pdf

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

// qrPayload is the fiscal QR content mandated by RG 4892/2020. Field
// names and order follow AFIP's published JSON schema; codAut is the CAE
// as a number, tipoCodAut is always "E" for CAE-authorized receipts.
type qrPayload struct {
	Ver        int     `json:"ver"`
	Fecha      string  `json:"fecha"`
	CUIT       uint64  `json:"cuit"`
	PtoVta     int     `json:"ptoVta"`
	TipoCmp    int     `json:"tipoCmp"`
	NroCmp     int64   `json:"nroCmp"`
	Importe    float64 `json:"importe"`
	Moneda     string  `json:"moneda"`
	Ctz        float64 `json:"ctz"`
	TipoDocRec int     `json:"tipoDocRec"`
	NroDocRec  uint64  `json:"nroDocRec"`
	TipoCodAut string  `json:"tipoCodAut"`
	CodAut     int64   `json:"codAut"`
}

// QRCodeURL builds the verification URL encoded in the receipt's QR: the
// AFIP QR endpoint with the payload JSON in the p query parameter,
// base64-encoded.
func (v *ReceiptView) QRCodeURL() (string, error) {
	if v.Validation == nil {
		return "", fmt.Errorf("pdf: receipt %d has no validation", v.Receipt.ID)
	}
	cae, err := strconv.ParseInt(v.Validation.CAE, 10, 64)
	if err != nil {
		return "", fmt.Errorf("pdf: CAE %q is not numeric: %w", v.Validation.CAE, err)
	}

	payload := qrPayload{
		Ver:        1,
		Fecha:      v.Receipt.IssuedDate.Format("2006-01-02"),
		CUIT:       uint64(v.TaxPayer.CUIT),
		PtoVta:     v.PointOfSales.Number,
		TipoCmp:    v.Receipt.ReceiptTypeCode,
		NroCmp:     *v.Receipt.ReceiptNumber,
		Importe:    v.Receipt.TotalAmount.InexactFloat64(),
		Moneda:     v.Receipt.CurrencyCode,
		Ctz:        v.Receipt.CurrencyQuote.InexactFloat64(),
		TipoDocRec: v.Receipt.DocumentTypeCode,
		NroDocRec:  v.Receipt.DocumentNumber,
		TipoCodAut: "E",
		CodAut:     cae,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return v.TaxPayer.Environment().QRBaseURL() + "?p=" + base64.StdEncoding.EncodeToString(data), nil
}

// QRCodePNG renders the verification QR as a size x size PNG.
func (v *ReceiptView) QRCodePNG(size int) ([]byte, error) {
	url, err := v.QRCodeURL()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}
