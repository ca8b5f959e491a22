// Package wsfe implements the WSFEv1 electronic invoicing service: CAE
// batch authorization, last-authorized number lookup, remote receipt
// queries and the parameter-table metadata operations.
package wsfe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/soap"
	"github.com/afip-tools/go-afip-client/afip/util"
)

var logger = logrus.WithField("component", "afip.wsfe")

const actionNamespace = "http://ar.gov.afip.dif.FEV1/"

// Auth is the credential triple every WSFE operation carries, plus the
// environment selecting the endpoint.
type Auth struct {
	Token       string
	Signature   string
	CUIT        afip.CUIT
	Environment afip.Environment
}

// Client is the remote surface the authorizer and the metadata refresh
// depend on. Tests substitute a recording fake.
type Client interface {
	// LastAuthorized returns the highest receipt number AFIP has approved
	// for the (point of sales, receipt type) pair, zero when none.
	LastAuthorized(ctx context.Context, auth Auth, pointOfSales, receiptType int) (int64, error)

	// Authorize submits the batch for CAE authorization and returns the
	// per-receipt outcomes.
	Authorize(ctx context.Context, auth Auth, batch *Batch) (*BatchResponse, error)

	// ParamTypes fetches one of the service's lookup dimensions.
	ParamTypes(ctx context.Context, auth Auth, kind model.MetadataKind) ([]model.GenericType, error)

	// FetchReceipt queries an already-submitted receipt by its wire triple.
	FetchReceipt(ctx context.Context, auth Auth, pointOfSales, receiptType int, number int64) (*FetchedReceipt, error)
}

// BatchResponse is the outcome of one FECAESolicitar call.
type BatchResponse struct {
	// Result is the batch-level A/R/P verdict.
	Result  string
	Details []DetailResponse
}

// DetailResponse is the per-receipt outcome, keyed by number range.
type DetailResponse struct {
	From   int64
	To     int64
	Result string

	CAE           string
	CAEExpiration time.Time

	Observations []Observation
}

// Observation is a remote (code, message) annotation. Messages arrive
// already repaired from AFIP's broken Latin-1 encoding.
type Observation struct {
	Code    int
	Message string
}

// FetchedReceipt is the remote view of an authorized receipt.
type FetchedReceipt struct {
	Result        string
	CAE           string
	CAEExpiration time.Time
}

type client struct {
	soap *soap.Client

	// endpoint, when set, overrides the environment-derived URL. Tests
	// point it at a local server.
	endpoint string
}

// NewClient builds the production WSFE client over the SOAP transport.
func NewClient(transport *soap.Client) Client {
	return &client{soap: transport}
}

// paramOperations maps each metadata kind to its FEParamGet operation and
// the element name of the rows it returns.
var paramOperations = map[model.MetadataKind]struct {
	operation string
	element   string
}{
	model.KindReceiptType:  {"FEParamGetTiposCbte", "CbteTipo"},
	model.KindConceptType:  {"FEParamGetTiposConcepto", "ConceptoTipo"},
	model.KindDocumentType: {"FEParamGetTiposDoc", "DocTipo"},
	model.KindVatType:      {"FEParamGetTiposIva", "IvaTipo"},
	model.KindTaxType:      {"FEParamGetTiposTributos", "TributoTipo"},
	model.KindCurrencyType: {"FEParamGetTiposMonedas", "Moneda"},
}

func (c *client) LastAuthorized(ctx context.Context, auth Auth, pointOfSales, receiptType int) (int64, error) {
	dto := struct {
		Auth         Auth
		PointOfSales int
		ReceiptType  int
	}{auth, pointOfSales, receiptType}

	doc, err := c.call(ctx, auth, "FECompUltimoAutorizado", &lastAuthorizedRequest, dto)
	if err != nil {
		return 0, err
	}

	result := doc.FindElement("//FECompUltimoAutorizadoResult")
	if result == nil {
		return 0, fmt.Errorf("wsfe: FECompUltimoAutorizado response missing result element")
	}
	if err := protocolError(result); err != nil {
		return 0, err
	}

	nr := result.FindElement("CbteNro")
	if nr == nil {
		return 0, fmt.Errorf("wsfe: FECompUltimoAutorizado response missing CbteNro")
	}
	return strconv.ParseInt(strings.TrimSpace(nr.Text()), 10, 64)
}

func (c *client) Authorize(ctx context.Context, auth Auth, batch *Batch) (*BatchResponse, error) {
	dto := struct {
		Auth  Auth
		Batch *Batch
	}{auth, batch}

	logger.WithFields(logrus.Fields{
		"point_of_sales": batch.PointOfSales,
		"receipt_type":   batch.ReceiptType,
		"count":          batch.Count,
	}).Info("requesting CAE authorization")

	doc, err := c.call(ctx, auth, "FECAESolicitar", &authorizeRequest, dto)
	if err != nil {
		return nil, err
	}

	result := doc.FindElement("//FECAESolicitarResult")
	if result == nil {
		return nil, fmt.Errorf("wsfe: FECAESolicitar response missing result element")
	}

	resp := &BatchResponse{}
	if cab := result.FindElement("FeCabResp/Resultado"); cab != nil {
		resp.Result = strings.TrimSpace(cab.Text())
	}

	for _, det := range result.FindElements("FeDetResp/FECAEDetResponse") {
		d, err := parseDetailResponse(det)
		if err != nil {
			return nil, err
		}
		resp.Details = append(resp.Details, *d)
	}

	// A top-level Errors block with no per-receipt details means the batch
	// itself was rejected before evaluation.
	if len(resp.Details) == 0 {
		if err := protocolError(result); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("wsfe: FECAESolicitar response has no detail records")
	}
	return resp, nil
}

func (c *client) ParamTypes(ctx context.Context, auth Auth, kind model.MetadataKind) ([]model.GenericType, error) {
	op, ok := paramOperations[kind]
	if !ok {
		return nil, fmt.Errorf("wsfe: unknown metadata kind %q", kind)
	}

	dto := struct {
		Auth      Auth
		Operation string
	}{auth, op.operation}

	doc, err := c.call(ctx, auth, op.operation, &paramTypesRequest, dto)
	if err != nil {
		return nil, err
	}

	result := doc.FindElement("//" + op.operation + "Result")
	if result == nil {
		return nil, fmt.Errorf("wsfe: %s response missing result element", op.operation)
	}
	if err := protocolError(result); err != nil {
		return nil, err
	}

	var types []model.GenericType
	for _, row := range result.FindElements("ResultGet/" + op.element) {
		t := model.GenericType{Kind: kind}
		if id := row.FindElement("Id"); id != nil {
			t.Code = strings.TrimSpace(id.Text())
		}
		if desc := row.FindElement("Desc"); desc != nil {
			t.Description = util.ParseString(strings.TrimSpace(desc.Text()))
		}
		t.ValidFrom = parseValidityDate(row.FindElement("FchDesde"))
		t.ValidTo = parseValidityDate(row.FindElement("FchHasta"))
		types = append(types, t)
	}
	return types, nil
}

func (c *client) FetchReceipt(ctx context.Context, auth Auth, pointOfSales, receiptType int, number int64) (*FetchedReceipt, error) {
	dto := struct {
		Auth         Auth
		PointOfSales int
		ReceiptType  int
		Number       int64
	}{auth, pointOfSales, receiptType, number}

	doc, err := c.call(ctx, auth, "FECompConsultar", &fetchReceiptRequest, dto)
	if err != nil {
		return nil, err
	}

	result := doc.FindElement("//FECompConsultarResult")
	if result == nil {
		return nil, fmt.Errorf("wsfe: FECompConsultar response missing result element")
	}
	if err := protocolError(result); err != nil {
		return nil, err
	}

	fetched := &FetchedReceipt{}
	if el := result.FindElement("ResultGet/Resultado"); el != nil {
		fetched.Result = strings.TrimSpace(el.Text())
	}
	if el := result.FindElement("ResultGet/CodAutorizacion"); el != nil {
		fetched.CAE = strings.TrimSpace(el.Text())
	}
	if el := result.FindElement("ResultGet/FchVto"); el != nil {
		if exp, err := util.ParseDate(strings.TrimSpace(el.Text())); err == nil {
			fetched.CAEExpiration = exp
		}
	}
	return fetched, nil
}

func (c *client) call(ctx context.Context, auth Auth, operation string, tpl *string, dto any) (*etree.Document, error) {
	envelope, err := util.MergeTemplate(tpl, dto)
	if err != nil {
		return nil, fmt.Errorf("wsfe: render %s request: %w", operation, err)
	}
	endpoint := c.endpoint
	if endpoint == "" {
		endpoint = auth.Environment.WsfeURL()
	}
	return c.soap.Call(ctx, endpoint, actionNamespace+operation, envelope)
}

func parseDetailResponse(det *etree.Element) (*DetailResponse, error) {
	d := &DetailResponse{}
	var err error

	if el := det.FindElement("CbteDesde"); el != nil {
		if d.From, err = strconv.ParseInt(strings.TrimSpace(el.Text()), 10, 64); err != nil {
			return nil, fmt.Errorf("wsfe: parse CbteDesde: %w", err)
		}
	}
	if el := det.FindElement("CbteHasta"); el != nil {
		if d.To, err = strconv.ParseInt(strings.TrimSpace(el.Text()), 10, 64); err != nil {
			return nil, fmt.Errorf("wsfe: parse CbteHasta: %w", err)
		}
	}
	if el := det.FindElement("Resultado"); el != nil {
		d.Result = strings.TrimSpace(el.Text())
	}
	if el := det.FindElement("CAE"); el != nil {
		d.CAE = strings.TrimSpace(el.Text())
	}
	if el := det.FindElement("CAEFchVto"); el != nil && strings.TrimSpace(el.Text()) != "" {
		if d.CAEExpiration, err = util.ParseDate(strings.TrimSpace(el.Text())); err != nil {
			return nil, fmt.Errorf("wsfe: parse CAEFchVto: %w", err)
		}
	}

	for _, obs := range det.FindElements("Observaciones/Obs") {
		o := Observation{}
		if code := obs.FindElement("Code"); code != nil {
			o.Code, _ = strconv.Atoi(strings.TrimSpace(code.Text()))
		}
		if msg := obs.FindElement("Msg"); msg != nil {
			o.Message = util.ParseString(strings.TrimSpace(msg.Text()))
		}
		d.Observations = append(d.Observations, o)
	}
	return d, nil
}

// protocolError surfaces the service's Errors block as *afip.ProtocolError.
// Only the first error is promoted; AFIP rarely sends more than one.
func protocolError(result *etree.Element) error {
	el := result.FindElement("Errors/Err")
	if el == nil {
		return nil
	}

	perr := &afip.ProtocolError{}
	if code := el.FindElement("Code"); code != nil {
		perr.Code, _ = strconv.Atoi(strings.TrimSpace(code.Text()))
	}
	if msg := el.FindElement("Msg"); msg != nil {
		perr.Message = util.ParseString(strings.TrimSpace(msg.Text()))
	}
	return perr
}

// parseValidityDate reads an optional YYYYMMDD element; AFIP ships the
// literal string "NULL" for open-ended windows.
func parseValidityDate(el *etree.Element) *time.Time {
	if el == nil {
		return nil
	}
	text := strings.TrimSpace(el.Text())
	if text == "" || strings.EqualFold(text, "NULL") {
		return nil
	}
	t, err := util.ParseDate(text)
	if err != nil {
		return nil
	}
	return &t
}
