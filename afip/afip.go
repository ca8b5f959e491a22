// Package afip holds the shared pieces of the AFIP client: target
// environments, the error taxonomy and the CUIT identifier type.
//
// Service clients live in the subpackages: wsaa (authentication tickets),
// wsfe (electronic invoicing), store (local persistence), crypto (key and
// signature handling) and pdf (printable receipts).
package afip

import (
	"fmt"
	"strings"
)

// Environment selects between AFIP's production and homologation
// (sandbox) deployments. Each web service has its own host per environment.
type Environment int

const (
	Production Environment = iota
	Testing
)

// WsaaURL returns the LoginCms endpoint of the authentication service.
func (e Environment) WsaaURL() string {
	switch e {
	case Production:
		return "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	case Testing:
		return "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	}
	panic("invalid environment")
}

// WsfeURL returns the endpoint of the WSFEv1 invoicing service.
func (e Environment) WsfeURL() string {
	switch e {
	case Production:
		return "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
	case Testing:
		return "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	}
	panic("invalid environment")
}

// QRBaseURL returns the public QR verification URL. It is the same for
// both environments; codes generated against homologation simply will not
// resolve to a real receipt.
func (e Environment) QRBaseURL() string {
	return "https://www.afip.gob.ar/fe/qr/"
}

func (e Environment) Name() string {
	switch e {
	case Production:
		return "production"
	case Testing:
		return "testing"
	}
	panic("invalid environment")
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "production", "prod":
		*e = Production
	case "testing", "test", "homo":
		*e = Testing
	default:
		return fmt.Errorf("invalid AFIP environment: %q (allowed: production, testing)", val)
	}
	return nil
}

// EnvironmentFor maps the sandbox flag persisted on a taxpayer to an
// Environment value.
func EnvironmentFor(sandbox bool) Environment {
	if sandbox {
		return Testing
	}
	return Production
}
