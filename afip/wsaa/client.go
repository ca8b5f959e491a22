// Package wsaa talks to AFIP's authentication service: it builds and
// signs ticket requests and manages the resulting tickets, reusing cached
// ones aggressively because issuance is rate-limited remotely.
package wsaa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/soap"
	"github.com/afip-tools/go-afip-client/afip/util"
)

var logger = logrus.WithField("component", "afip.wsaa")

// LoginResponse is the useful part of a loginCmsReturn document.
type LoginResponse struct {
	Token     string
	Signature string
	Expires   time.Time
}

// LoginClient performs the loginCms round-trip. The ticket service only
// sees this interface; tests substitute a fake.
type LoginClient interface {
	LoginCms(ctx context.Context, env afip.Environment, cms []byte) (*LoginResponse, error)
}

// Client is the real LoginClient over the SOAP transport.
type Client struct {
	soap *soap.Client
}

func NewClient(soapClient *soap.Client) *Client {
	return &Client{soap: soapClient}
}

// LoginCms submits a signed ticket request and extracts token, signature
// and expiry from the fixed paths of the loginTicketResponse.
func (c *Client) LoginCms(ctx context.Context, env afip.Environment, cms []byte) (*LoginResponse, error) {
	return c.loginCmsAt(ctx, env.WsaaURL(), cms)
}

func (c *Client) loginCmsAt(ctx context.Context, endpoint string, cms []byte) (*LoginResponse, error) {
	envelope, err := util.MergeTemplate(&LoginCmsEnvelope, loginCmsDTO{CMS: cms})
	if err != nil {
		return nil, fmt.Errorf("render loginCms envelope: %w", err)
	}

	doc, err := c.soap.Call(ctx, endpoint, "", envelope)
	if err != nil {
		return nil, mapLoginError(err)
	}

	ret := doc.FindElement("//loginCmsReturn")
	if ret == nil {
		return nil, fmt.Errorf("%w: response has no loginCmsReturn", afip.ErrAuthentication)
	}

	// loginCmsReturn carries the ticket response as an escaped XML string.
	inner := newDocumentFromString(ret.Text())
	if inner == nil {
		return nil, fmt.Errorf("%w: malformed loginTicketResponse", afip.ErrAuthentication)
	}

	resp := &LoginResponse{}
	if el := inner.FindElement("//credentials/token"); el != nil {
		resp.Token = strings.TrimSpace(el.Text())
	}
	if el := inner.FindElement("//credentials/sign"); el != nil {
		resp.Signature = strings.TrimSpace(el.Text())
	}
	if resp.Token == "" || resp.Signature == "" {
		return nil, fmt.Errorf("%w: loginTicketResponse is missing credentials", afip.ErrAuthentication)
	}

	if el := inner.FindElement("//header/expirationTime"); el != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(el.Text())); err == nil {
			resp.Expires = t
		}
	}

	logger.Debug("Obtained WSAA credentials")
	return resp, nil
}

func newDocumentFromString(s string) *etree.Document {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil
	}
	return doc
}

// mapLoginError converts WSAA fault messages into the error taxonomy.
// The message strings are the ones the service actually emits; anything
// unknown stays a generic authentication failure.
func mapLoginError(err error) error {
	fault, ok := err.(*soap.Fault)
	if !ok {
		return fmt.Errorf("%w: %v", afip.ErrAuthentication, err)
	}

	switch {
	case strings.Contains(fault.Message, "Certificado expirado"):
		return fmt.Errorf("%w (%s)", afip.ErrCertificateExpired, fault.Message)
	case strings.Contains(fault.Message, "Certificado no emitido por AC de confianza"):
		return fmt.Errorf("%w (%s)", afip.ErrUntrustedCertificate, fault.Message)
	default:
		return fmt.Errorf("%w: %s", afip.ErrAuthentication, fault.Message)
	}
}
