// Package soap is the thin transport under the WSAA and WSFE clients: it
// posts SOAP 1.1 envelopes and hands parsed XML documents back, surfacing
// faults and HTTP failures as typed errors.
package soap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/afip-tools/go-afip-client/afip/util"
)

var logger = logrus.WithField("component", "afip.soap")

type Client struct {
	rest *resty.Client
}

// New builds a transport on the given http.Client. Callers share one
// http.Client with a timeout across every service.
func New(httpClient *http.Client) *Client {
	return &Client{rest: resty.NewWithClient(httpClient)}
}

// Call posts the envelope to endpoint with the given SOAPAction and
// returns the parsed response document. A SOAP fault in the body is
// returned as *Fault; transport and HTTP-level failures as *RequestError.
func (c *Client) Call(ctx context.Context, endpoint, action string, envelope []byte) (*etree.Document, error) {
	r := c.rest.R().SetContext(ctx)
	if util.HttpTraceEnabled() {
		r.EnableTrace()
	}

	resp, err := r.
		SetBody(envelope).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", action).
		Post(endpoint)

	printTraceInfo(endpoint, err, resp)

	if err != nil {
		return nil, &RequestError{Err: err}
	}

	doc := etree.NewDocument()
	if parseErr := doc.ReadFromBytes(resp.Body()); parseErr != nil {
		return nil, &RequestError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			Err:        fmt.Errorf("parse response XML: %w", parseErr),
		}
	}

	// AFIP returns faults with HTTP 500, so check the body before the
	// status code.
	if fault := faultFrom(doc); fault != nil {
		return nil, fault
	}

	if resp.IsError() {
		return nil, &RequestError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return doc, nil
}

func faultFrom(doc *etree.Document) *Fault {
	el := doc.FindElement("//Fault")
	if el == nil {
		return nil
	}

	fault := &Fault{}
	if code := el.FindElement("faultcode"); code != nil {
		fault.Code = strings.TrimSpace(code.Text())
	}
	if msg := el.FindElement("faultstring"); msg != nil {
		fault.Message = strings.TrimSpace(msg.Text())
	}
	return fault
}

func printTraceInfo(endpoint string, err error, resp *resty.Response) {
	if !util.HttpTraceEnabled() || resp == nil {
		return
	}

	ti := resp.Request.TraceInfo()
	logger.WithFields(logrus.Fields{
		"url":         endpoint,
		"status_code": resp.StatusCode(),
		"total_time":  ti.TotalTime,
		"server_time": ti.ServerTime,
		"conn_reused": ti.IsConnReused,
	}).Debug("SOAP call trace")
	if err != nil {
		logger.WithError(err).Debug("SOAP call failed")
	}
}
