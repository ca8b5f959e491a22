package wsaa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/soap"
)

// loginTicketResponse travels XML-escaped inside loginCmsReturn, exactly
// as WSAA ships it.
const ticketResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<loginTicketResponse version="1.0">
  <header>
    <source>CN=wsaahomo</source>
    <destination>SERIALNUMBER=CUIT 20329642330</destination>
    <uniqueId>2906904472</uniqueId>
    <generationTime>2026-08-20T10:00:00-03:00</generationTime>
    <expirationTime>2026-08-20T22:00:00-03:00</expirationTime>
  </header>
  <credentials>
    <token>PD94bWwgdG9rZW4=</token>
    <sign>c2lnbmF0dXJl</sign>
  </credentials>
</loginTicketResponse>`

func loginCmsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <loginCmsResponse>
      <loginCmsReturn>` + escapeXML(ticketResponseXML) + `</loginCmsReturn>
    </loginCmsResponse>
  </soapenv:Body>
</soapenv:Envelope>`))
	}
}

func escapeXML(s string) string {
	var buf []byte
	for _, r := range s {
		switch r {
		case '<':
			buf = append(buf, "&lt;"...)
		case '>':
			buf = append(buf, "&gt;"...)
		case '&':
			buf = append(buf, "&amp;"...)
		default:
			buf = append(buf, string(r)...)
		}
	}
	return string(buf)
}

func TestLoginCmsParsesCredentials(t *testing.T) {
	srv := httptest.NewServer(loginCmsHandler())
	defer srv.Close()

	c := NewClient(soap.New(srv.Client()))
	resp, err := c.loginCmsAt(context.Background(), srv.URL, []byte("signed-cms"))
	require.NoError(t, err)

	assert.Equal(t, "PD94bWwgdG9rZW4=", resp.Token)
	assert.Equal(t, "c2lnbmF0dXJl", resp.Signature)
	assert.Equal(t, 2026, resp.Expires.Year())
}

func TestMapLoginError(t *testing.T) {
	expired := mapLoginError(&soap.Fault{Code: "ns1:cms.cert.expired", Message: "Certificado expirado"})
	assert.ErrorIs(t, expired, afip.ErrCertificateExpired)
	assert.ErrorIs(t, expired, afip.ErrAuthentication)

	untrusted := mapLoginError(&soap.Fault{Code: "ns1:cms.ca.notFound", Message: "Certificado no emitido por AC de confianza"})
	assert.ErrorIs(t, untrusted, afip.ErrUntrustedCertificate)

	other := mapLoginError(&soap.Fault{Code: "ns1:coe.alreadyAuthenticated", Message: "El CEE ya posee un TA valido"})
	assert.ErrorIs(t, other, afip.ErrAuthentication)
	assert.NotErrorIs(t, other, afip.ErrCertificateExpired)

	transport := mapLoginError(assert.AnError)
	assert.ErrorIs(t, transport, afip.ErrAuthentication)
}
