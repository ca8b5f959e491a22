package wsaa

// TicketRequest is the TRA (ticket request access) document that gets
// PKCS7-signed and shipped inside the loginCms envelope.
var TicketRequest = `<?xml version="1.0" encoding="UTF-8"?>
<loginTicketRequest version="1.0">
  <header>
    <uniqueId>{{.UniqueID}}</uniqueId>
    <generationTime>{{.GenerationTime}}</generationTime>
    <expirationTime>{{.ExpirationTime}}</expirationTime>
  </header>
  <service>{{.Service}}</service>
</loginTicketRequest>
`

// LoginCmsEnvelope wraps the base64 CMS for the LoginCms operation.
var LoginCmsEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:wsaa="http://wsaa.view.sua.dvadac.desein.afip.gov">
  <soapenv:Header/>
  <soapenv:Body>
    <wsaa:loginCms>
      <wsaa:in0>{{base64 .CMS}}</wsaa:in0>
    </wsaa:loginCms>
  </soapenv:Body>
</soapenv:Envelope>
`

type ticketRequestDTO struct {
	UniqueID       int32
	GenerationTime string
	ExpirationTime string
	Service        string
}

type loginCmsDTO struct {
	CMS []byte
}
