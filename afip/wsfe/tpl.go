package wsfe

// Request templates for the WSFEv1 operations. The namespace and element
// names follow the published WSDL; AFIP's homologation endpoint is picky
// about element order, so the templates keep the exact sequence the
// service documents.

var lastAuthorizedRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ar="http://ar.gov.afip.dif.FEV1/">
  <soapenv:Header/>
  <soapenv:Body>
    <ar:FECompUltimoAutorizado>
      <ar:Auth>
        <ar:Token>{{.Auth.Token}}</ar:Token>
        <ar:Sign>{{.Auth.Signature}}</ar:Sign>
        <ar:Cuit>{{.Auth.CUIT}}</ar:Cuit>
      </ar:Auth>
      <ar:PtoVta>{{.PointOfSales}}</ar:PtoVta>
      <ar:CbteTipo>{{.ReceiptType}}</ar:CbteTipo>
    </ar:FECompUltimoAutorizado>
  </soapenv:Body>
</soapenv:Envelope>
`

var authorizeRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ar="http://ar.gov.afip.dif.FEV1/">
  <soapenv:Header/>
  <soapenv:Body>
    <ar:FECAESolicitar>
      <ar:Auth>
        <ar:Token>{{.Auth.Token}}</ar:Token>
        <ar:Sign>{{.Auth.Signature}}</ar:Sign>
        <ar:Cuit>{{.Auth.CUIT}}</ar:Cuit>
      </ar:Auth>
      <ar:FeCAEReq>
        <ar:FeCabReq>
          <ar:CantReg>{{.Batch.Count}}</ar:CantReg>
          <ar:PtoVta>{{.Batch.PointOfSales}}</ar:PtoVta>
          <ar:CbteTipo>{{.Batch.ReceiptType}}</ar:CbteTipo>
        </ar:FeCabReq>
        <ar:FeDetReq>
{{- range .Batch.Details}}
          <ar:FECAEDetRequest>
            <ar:Concepto>{{.Concept}}</ar:Concepto>
            <ar:DocTipo>{{.DocType}}</ar:DocTipo>
            <ar:DocNro>{{.DocNumber}}</ar:DocNro>
            <ar:CbteDesde>{{.From}}</ar:CbteDesde>
            <ar:CbteHasta>{{.To}}</ar:CbteHasta>
            <ar:CbteFch>{{.Date}}</ar:CbteFch>
            <ar:ImpTotal>{{.Total}}</ar:ImpTotal>
            <ar:ImpTotConc>{{.NetUntaxed}}</ar:ImpTotConc>
            <ar:ImpNeto>{{.NetTaxed}}</ar:ImpNeto>
            <ar:ImpOpEx>{{.Exempt}}</ar:ImpOpEx>
            <ar:ImpTrib>{{.TaxAmount}}</ar:ImpTrib>
            <ar:ImpIVA>{{.VatAmount}}</ar:ImpIVA>
{{- if .ServiceFrom}}
            <ar:FchServDesde>{{.ServiceFrom}}</ar:FchServDesde>
            <ar:FchServHasta>{{.ServiceTo}}</ar:FchServHasta>
            <ar:FchVtoPago>{{.PaymentDue}}</ar:FchVtoPago>
{{- end}}
            <ar:MonId>{{.Currency}}</ar:MonId>
            <ar:MonCotiz>{{.CurrencyQuote}}</ar:MonCotiz>
{{- if .RelatedReceipts}}
            <ar:CbtesAsoc>
{{- range .RelatedReceipts}}
              <ar:CbteAsoc>
                <ar:Tipo>{{.Type}}</ar:Tipo>
                <ar:PtoVta>{{.PointOfSales}}</ar:PtoVta>
                <ar:Nro>{{.Number}}</ar:Nro>
              </ar:CbteAsoc>
{{- end}}
            </ar:CbtesAsoc>
{{- end}}
{{- if .Taxes}}
            <ar:Tributos>
{{- range .Taxes}}
              <ar:Tributo>
                <ar:Id>{{.ID}}</ar:Id>
                <ar:Desc>{{.Description}}</ar:Desc>
                <ar:BaseImp>{{.BaseAmount}}</ar:BaseImp>
                <ar:Alic>{{.Aliquot}}</ar:Alic>
                <ar:Importe>{{.Amount}}</ar:Importe>
              </ar:Tributo>
{{- end}}
            </ar:Tributos>
{{- end}}
{{- if .Vat}}
            <ar:Iva>
{{- range .Vat}}
              <ar:AlicIva>
                <ar:Id>{{.ID}}</ar:Id>
                <ar:BaseImp>{{.BaseAmount}}</ar:BaseImp>
                <ar:Importe>{{.Amount}}</ar:Importe>
              </ar:AlicIva>
{{- end}}
            </ar:Iva>
{{- end}}
          </ar:FECAEDetRequest>
{{- end}}
        </ar:FeDetReq>
      </ar:FeCAEReq>
    </ar:FECAESolicitar>
  </soapenv:Body>
</soapenv:Envelope>
`

var paramTypesRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ar="http://ar.gov.afip.dif.FEV1/">
  <soapenv:Header/>
  <soapenv:Body>
    <ar:{{.Operation}}>
      <ar:Auth>
        <ar:Token>{{.Auth.Token}}</ar:Token>
        <ar:Sign>{{.Auth.Signature}}</ar:Sign>
        <ar:Cuit>{{.Auth.CUIT}}</ar:Cuit>
      </ar:Auth>
    </ar:{{.Operation}}>
  </soapenv:Body>
</soapenv:Envelope>
`

var fetchReceiptRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ar="http://ar.gov.afip.dif.FEV1/">
  <soapenv:Header/>
  <soapenv:Body>
    <ar:FECompConsultar>
      <ar:Auth>
        <ar:Token>{{.Auth.Token}}</ar:Token>
        <ar:Sign>{{.Auth.Signature}}</ar:Sign>
        <ar:Cuit>{{.Auth.CUIT}}</ar:Cuit>
      </ar:Auth>
      <ar:FeCompConsReq>
        <ar:CbteTipo>{{.ReceiptType}}</ar:CbteTipo>
        <ar:CbteNro>{{.Number}}</ar:CbteNro>
        <ar:PtoVta>{{.PointOfSales}}</ar:PtoVta>
      </ar:FeCompConsReq>
    </ar:FECompConsultar>
  </soapenv:Body>
</soapenv:Envelope>
`
