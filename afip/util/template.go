package util

import (
	"bytes"
	"encoding/base64"
	"text/template"
)

// MergeTemplate renders an XML request body from a template string. The
// base64 function is available inside templates for binary payloads.
func MergeTemplate(tpl *string, model any) ([]byte, error) {

	var funcMap = template.FuncMap{
		"base64": base64.StdEncoding.EncodeToString,
	}

	tmpl, err := template.New("request").Funcs(funcMap).Parse(*tpl)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer

	err = tmpl.Execute(&output, model)
	if err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}
