package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTemplate(t *testing.T) {
	tpl := `<request><id>{{.ID}}</id><payload>{{base64 .Payload}}</payload></request>`

	out, err := MergeTemplate(&tpl, struct {
		ID      int
		Payload []byte
	}{7, []byte("hello")})

	require.NoError(t, err)
	assert.Equal(t, `<request><id>7</id><payload>aGVsbG8=</payload></request>`, string(out))
}

func TestMergeTemplateInvalid(t *testing.T) {
	tpl := `{{.Missing`
	_, err := MergeTemplate(&tpl, nil)
	assert.Error(t, err)
}
