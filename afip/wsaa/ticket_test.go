package wsaa

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/crypto"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
)

// fakeLogin hands out canned credentials and counts calls.
type fakeLogin struct {
	calls int
	resp  *LoginResponse
	err   error
}

func (f *fakeLogin) LoginCms(ctx context.Context, env afip.Environment, cms []byte) (*LoginResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testKeyAndCert(t *testing.T) (keyPEM, certPEM []byte) {
	t.Helper()
	keyPEM, err := crypto.CreateKey()
	require.NoError(t, err)
	key, err := crypto.ParsePrivateKey(keyPEM, nil)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test", SerialNumber: "CUIT 20329642330"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return keyPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func newTicketFixtures(t *testing.T) (*store.Store, *model.TaxPayer, *fakeLogin, *TicketService) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	keyPEM, certPEM := testKeyAndCert(t)
	tp := &model.TaxPayer{
		Name: "John Smith", CUIT: afip.CUIT(20329642330), Sandbox: true,
		KeyPEM: keyPEM, CertificatePEM: certPEM,
	}
	require.NoError(t, st.SaveTaxPayer(context.Background(), tp))

	login := &fakeLogin{resp: &LoginResponse{
		Token:     "token",
		Signature: "signature",
		Expires:   time.Now().Add(12 * time.Hour),
	}}
	return st, tp, login, NewTicketService(st, login)
}

func TestGetOrCreateRequestsTicket(t *testing.T) {
	_, tp, login, svc := newTicketFixtures(t)
	ctx := context.Background()

	ticket, err := svc.GetOrCreate(ctx, tp, model.ServiceWsfe)
	require.NoError(t, err)
	assert.Equal(t, 1, login.calls)
	assert.Equal(t, "token", ticket.Token)
	assert.Equal(t, "signature", ticket.Signature)
	assert.True(t, ticket.Active(time.Now()))
	assert.NotZero(t, ticket.UniqueID)
}

func TestGetOrCreateReusesActiveTicket(t *testing.T) {
	_, tp, login, svc := newTicketFixtures(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, tp, model.ServiceWsfe)
	require.NoError(t, err)

	second, err := svc.GetOrCreate(ctx, tp, model.ServiceWsfe)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, login.calls)
}

func TestGetOrCreateIgnoresExpiredTicket(t *testing.T) {
	st, tp, login, svc := newTicketFixtures(t)
	ctx := context.Background()

	stale := &model.AuthTicket{
		TaxPayerID: tp.ID, Service: model.ServiceWsfe, UniqueID: 9,
		Generated: time.Now().Add(-24 * time.Hour),
		Expires:   time.Now().Add(-12 * time.Hour),
		Token:     "stale", Signature: "stale",
	}
	require.NoError(t, st.SaveTicket(ctx, stale))

	ticket, err := svc.GetOrCreate(ctx, tp, model.ServiceWsfe)
	require.NoError(t, err)
	assert.Equal(t, "token", ticket.Token)
	assert.Equal(t, 1, login.calls)
}

func TestAnyActiveWithoutTaxPayers(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewTicketService(st, &fakeLogin{})
	_, err = svc.AnyActive(context.Background(), model.ServiceWsfe)
	assert.ErrorIs(t, err, afip.ErrNoTaxPayers)
	assert.ErrorIs(t, err, afip.ErrAuthentication)
}

func TestAnyActiveCreatesForFirstTaxPayer(t *testing.T) {
	_, tp, login, svc := newTicketFixtures(t)
	ctx := context.Background()

	ticket, err := svc.AnyActive(ctx, model.ServiceWsfe)
	require.NoError(t, err)
	assert.Equal(t, tp.ID, ticket.TaxPayerID)
	assert.Equal(t, 1, login.calls)

	owner, err := svc.TaxPayerFor(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, tp.CUIT, owner.CUIT)
}

func TestCreatePropagatesLoginFailure(t *testing.T) {
	_, tp, login, svc := newTicketFixtures(t)
	login.err = afip.ErrCertificateExpired

	_, err := svc.GetOrCreate(context.Background(), tp, model.ServiceWsfe)
	assert.ErrorIs(t, err, afip.ErrCertificateExpired)
}
