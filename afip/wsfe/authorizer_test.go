package wsfe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
	"github.com/afip-tools/go-afip-client/afip/wsaa"
)

// fakeWsfe records every call and plays back scripted responses.
type fakeWsfe struct {
	last          int64
	lastCalls     int
	authorizeFn   func(batch *Batch) (*BatchResponse, error)
	authorized    []*Batch
	fetched       *FetchedReceipt
	fetchCalls    int
	paramTypes    []model.GenericType
	metadataCalls int
}

func (f *fakeWsfe) LastAuthorized(ctx context.Context, auth Auth, pointOfSales, receiptType int) (int64, error) {
	f.lastCalls++
	return f.last, nil
}

func (f *fakeWsfe) Authorize(ctx context.Context, auth Auth, batch *Batch) (*BatchResponse, error) {
	f.authorized = append(f.authorized, batch)
	return f.authorizeFn(batch)
}

func (f *fakeWsfe) ParamTypes(ctx context.Context, auth Auth, kind model.MetadataKind) ([]model.GenericType, error) {
	f.metadataCalls++
	return f.paramTypes, nil
}

func (f *fakeWsfe) FetchReceipt(ctx context.Context, auth Auth, pointOfSales, receiptType int, number int64) (*FetchedReceipt, error) {
	f.fetchCalls++
	return f.fetched, nil
}

func (f *fakeWsfe) remoteCalls() int {
	return f.lastCalls + len(f.authorized) + f.fetchCalls + f.metadataCalls
}

// approveAll is the happy-path script: every detail comes back approved
// with a CAE.
func approveAll(batch *Batch) (*BatchResponse, error) {
	resp := &BatchResponse{Result: model.ResultApproved}
	for _, d := range batch.Details {
		resp.Details = append(resp.Details, DetailResponse{
			From: d.From, To: d.To,
			Result:        model.ResultApproved,
			CAE:           "70417054367476",
			CAEExpiration: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		})
	}
	return resp, nil
}

type authorizerFixtures struct {
	store *store.Store
	pos   *model.PointOfSales
	fake  *fakeWsfe
	auth  *Authorizer
}

func newAuthorizerFixtures(t *testing.T) *authorizerFixtures {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tp := &model.TaxPayer{Name: "John Smith", CUIT: afip.CUIT(20329642330), Sandbox: true}
	require.NoError(t, st.SaveTaxPayer(ctx, tp))
	pos := &model.PointOfSales{Number: 1, TaxPayerID: tp.ID}
	require.NoError(t, st.CreatePointOfSales(ctx, pos))

	// An active ticket in the store means acquisition never hits WSAA.
	require.NoError(t, st.SaveTicket(ctx, &model.AuthTicket{
		TaxPayerID: tp.ID, Service: model.ServiceWsfe, UniqueID: 1,
		Generated: time.Now(), Expires: time.Now().Add(12 * time.Hour),
		Token: "token", Signature: "signature",
	}))

	fake := &fakeWsfe{authorizeFn: approveAll}
	tickets := wsaa.NewTicketService(st, nil)
	return &authorizerFixtures{
		store: st,
		pos:   pos,
		fake:  fake,
		auth:  NewAuthorizer(st, fake, tickets),
	}
}

func (f *authorizerFixtures) createReceipt(t *testing.T, receiptType int) *model.Receipt {
	t.Helper()
	r := &model.Receipt{
		PointOfSalesID:   f.pos.ID,
		ReceiptTypeCode:  receiptType,
		Concept:          model.ConceptProducts,
		DocumentTypeCode: 96,
		DocumentNumber:   203012345,
		IssuedDate:       time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		TotalAmount:      dec("121.00"),
		NetTaxed:         dec("100.00"),
		CurrencyCode:     "PES",
		CurrencyQuote:    dec("1"),
		Vat: []model.Vat{
			{TypeCode: 5, BaseAmount: dec("100.00"), Amount: dec("21.00")},
		},
	}
	require.NoError(t, f.store.CreateReceipt(context.Background(), r))
	return r
}

func TestValidateEmptyIsNoOp(t *testing.T) {
	f := newAuthorizerFixtures(t)

	errs, err := f.auth.Validate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Zero(t, f.fake.remoteCalls())
}

func TestValidateSkipsAlreadyValidated(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()

	r := f.createReceipt(t, 6)
	errs, err := f.auth.Validate(ctx, []*model.Receipt{r})
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, f.fake.authorized, 1)

	// A second pass over the same receipt must not touch the network.
	before := f.fake.remoteCalls()
	errs, err = f.auth.Validate(ctx, []*model.Receipt{r})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, before, f.fake.remoteCalls())

	count, err := f.store.CountReceiptValidations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestValidateRejectsMixedBatches(t *testing.T) {
	f := newAuthorizerFixtures(t)

	invoice := f.createReceipt(t, 6)
	creditNote := f.createReceipt(t, 8)

	_, err := f.auth.Validate(context.Background(), []*model.Receipt{invoice, creditNote})
	assert.ErrorIs(t, err, afip.ErrCannotValidateTogether)
	// The check fires before authentication or any remote call.
	assert.Zero(t, f.fake.remoteCalls())
}

func TestValidateRejectsUnbalancedTotals(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()

	r := f.createReceipt(t, 6)
	r.TotalAmount = dec("999.00")

	_, err := f.auth.Validate(ctx, []*model.Receipt{r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not reconcile")
	assert.Zero(t, f.fake.remoteCalls())
}

func TestValidateRefusesOpenTransaction(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()
	r := f.createReceipt(t, 6)

	err := f.store.WithTx(ctx, func(tx *store.Store) error {
		a := NewAuthorizer(tx, f.fake, wsaa.NewTicketService(tx, nil))
		_, err := a.Validate(ctx, []*model.Receipt{r})
		return err
	})
	assert.ErrorIs(t, err, afip.ErrInsideTransaction)
	assert.Zero(t, f.fake.remoteCalls())
}

func TestValidateAssignsConsecutiveNumbers(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()
	f.fake.last = 41

	receipts := []*model.Receipt{
		f.createReceipt(t, 6),
		f.createReceipt(t, 6),
		f.createReceipt(t, 6),
	}

	errs, err := f.auth.Validate(ctx, receipts)
	require.NoError(t, err)
	require.Empty(t, errs)

	for i, r := range receipts {
		require.NotNil(t, r.ReceiptNumber)
		assert.Equal(t, int64(42+i), *r.ReceiptNumber)

		stored, err := f.store.GetReceipt(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ReceiptNumber)
		assert.Equal(t, *r.ReceiptNumber, *stored.ReceiptNumber)
	}

	require.Len(t, f.fake.authorized, 1)
	assert.Equal(t, 3, f.fake.authorized[0].Count)
}

func TestValidatePartialFailure(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()
	f.fake.last = 41
	f.fake.authorizeFn = func(batch *Batch) (*BatchResponse, error) {
		resp := &BatchResponse{Result: model.ResultPartial}
		for _, d := range batch.Details {
			dr := DetailResponse{From: d.From, To: d.To}
			if d.From == 43 {
				dr.Result = model.ResultRejected
				dr.Observations = []Observation{
					{Code: 10016, Message: "Fecha del comprobante fuera de rango"},
				}
			} else {
				dr.Result = model.ResultApproved
				dr.CAE = "70417054367476"
				dr.CAEExpiration = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
			}
			resp.Details = append(resp.Details, dr)
		}
		return resp, nil
	}

	receipts := []*model.Receipt{
		f.createReceipt(t, 6),
		f.createReceipt(t, 6),
		f.createReceipt(t, 6),
	}
	rejected := receipts[1]

	errs, err := f.auth.Validate(ctx, receipts)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "Error 10016: Fecha del comprobante fuera de rango", errs[0])

	// The rejected receipt's number went back to the pool.
	assert.Nil(t, rejected.ReceiptNumber)
	stored, err := f.store.GetReceipt(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReceiptNumber)
	has, err := f.store.HasValidation(ctx, rejected.ID)
	require.NoError(t, err)
	assert.False(t, has)

	// The other two kept their approvals.
	for _, r := range []*model.Receipt{receipts[0], receipts[2]} {
		rv, err := f.store.GetReceiptValidation(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ResultApproved, rv.Result)
		assert.Len(t, rv.CAE, 14)
	}
}

func TestValidateStrict(t *testing.T) {
	f := newAuthorizerFixtures(t)
	f.fake.authorizeFn = func(batch *Batch) (*BatchResponse, error) {
		return &BatchResponse{
			Result: model.ResultRejected,
			Details: []DetailResponse{{
				From: batch.Details[0].From, To: batch.Details[0].To,
				Result: model.ResultRejected,
				Observations: []Observation{
					{Code: 10048, Message: "El importe total no coincide"},
				},
			}},
		}, nil
	}

	r := f.createReceipt(t, 6)
	err := f.auth.ValidateStrict(context.Background(), []*model.Receipt{r})

	var verr *afip.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Error 10048: El importe total no coincide", verr.Message)
}

func TestValidateAllowsApprovedObservations(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()
	f.fake.authorizeFn = func(batch *Batch) (*BatchResponse, error) {
		resp, _ := approveAll(batch)
		resp.Details[0].Observations = []Observation{
			{Code: 10017, Message: "Fecha fuera de rango"},
		}
		return resp, nil
	}

	r := f.createReceipt(t, 6)
	errs, err := f.auth.Validate(ctx, []*model.Receipt{r})
	require.NoError(t, err)
	assert.Empty(t, errs)

	rv, err := f.store.GetReceiptValidation(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, rv.Observations, 1)
	assert.Equal(t, 10017, rv.Observations[0].Code)
}

func TestRevalidateRecoversLostApproval(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()

	r := f.createReceipt(t, 6)
	ok, err := f.store.ClaimReceiptNumber(ctx, r.ID, 42)
	require.NoError(t, err)
	require.True(t, ok)
	n := int64(42)
	r.ReceiptNumber = &n

	f.fake.fetched = &FetchedReceipt{
		Result:        model.ResultApproved,
		CAE:           "70417054367476",
		CAEExpiration: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	}

	rv, err := f.auth.Revalidate(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, rv)
	assert.Equal(t, "70417054367476", rv.CAE)
	assert.Equal(t, 1, f.fake.fetchCalls)

	// A second revalidation finds the stored row and stays local.
	again, err := f.auth.Revalidate(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, again.ID)
	assert.Equal(t, 1, f.fake.fetchCalls)
}

func TestRevalidateUnknownRemotely(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()

	r := f.createReceipt(t, 6)
	ok, err := f.store.ClaimReceiptNumber(ctx, r.ID, 42)
	require.NoError(t, err)
	require.True(t, ok)
	n := int64(42)
	r.ReceiptNumber = &n

	f.fake.fetched = &FetchedReceipt{Result: model.ResultRejected}

	rv, err := f.auth.Revalidate(ctx, r)
	require.NoError(t, err)
	assert.Nil(t, rv)
}

func TestRevalidateUnnumbered(t *testing.T) {
	f := newAuthorizerFixtures(t)
	r := f.createReceipt(t, 6)

	rv, err := f.auth.Revalidate(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, rv)
	assert.Zero(t, f.fake.remoteCalls())
}

// recordingHook captures approvals.
type recordingHook struct {
	approved []int64
}

func (h *recordingHook) ReceiptApproved(ctx context.Context, r *model.Receipt, rv *model.ReceiptValidation) error {
	h.approved = append(h.approved, r.ID)
	return nil
}

func TestApprovalHooksRun(t *testing.T) {
	f := newAuthorizerFixtures(t)
	hook := &recordingHook{}
	f.auth.AddHook(hook)

	r := f.createReceipt(t, 6)
	errs, err := f.auth.Validate(context.Background(), []*model.Receipt{r})
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, []int64{r.ID}, hook.approved)
}

func TestMetadataRefresh(t *testing.T) {
	f := newAuthorizerFixtures(t)
	ctx := context.Background()

	f.fake.paramTypes = []model.GenericType{
		{Kind: model.KindReceiptType, Code: "6", Description: "Factura B"},
		{Kind: model.KindReceiptType, Code: "11", Description: "Factura C"},
	}

	svc := NewMetadataService(f.store, f.fake, wsaa.NewTicketService(f.store, nil))
	require.NoError(t, svc.Refresh(ctx, model.KindReceiptType))

	types, err := f.store.GenericTypes(ctx, model.KindReceiptType)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Factura B", types[0].Description)
}
