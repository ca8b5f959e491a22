package wsfe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
	"github.com/afip-tools/go-afip-client/afip/wsaa"
)

// ApprovalHook runs after a receipt is approved and its validation
// persisted. Hook errors are logged, never propagated: the approval
// already happened remotely and must not be undone locally.
type ApprovalHook interface {
	ReceiptApproved(ctx context.Context, r *model.Receipt, rv *model.ReceiptValidation) error
}

// Authorizer drives the CAE authorization flow: number assignment,
// batch submission and reconciliation of the per-receipt outcomes.
type Authorizer struct {
	store   *store.Store
	client  Client
	tickets *wsaa.TicketService
	hooks   []ApprovalHook

	// allowInTx disables the open-transaction guard. Tests only.
	allowInTx bool
}

func NewAuthorizer(st *store.Store, client Client, tickets *wsaa.TicketService) *Authorizer {
	return &Authorizer{store: st, client: client, tickets: tickets}
}

// AddHook registers a post-approval hook. Hooks run in registration
// order.
func (a *Authorizer) AddHook(h ApprovalHook) {
	a.hooks = append(a.hooks, h)
}

// AllowInsideTransaction disables the transaction guard so tests can run
// the whole flow against an in-memory store. Never call it in production
// code paths.
func (a *Authorizer) AllowInsideTransaction() {
	a.allowInTx = true
}

// Validate submits the receipts for CAE authorization. Already-validated
// receipts are skipped; an empty or fully-validated input is a no-op that
// performs no remote call. Receipts without a number are assigned the
// next numbers after AFIP's last authorized one, atomically, immediately
// before submission.
//
// The returned slice holds one human-readable message per rejected
// receipt; a non-nil error means the batch as a whole could not be
// processed. Approval and rejection coexist: a partial batch persists
// validations for the approved receipts and reports the rejected ones.
func (a *Authorizer) Validate(ctx context.Context, receipts []*model.Receipt) ([]string, error) {
	pending, err := a.pending(ctx, receipts)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if err := checkHomogeneous(pending); err != nil {
		return nil, err
	}
	for _, r := range pending {
		if err := r.CheckTotals(); err != nil {
			return nil, fmt.Errorf("receipt %d: %w", r.ID, err)
		}
	}

	// The remote call is a non-idempotent side effect. If it ran inside an
	// open transaction a later rollback would discard the local record of
	// numbers AFIP already honored.
	if a.store.InTransaction() && !a.allowInTx {
		return nil, afip.ErrInsideTransaction
	}

	pos, err := a.store.GetPointOfSales(ctx, pending[0].PointOfSalesID)
	if err != nil {
		return nil, err
	}
	tp, err := a.store.GetTaxPayer(ctx, pos.TaxPayerID)
	if err != nil {
		return nil, err
	}
	ticket, err := a.tickets.GetOrCreate(ctx, tp, model.ServiceWsfe)
	if err != nil {
		return nil, err
	}
	auth := Auth{
		Token:       ticket.Token,
		Signature:   ticket.Signature,
		CUIT:        tp.CUIT,
		Environment: tp.Environment(),
	}

	receiptType := pending[0].ReceiptTypeCode
	last, err := a.client.LastAuthorized(ctx, auth, pos.Number, receiptType)
	if err != nil {
		return nil, err
	}

	claimed, err := a.assignNumbers(ctx, pending, last)
	if err != nil {
		a.releaseNumbers(ctx, claimed)
		return nil, err
	}

	batch, err := NewBatch(pos.Number, pending)
	if err != nil {
		a.releaseNumbers(ctx, claimed)
		return nil, err
	}

	// From here on the remote side may have seen the numbers, so claims
	// are only released per receipt when AFIP explicitly rejects it.
	resp, err := a.client.Authorize(ctx, auth, batch)
	if err != nil {
		return nil, err
	}

	return a.reconcile(ctx, pending, resp)
}

// ValidateStrict is Validate in fail-fast mode: any rejection is returned
// as *afip.ValidationError carrying the first rejection message. Approved
// receipts from the same batch keep their validations.
func (a *Authorizer) ValidateStrict(ctx context.Context, receipts []*model.Receipt) error {
	errs, err := a.Validate(ctx, receipts)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return &afip.ValidationError{Message: errs[0]}
	}
	return nil
}

// Revalidate reconciles a receipt whose submission outcome was lost, for
// example after a crash between the remote call and the local commit. It
// queries AFIP for the receipt's number and persists a validation if the
// remote side approved it. Returns the validation, or nil when AFIP has
// no approved record for the number.
func (a *Authorizer) Revalidate(ctx context.Context, r *model.Receipt) (*model.ReceiptValidation, error) {
	existing, err := a.store.GetReceiptValidation(ctx, r.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if r.ReceiptNumber == nil {
		return nil, nil
	}

	pos, err := a.store.GetPointOfSales(ctx, r.PointOfSalesID)
	if err != nil {
		return nil, err
	}
	tp, err := a.store.GetTaxPayer(ctx, pos.TaxPayerID)
	if err != nil {
		return nil, err
	}
	ticket, err := a.tickets.GetOrCreate(ctx, tp, model.ServiceWsfe)
	if err != nil {
		return nil, err
	}
	auth := Auth{
		Token:       ticket.Token,
		Signature:   ticket.Signature,
		CUIT:        tp.CUIT,
		Environment: tp.Environment(),
	}

	fetched, err := a.client.FetchReceipt(ctx, auth, pos.Number, r.ReceiptTypeCode, *r.ReceiptNumber)
	if err != nil {
		return nil, err
	}
	if fetched.Result != model.ResultApproved {
		return nil, nil
	}

	validation := &model.Validation{
		BatchID:       uuid.NewString(),
		ProcessedDate: time.Now(),
		Result:        model.ResultApproved,
	}
	if err := a.store.CreateValidation(ctx, validation); err != nil {
		return nil, err
	}
	rv := &model.ReceiptValidation{
		ValidationID:  validation.ID,
		ReceiptID:     r.ID,
		Result:        model.ResultApproved,
		CAE:           fetched.CAE,
		CAEExpiration: fetched.CAEExpiration,
	}
	if err := a.store.CreateReceiptValidation(ctx, rv); err != nil {
		return nil, err
	}
	a.runHooks(ctx, r, rv)
	return rv, nil
}

// pending filters out receipts that already carry a validation.
func (a *Authorizer) pending(ctx context.Context, receipts []*model.Receipt) ([]*model.Receipt, error) {
	var pending []*model.Receipt
	for _, r := range receipts {
		validated, err := a.store.HasValidation(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if !validated {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func checkHomogeneous(receipts []*model.Receipt) error {
	first := receipts[0]
	for _, r := range receipts[1:] {
		if r.PointOfSalesID != first.PointOfSalesID || r.ReceiptTypeCode != first.ReceiptTypeCode {
			return afip.ErrCannotValidateTogether
		}
	}
	return nil
}

// assignNumbers claims the next numbers after last for every unnumbered
// receipt, in input order. Returns the receipts whose claims this call
// made, so a pre-submission failure can roll them back.
func (a *Authorizer) assignNumbers(ctx context.Context, receipts []*model.Receipt, last int64) ([]*model.Receipt, error) {
	var claimed []*model.Receipt
	next := last
	for _, r := range receipts {
		if r.ReceiptNumber != nil {
			continue
		}
		next++
		ok, err := a.store.ClaimReceiptNumber(ctx, r.ID, next)
		if err != nil {
			return claimed, err
		}
		if !ok {
			return claimed, fmt.Errorf("wsfe: receipt %d was numbered concurrently", r.ID)
		}
		n := next
		r.ReceiptNumber = &n
		claimed = append(claimed, r)
	}
	return claimed, nil
}

func (a *Authorizer) releaseNumbers(ctx context.Context, claimed []*model.Receipt) {
	for _, r := range claimed {
		if err := a.store.ReleaseReceiptNumber(ctx, r.ID); err != nil {
			logger.WithError(err).WithField("receipt_id", r.ID).Error("release receipt number")
			continue
		}
		r.ReceiptNumber = nil
	}
}

// reconcile records the batch outcome: one validation row for the batch,
// a receipt validation per approved receipt, and a released number plus
// an error message per rejected one.
func (a *Authorizer) reconcile(ctx context.Context, receipts []*model.Receipt, resp *BatchResponse) ([]string, error) {
	validation := &model.Validation{
		BatchID:       uuid.NewString(),
		ProcessedDate: time.Now(),
		Result:        resp.Result,
	}
	if err := a.store.CreateValidation(ctx, validation); err != nil {
		return nil, err
	}

	byNumber := make(map[int64]*model.Receipt, len(receipts))
	for _, r := range receipts {
		byNumber[*r.ReceiptNumber] = r
	}

	var errs []string
	for _, d := range resp.Details {
		r, ok := byNumber[d.From]
		if !ok {
			return errs, fmt.Errorf("wsfe: response references unknown receipt number %d", d.From)
		}

		if d.Result == model.ResultApproved {
			rv := &model.ReceiptValidation{
				ValidationID:  validation.ID,
				ReceiptID:     r.ID,
				Result:        model.ResultApproved,
				CAE:           d.CAE,
				CAEExpiration: d.CAEExpiration,
			}
			for _, o := range d.Observations {
				rv.Observations = append(rv.Observations, model.Observation{
					Code:    o.Code,
					Message: o.Message,
				})
			}
			if err := a.store.CreateReceiptValidation(ctx, rv); err != nil {
				return errs, err
			}
			a.runHooks(ctx, r, rv)
			continue
		}

		// Rejected: the number was not honored remotely and goes back to
		// the pool so the sequence stays gapless.
		for _, o := range d.Observations {
			errs = append(errs, fmt.Sprintf("Error %d: %s", o.Code, o.Message))
		}
		if len(d.Observations) == 0 {
			errs = append(errs, fmt.Sprintf("Receipt %d rejected without observations", d.From))
		}
		a.releaseNumbers(ctx, []*model.Receipt{r})
	}
	return errs, nil
}

func (a *Authorizer) runHooks(ctx context.Context, r *model.Receipt, rv *model.ReceiptValidation) {
	for _, h := range a.hooks {
		if err := h.ReceiptApproved(ctx, r, rv); err != nil {
			logger.WithError(err).WithField("receipt_id", r.ID).Warn("approval hook failed")
		}
	}
}
