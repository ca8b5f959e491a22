package wsaa

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/afip-tools/go-afip-client/afip"
	"github.com/afip-tools/go-afip-client/afip/crypto"
	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
	"github.com/afip-tools/go-afip-client/afip/util"
)

// ticketWindow is how long a requested ticket stays valid. WSAA grants
// exactly twelve hours.
const ticketWindow = 12 * time.Hour

var (
	argentinaOnce sync.Once
	argentina     *time.Location
)

// argentinaTZ returns the Argentina time zone the ticket timestamps are
// generated in, falling back to a fixed UTC-3 when tzdata is unavailable.
func argentinaTZ() *time.Location {
	argentinaOnce.Do(func() {
		loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
		if err != nil {
			loc = time.FixedZone("-03", -3*60*60)
		}
		argentina = loc
	})
	return argentina
}

// TicketService obtains, caches and persists authentication tickets per
// (taxpayer, service) pair. Issuance is externally throttled, so an
// unexpired cached ticket always wins over a fresh request.
type TicketService struct {
	store *store.Store
	login LoginClient
}

func NewTicketService(st *store.Store, login LoginClient) *TicketService {
	return &TicketService{store: st, login: login}
}

// GetOrCreate returns the newest unexpired ticket for (taxpayer, service)
// or requests a new one.
func (s *TicketService) GetOrCreate(ctx context.Context, tp *model.TaxPayer, service string) (*model.AuthTicket, error) {
	ticket, err := s.store.LatestTicket(ctx, tp.ID, service, time.Now())
	if err == nil {
		logger.WithField("service", service).Debug("Reusing cached ticket")
		return ticket, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.create(ctx, tp, service)
}

// AnyActive returns any unexpired ticket for the service across all
// taxpayers, creating one for an arbitrary taxpayer when none exists.
// Fails with afip.ErrNoTaxPayers when the store holds no taxpayer at all.
func (s *TicketService) AnyActive(ctx context.Context, service string) (*model.AuthTicket, error) {
	ticket, err := s.store.AnyActiveTicket(ctx, service, time.Now())
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	tp, err := s.store.FirstTaxPayer(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, afip.ErrNoTaxPayers
	}
	if err != nil {
		return nil, err
	}

	return s.create(ctx, tp, service)
}

// TaxPayerFor resolves the owner of a ticket; the WSFE auth header needs
// its CUIT.
func (s *TicketService) TaxPayerFor(ctx context.Context, ticket *model.AuthTicket) (*model.TaxPayer, error) {
	return s.store.GetTaxPayer(ctx, ticket.TaxPayerID)
}

func (s *TicketService) create(ctx context.Context, tp *model.TaxPayer, service string) (*model.AuthTicket, error) {
	now := time.Now().In(argentinaTZ())
	expires := now.Add(ticketWindow)
	uniqueID := rand.Int31()

	tra, err := util.MergeTemplate(&TicketRequest, ticketRequestDTO{
		UniqueID:       uniqueID,
		GenerationTime: util.FormatDatetime(now),
		ExpirationTime: util.FormatDatetime(expires),
		Service:        service,
	})
	if err != nil {
		return nil, fmt.Errorf("render ticket request: %w", err)
	}

	cms, err := crypto.Sign(tra, tp.CertificatePEM, tp.KeyPEM)
	if err != nil {
		return nil, err
	}

	logger.WithField("service", service).
		WithField("unique_id", uniqueID).
		Debug("Requesting new ticket")

	resp, err := s.login.LoginCms(ctx, tp.Environment(), cms)
	if err != nil {
		return nil, err
	}

	if !resp.Expires.IsZero() {
		expires = resp.Expires
	}

	ticket := &model.AuthTicket{
		TaxPayerID: tp.ID,
		Service:    service,
		UniqueID:   uniqueID,
		Generated:  now,
		Expires:    expires,
		Token:      resp.Token,
		Signature:  resp.Signature,
	}
	if err := s.store.SaveTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}
