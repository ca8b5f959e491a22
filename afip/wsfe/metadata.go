package wsfe

import (
	"context"
	"fmt"

	"github.com/afip-tools/go-afip-client/afip/model"
	"github.com/afip-tools/go-afip-client/afip/store"
	"github.com/afip-tools/go-afip-client/afip/wsaa"
)

// MetadataService keeps the local copies of AFIP's lookup dimensions
// current. The tables change rarely; a refresh after setup and an
// occasional scheduled one are enough.
type MetadataService struct {
	store   *store.Store
	client  Client
	tickets *wsaa.TicketService
}

func NewMetadataService(st *store.Store, client Client, tickets *wsaa.TicketService) *MetadataService {
	return &MetadataService{store: st, client: client, tickets: tickets}
}

// RefreshAll fetches and upserts every metadata kind. Authentication uses
// any active ticket, or creates one for the first registered taxpayer.
func (s *MetadataService) RefreshAll(ctx context.Context) error {
	for _, kind := range model.AllMetadataKinds {
		if err := s.Refresh(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

// Refresh updates one metadata kind. Existing codes are updated in place,
// new ones inserted; codes AFIP no longer lists are kept since historical
// receipts still reference them.
func (s *MetadataService) Refresh(ctx context.Context, kind model.MetadataKind) error {
	ticket, err := s.tickets.AnyActive(ctx, model.ServiceWsfe)
	if err != nil {
		return err
	}
	tp, err := s.tickets.TaxPayerFor(ctx, ticket)
	if err != nil {
		return err
	}
	auth := Auth{
		Token:       ticket.Token,
		Signature:   ticket.Signature,
		CUIT:        tp.CUIT,
		Environment: tp.Environment(),
	}

	types, err := s.client.ParamTypes(ctx, auth, kind)
	if err != nil {
		return fmt.Errorf("fetch %s metadata: %w", kind, err)
	}

	for i := range types {
		if err := s.store.UpsertGenericType(ctx, &types[i]); err != nil {
			return err
		}
	}
	logger.WithField("kind", kind).WithField("count", len(types)).Info("metadata refreshed")
	return nil
}
