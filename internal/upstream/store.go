package upstream

import (
	"context"

	"github.com/mhartmann/telestats/internal/types"
)

// QueryParams parameterize the read-only call-event query. Time-of-day
// bounds are already converted to UTC clock times; the store never sees
// business-local time.
type QueryParams struct {
	AgentLogins []string
	CampaignIDs []string
	DateFrom    string // YYYY-MM-DD, inclusive
	DateTo      string // YYYY-MM-DD, inclusive
	TimeFromUTC string // HH:MM, optional
	TimeToUTC   string // HH:MM, optional
}

// Store is the read-only contract against the upstream telephony event store.
// The store is append-only and not under our control; deduplication of its
// join-fan-out rows is the consuming engine's responsibility, not the query's.
type Store interface {
	FetchCallEvents(ctx context.Context, p QueryParams) ([]types.RawCallEvent, error)
	FetchOutcomeCategories(ctx context.Context) ([]types.OutcomeCategoryTable, error)
}

// NoopStore is used when no upstream DSN is configured (local development)
type NoopStore struct{}

// NewNoopStore creates a NoopStore
func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) FetchCallEvents(_ context.Context, _ QueryParams) ([]types.RawCallEvent, error) {
	return nil, nil
}

func (s *NoopStore) FetchOutcomeCategories(_ context.Context) ([]types.OutcomeCategoryTable, error) {
	return nil, nil
}
