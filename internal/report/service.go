package report

import (
	"context"
	"fmt"

	"github.com/mhartmann/telestats/internal/dedup"
	"github.com/mhartmann/telestats/internal/grouping"
	"github.com/mhartmann/telestats/internal/outcome"
	"github.com/mhartmann/telestats/internal/stats"
	"github.com/mhartmann/telestats/internal/synccache"
	"github.com/mhartmann/telestats/internal/timewindow"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/mhartmann/telestats/internal/upstream"
	"github.com/rs/zerolog"
)

// StatsQuery parameterizes a productivity report run
type StatsQuery struct {
	AgentLogins []string          `json:"agentLogins,omitempty"`
	CampaignIDs []string          `json:"campaignIds,omitempty"`
	Window      timewindow.Window `json:"window"`
}

// Service runs the full reporting pipeline: fetch, deduplicate, window-filter,
// classify, then aggregate or group depending on the view. It owns no state of
// its own; every call recomputes from upstream data.
type Service struct {
	store      upstream.Store
	dedup      *dedup.Deduplicator
	filter     *timewindow.Filter
	classifier *outcome.Classifier
	aggregator *stats.Aggregator
	grouper    *grouping.Engine
	logger     zerolog.Logger
}

// NewService creates a report Service
func NewService(store upstream.Store, d *dedup.Deduplicator, f *timewindow.Filter, c *outcome.Classifier, a *stats.Aggregator, g *grouping.Engine, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		dedup:      d,
		filter:     f,
		classifier: c,
		aggregator: a,
		grouper:    g,
		logger:     logger.With().Str("component", "report").Logger(),
	}
}

// AgentStats computes per (agent, campaign, day) stat buckets for the query.
// An upstream failure yields an error, never partial buckets.
func (s *Service) AgentStats(ctx context.Context, q StatsQuery) ([]types.StatBucket, error) {
	records, err := s.pipeline(ctx, q.AgentLogins, q.CampaignIDs, q.Window)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(records, s.classifier), nil
}

// CallList computes the grouped call-detail view for the query
func (s *Service) CallList(ctx context.Context, q StatsQuery) ([]types.CallGroup, error) {
	records, err := s.pipeline(ctx, q.AgentLogins, q.CampaignIDs, q.Window)
	if err != nil {
		return nil, err
	}
	return s.grouper.Group(records, s.classifier), nil
}

// FetchCallRecords is the sync cache's fetch function: the deduplicated,
// window-filtered records for one agent, narrowed to the entry's outcome
// label. An empty outcome name means no narrowing.
func (s *Service) FetchCallRecords(ctx context.Context, meta synccache.QueryMeta) ([]types.CanonicalCallRecord, error) {
	var agents []string
	if meta.AgentID != "" {
		agents = []string{meta.AgentID}
	}

	records, err := s.pipeline(ctx, agents, meta.CampaignIDs, meta.Window)
	if err != nil {
		return nil, err
	}
	if meta.OutcomeName == "" {
		return records, nil
	}

	want := outcome.Normalize(meta.OutcomeName)
	out := make([]types.CanonicalCallRecord, 0, len(records))
	for _, r := range records {
		if outcome.Normalize(r.StatusDetail) == want {
			out = append(out, r)
		}
	}
	return out, nil
}

// pipeline runs fetch, dedup and window filtering. Date bounds and a
// non-wrapping time-of-day range are pushed into the upstream query; the
// in-memory filter re-applies the window either way, so the pushdown is a
// pure data-volume optimization.
func (s *Service) pipeline(ctx context.Context, agents, campaigns []string, w timewindow.Window) ([]types.CanonicalCallRecord, error) {
	params, err := s.queryParams(agents, campaigns, w)
	if err != nil {
		return nil, err
	}

	events, err := s.store.FetchCallEvents(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch call events: %w", err)
	}

	records := s.dedup.Deduplicate(events)
	return s.filter.Apply(records, w), nil
}

func (s *Service) queryParams(agents, campaigns []string, w timewindow.Window) (upstream.QueryParams, error) {
	p := upstream.QueryParams{
		AgentLogins: agents,
		CampaignIDs: campaigns,
		DateFrom:    w.DateFrom,
		DateTo:      w.DateTo,
	}
	if p.DateTo == "" {
		p.DateTo = p.DateFrom
	}

	if w.TimeFrom != "" {
		utc, err := s.filter.ToUTCClock(w.TimeFrom)
		if err != nil {
			return upstream.QueryParams{}, fmt.Errorf("invalid time bound: %w", err)
		}
		p.TimeFromUTC = utc
	}
	if w.TimeTo != "" {
		utc, err := s.filter.ToUTCClock(w.TimeTo)
		if err != nil {
			return upstream.QueryParams{}, fmt.Errorf("invalid time bound: %w", err)
		}
		p.TimeToUTC = utc
	}
	return p, nil
}

// RefreshOutcomeTables reloads the outcome category reference into the
// classifier. Failure keeps the previous tables in place.
func (s *Service) RefreshOutcomeTables(ctx context.Context) error {
	tables, err := s.store.FetchOutcomeCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh outcome tables: %w", err)
	}
	s.classifier.ReplaceTables(tables)
	return nil
}
