package stats

import (
	"sort"
	"time"

	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// Categorizer classifies a record into the fixed outcome taxonomy
type Categorizer interface {
	Categorize(r types.CanonicalCallRecord) types.OutcomeCategory
}

const secondsPerHour = 3600.0

// Aggregator folds deduplicated, filtered records into per (agent, campaign,
// day) stat buckets. Buckets are built fresh per run and never persisted.
type Aggregator struct {
	workdayHours float64 // normalization constant for success-per-hour, not elapsed time
	logger       zerolog.Logger
}

// NewAggregator creates a new Aggregator. workdayHours is the standard
// workday length the success rate is normalized against (default 7.5).
func NewAggregator(workdayHours float64, logger zerolog.Logger) *Aggregator {
	if workdayHours <= 0 {
		workdayHours = 7.5
	}
	return &Aggregator{
		workdayHours: workdayHours,
		logger:       logger.With().Str("component", "stats").Logger(),
	}
}

// Aggregate produces one StatBucket per distinct (agent, campaign, date)
// triple in the input. Accumulation is commutative over counts and sums, so
// bucket contents are deterministic regardless of input iteration order, and
// re-running over already-clean input yields identical buckets.
//
// All duration fields arrive in seconds; the unit was fixed once at the query
// boundary. Records missing a fired date cannot be bucketed by day and are
// skipped with a warning, never failing the whole batch.
func (a *Aggregator) Aggregate(records []types.CanonicalCallRecord, classifier Categorizer) []types.StatBucket {
	start := time.Now()
	buckets := make(map[types.BucketKey]*types.StatBucket)

	for _, r := range records {
		if r.FiredDate == "" {
			a.logger.Warn().
				Str("transaction_id", r.TransactionID).
				Str("agent", r.AgentLogin).
				Msg("record without fired date skipped in aggregation")
			continue
		}

		key := types.BucketKey{AgentID: r.AgentLogin, CampaignID: r.CampaignID, Date: r.FiredDate}
		b, ok := buckets[key]
		if !ok {
			b = &types.StatBucket{
				AgentID:       key.AgentID,
				CampaignID:    key.CampaignID,
				Date:          key.Date,
				OutcomeCounts: make(map[string]int),
			}
			buckets[key] = b
		}

		a.accumulate(b, r, classifier)
	}

	out := make([]types.StatBucket, 0, len(buckets))
	for _, b := range buckets {
		a.finalize(b)
		out = append(out, *b)
	}

	// Deterministic output order
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}
		if out[i].CampaignID != out[j].CampaignID {
			return out[i].CampaignID < out[j].CampaignID
		}
		return out[i].Date < out[j].Date
	})

	metrics.Get().RecordAggregationRun(time.Since(start))
	a.logger.Debug().
		Int("records", len(records)).
		Int("buckets", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("aggregation run complete")

	return out
}

func (a *Aggregator) accumulate(b *types.StatBucket, r types.CanonicalCallRecord, classifier Categorizer) {
	b.TotalCalls++

	detail := r.StatusDetail
	if detail == "" {
		detail = types.UnknownOutcome
	}
	b.OutcomeCounts[detail]++

	b.TalkHours += r.Duration / secondsPerHour
	b.WaitHours += r.WaitTime / secondsPerHour
	b.WrapupHours += r.EditTime / secondsPerHour
	b.PrepHours += r.PauseTime / secondsPerHour

	// The structured status drives the completion counters; when it is absent
	// or unrecognized the classified label decides. Open adds to neither, but
	// the record is already in the total and the outcome map.
	switch categoryOf(r, classifier) {
	case types.OutcomePositive:
		b.SuccessfulCalls++
		b.CompletedCalls++
	case types.OutcomeNegative:
		b.CompletedCalls++
	}
}

func (a *Aggregator) finalize(b *types.StatBucket) {
	b.WorkHours = b.WaitHours + b.TalkHours + b.WrapupHours + b.PrepHours
	b.SuccessPerHour = float64(b.SuccessfulCalls) / a.workdayHours

	// Data-quality invariant: the outcome map must account for every record.
	// A mismatch means an unmapped status slipped through; report it, but
	// still return the bucket.
	if sum := b.OutcomeCountSum(); sum != b.TotalCalls {
		metrics.Get().RecordInvariantViolation()
		a.logger.Error().
			Str("agent", b.AgentID).
			Str("campaign", b.CampaignID).
			Str("date", b.Date).
			Int("outcome_sum", sum).
			Int("total", b.TotalCalls).
			Msg("outcome counts do not sum to total calls")
	}
}

func categoryOf(r types.CanonicalCallRecord, classifier Categorizer) types.OutcomeCategory {
	if classifier == nil {
		switch r.Status {
		case types.StatusSuccess:
			return types.OutcomePositive
		case types.StatusDeclined:
			return types.OutcomeNegative
		}
		return types.OutcomeOpen
	}
	return classifier.Categorize(r)
}
