package grouping

import (
	"sort"
	"strings"

	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// Categorizer classifies a record into the fixed outcome taxonomy
type Categorizer interface {
	Categorize(r types.CanonicalCallRecord) types.OutcomeCategory
}

// Engine clusters individual call attempts into contact engagements for list
// views. Downstream consumers rely on deterministic group identity across
// repeated fetches, so both the key and the ordering are fixed rules.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a new grouping Engine
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "grouping").Logger(),
	}
}

// Group clusters records by the upstream group id when present, else by the
// composite (contactId, campaignId, firedDate). Groups are ordered by their
// earliest attempt time, most recent engagement first; equal times order by
// key ascending so repeated fetches render identically.
func (e *Engine) Group(records []types.CanonicalCallRecord, classifier Categorizer) []types.CallGroup {
	byKey := make(map[string]*types.CallGroup)
	order := make([]string, 0)

	for _, r := range records {
		key := groupKey(r)
		g, ok := byKey[key]
		if !ok {
			g = &types.CallGroup{Key: key}
			byKey[key] = g
			order = append(order, key)
		}

		attempt := r.AttemptTime()
		if g.Members == nil || attempt.Before(g.FirstCallTime) {
			g.FirstCallTime = attempt
		}
		if g.Members == nil || attempt.After(g.LatestCallTime) {
			g.LatestCallTime = attempt
			g.LatestCallDuration = r.Duration
		}

		g.Members = append(g.Members, r)
		g.TotalDuration += r.Duration
		if classifier != nil && classifier.Categorize(r) == types.OutcomePositive {
			g.HasSuccessfulCall = true
		}
	}

	groups := make([]types.CallGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}

	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].FirstCallTime.Equal(groups[j].FirstCallTime) {
			return groups[i].FirstCallTime.After(groups[j].FirstCallTime)
		}
		return groups[i].Key < groups[j].Key
	})

	e.logger.Debug().
		Int("records", len(records)).
		Int("groups", len(groups)).
		Msg("grouped call attempts")

	return groups
}

// groupKey returns the upstream group id, or the composite fallback when
// upstream supplies none.
func groupKey(r types.CanonicalCallRecord) string {
	if r.GroupID != "" {
		return r.GroupID
	}
	return strings.Join([]string{r.ContactID, r.CampaignID, r.FiredDate}, "|")
}
