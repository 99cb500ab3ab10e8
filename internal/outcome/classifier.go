package outcome

import (
	"sort"
	"strings"
	"sync"

	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// sentinelLabels are system-generated labels that are always open, regardless
// of what any campaign's category table says. They are matched on the trimmed
// raw label, before normalization-based lookup.
var sentinelLabels = map[string]struct{}{
	"$none":               {},
	"$assigned":           {},
	"$follow_up_auto":     {},
	"$follow_up_personal": {},
}

// Classifier maps free-text outcome labels into the fixed taxonomy using
// per-campaign category tables with a global "all" fallback. Tables are
// read-only reference data, replaceable at call time via ReplaceTables.
type Classifier struct {
	mu     sync.RWMutex
	tables map[string]types.OutcomeCategoryTable // campaign id (or "all") -> table
	logger zerolog.Logger
}

// NewClassifier creates a Classifier with no tables loaded. Until tables
// arrive everything classifies as open, the safe default.
func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{
		tables: make(map[string]types.OutcomeCategoryTable),
		logger: logger.With().Str("component", "outcome").Logger(),
	}
}

// ReplaceTables swaps in a fresh set of category tables
func (c *Classifier) ReplaceTables(tables []types.OutcomeCategoryTable) {
	next := make(map[string]types.OutcomeCategoryTable, len(tables))
	for _, t := range tables {
		next[t.CampaignID] = t
	}

	c.mu.Lock()
	c.tables = next
	c.mu.Unlock()

	c.logger.Info().Int("tables", len(next)).Msg("outcome category tables replaced")
}

// Normalize canonicalizes a label for comparison: trim, lowercase, spaces to
// underscores. Classification is stable under its own normalization.
func Normalize(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// Classify maps a label to positive, negative or open. Lookup order: sentinel
// labels, the campaign's own table (or the "all" fallback when the campaign
// has none), then every other campaign's table in ascending campaign-id order
// to handle cross-campaign label reuse. The ascending-id order is a fixed,
// documented precedence; an unmatched label is open so the record stays
// counted and visible instead of silently disappearing.
func (c *Classifier) Classify(label, campaignID string) types.OutcomeCategory {
	if _, ok := sentinelLabels[strings.TrimSpace(label)]; ok {
		return types.OutcomeOpen
	}

	norm := Normalize(label)
	if norm == "" {
		return types.OutcomeOpen
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Campaign-specific table, falling back to "all" when the campaign has none
	table, ok := c.tables[campaignID]
	if !ok {
		table = c.tables[types.CatalogAllCampaigns]
	}
	if cat, found := matchTable(table, norm); found {
		return cat
	}

	// Cross-campaign retry in ascending campaign-id order
	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		if id == campaignID || id == types.CatalogAllCampaigns {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if cat, found := matchTable(c.tables[id], norm); found {
			return cat
		}
	}

	// Also consult "all" when the campaign table shadowed it above
	if ok {
		if cat, found := matchTable(c.tables[types.CatalogAllCampaigns], norm); found {
			return cat
		}
	}

	metrics.Get().RecordClassificationMiss()
	c.logger.Debug().
		Str("label", label).
		Str("campaign_id", campaignID).
		Msg("outcome label unmatched, defaulting to open")

	return types.OutcomeOpen
}

// Categorize classifies a whole record: the structured status field wins when
// it is recognized, the free-text label decides otherwise.
func (c *Classifier) Categorize(r types.CanonicalCallRecord) types.OutcomeCategory {
	switch r.Status {
	case types.StatusSuccess:
		return types.OutcomePositive
	case types.StatusDeclined:
		return types.OutcomeNegative
	case types.StatusOpen:
		return types.OutcomeOpen
	}
	return c.Classify(r.StatusDetail, r.CampaignID)
}

// matchTable checks the success, declined and open lists in that order;
// first match wins.
func matchTable(t types.OutcomeCategoryTable, norm string) (types.OutcomeCategory, bool) {
	if containsNormalized(t.Success, norm) {
		return types.OutcomePositive, true
	}
	if containsNormalized(t.Declined, norm) {
		return types.OutcomeNegative, true
	}
	if containsNormalized(t.Open, norm) {
		return types.OutcomeOpen, true
	}
	return "", false
}

func containsNormalized(labels []string, norm string) bool {
	for _, l := range labels {
		if Normalize(l) == norm {
			return true
		}
	}
	return false
}
