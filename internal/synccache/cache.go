package synccache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/timewindow"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// EntryState is the lifecycle state of one cache entry
type EntryState string

const (
	StateIdle     EntryState = "idle"
	StateLoading  EntryState = "loading"
	StateReady    EntryState = "ready"
	StateUpdating EntryState = "updating"
	StateFailed   EntryState = "failed"
)

// DefaultDismissAfterMS is how long the UI keeps a merge notification visible
const DefaultDismissAfterMS = 6000

// QueryMeta holds the query parameters an entry was produced with. It is
// stored explicitly next to the entry and used verbatim on every refresh;
// the cache key string is opaque and never parsed back into parameters.
type QueryMeta struct {
	AgentID     string            `json:"agentId"`
	CampaignIDs []string          `json:"campaignIds,omitempty"`
	OutcomeName string            `json:"outcomeName"`
	Window      timewindow.Window `json:"window"`
}

// Key renders the entry key for this metadata. Every field that changes what
// the fetch returns is part of the key; campaign filters are sorted so the
// same filter set always lands on the same entry.
func (m QueryMeta) Key() string {
	campaigns := make([]string, len(m.CampaignIDs))
	copy(campaigns, m.CampaignIDs)
	sort.Strings(campaigns)
	return strings.Join([]string{
		m.AgentID,
		m.OutcomeName,
		m.Window.Signature(),
		strings.Join(campaigns, ","),
	}, "::")
}

// FetchFunc fetches the current grouped/filtered call-detail list for a query
type FetchFunc func(ctx context.Context, meta QueryMeta) ([]types.CanonicalCallRecord, error)

// Notifier receives merge notifications; delivery must not block the merge
type Notifier interface {
	Publish(n types.Notification)
}

// Categorizer classifies a record into the fixed outcome taxonomy
type Categorizer interface {
	Categorize(r types.CanonicalCallRecord) types.OutcomeCategory
}

// Result is what Get hands back to the caller
type Result struct {
	Records []types.CanonicalCallRecord `json:"records"`
	Loading bool                        `json:"loading"`
	Failed  bool                        `json:"failed"`
}

type entry struct {
	meta        QueryMeta
	state       EntryState
	records     []types.CanonicalCallRecord
	seen        map[string]struct{} // content fingerprints already displayed
	lastRefresh time.Time
	loadErr     error
}

// Cache holds previously fetched, already-displayed result sets and
// reconciles them against freshly fetched data on a fixed polling cadence,
// merging only genuinely new items. Entries are independent; the updating
// state is the per-key mutual exclusion, so a single key never has two
// refreshes in flight.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	fetch       FetchFunc
	notifier    Notifier
	classifier  Categorizer
	clock       func() time.Time
	interval    time.Duration
	offsetHours int
	logger      zerolog.Logger
}

// NewCache creates a Cache. The clock and polling interval are injected so
// tests can drive the cache deterministically; a nil clock means time.Now.
func NewCache(fetch FetchFunc, notifier Notifier, classifier Categorizer, offsetHours int, interval time.Duration, clock func() time.Time, logger zerolog.Logger) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries:     make(map[string]*entry),
		fetch:       fetch,
		notifier:    notifier,
		classifier:  classifier,
		clock:       clock,
		interval:    interval,
		offsetHours: offsetHours,
		logger:      logger.With().Str("component", "synccache").Logger(),
	}
}

// Get returns the current cached list for the metadata's key. When no entry
// exists yet it starts an asynchronous initial load and reports an empty list
// with loading=true. A failed initial load is reported explicitly so the UI
// can distinguish "load failed" from "genuinely zero calls"; the next Get for
// a failed entry retries the load, so a transient outage never pins the key.
func (c *Cache) Get(meta QueryMeta) Result {
	key := meta.Key()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		if e.state == StateFailed {
			e.state = StateLoading
			e.loadErr = nil
			c.mu.Unlock()
			go c.initialLoad(key, meta)
			return Result{Records: []types.CanonicalCallRecord{}, Loading: true, Failed: true}
		}
		res := Result{
			Records: copyRecords(e.records),
			Loading: e.state == StateLoading,
		}
		c.mu.Unlock()
		return res
	}

	e = &entry{
		meta:  meta,
		state: StateLoading,
		seen:  make(map[string]struct{}),
	}
	c.entries[key] = e
	metrics.Get().SetCacheEntries(len(c.entries))
	c.mu.Unlock()

	go c.initialLoad(key, meta)

	return Result{Records: []types.CanonicalCallRecord{}, Loading: true}
}

// initialLoad performs the first fetch for a new entry. The upstream store
// enforces its own query timeout.
func (c *Cache) initialLoad(key string, meta QueryMeta) {
	records, err := c.fetch(context.Background(), meta)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if err != nil {
		e.state = StateFailed
		e.loadErr = err
		e.records = []types.CanonicalCallRecord{}
		metrics.Get().RecordUpstreamError()
		c.logger.Error().Err(err).Str("key", key).Msg("initial load failed")
		return
	}

	e.records = sortDisplay(records)
	e.seen = make(map[string]struct{}, len(records))
	for _, r := range records {
		e.seen[Fingerprint(r, c.offsetHours)] = struct{}{}
	}
	e.state = StateReady
	e.lastRefresh = c.clock()

	c.logger.Debug().Str("key", key).Int("records", len(records)).Msg("initial load complete")
}

// Refresh re-fetches an entry using its stored metadata and merges the result.
// Only ready entries refresh; loading or updating entries are skipped so a
// key never has overlapping fetches. A failed refresh keeps the previous list
// intact and returns the entry to ready with stale-but-valid data.
func (c *Cache) Refresh(ctx context.Context, key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.state != StateReady {
		c.mu.Unlock()
		return
	}
	e.state = StateUpdating
	meta := e.meta
	c.mu.Unlock()

	metrics.Get().RecordRefreshCycle()
	fresh, err := c.fetch(ctx, meta)

	c.mu.Lock()
	e, ok = c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.state = StateReady

	if err != nil {
		c.mu.Unlock()
		metrics.Get().RecordRefreshError()
		c.logger.Warn().Err(err).Str("key", key).Msg("background refresh failed, keeping stale data")
		return
	}

	merged := c.mergeLocked(e, fresh)
	e.lastRefresh = c.clock()
	c.mu.Unlock()

	if len(merged) > 0 {
		metrics.Get().RecordRecordsMerged(len(merged))
		c.logger.Info().Str("key", key).Int("new_records", len(merged)).Msg("merged new records")
		c.notify(meta, merged)
	}
}

// mergeLocked appends records whose fingerprint has not been displayed yet
// and re-sorts. Records with a known fingerprint are duplicates regardless of
// any ID mismatch. The displayed list never shrinks. Caller holds the lock.
func (c *Cache) mergeLocked(e *entry, fresh []types.CanonicalCallRecord) []types.CanonicalCallRecord {
	var merged []types.CanonicalCallRecord
	for _, r := range fresh {
		fp := Fingerprint(r, c.offsetHours)
		if _, dup := e.seen[fp]; dup {
			continue
		}
		e.seen[fp] = struct{}{}
		e.records = append(e.records, r)
		merged = append(merged, r)
	}
	if len(merged) > 0 {
		e.records = sortDisplay(e.records)
	}
	return merged
}

// notify emits one fire-and-forget notification per genuinely new record
func (c *Cache) notify(meta QueryMeta, merged []types.CanonicalCallRecord) {
	if c.notifier == nil {
		return
	}
	for _, r := range merged {
		status := types.OutcomeOpen
		if c.classifier != nil {
			status = c.classifier.Categorize(r)
		}
		name := r.ContactName
		if name == "" {
			name = r.ContactPerson
		}
		c.notifier.Publish(types.Notification{
			Type:           "notification",
			Message:        fmt.Sprintf("New call: %s", name),
			Category:       meta.OutcomeName,
			Status:         status,
			Count:          1,
			DismissAfterMS: DefaultDismissAfterMS,
		})
		metrics.Get().RecordNotificationSent()
	}
}

// Start runs the background refresh loop: one ticker scanning all ready
// entries per tick. Entries still loading or updating are left alone.
func (c *Cache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Msg("sync cache poller started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("sync cache poller stopped")
			return

		case <-ticker.C:
			for _, key := range c.readyKeys() {
				c.Refresh(ctx, key)
			}
		}
	}
}

// readyKeys snapshots the keys currently eligible for a refresh
func (c *Cache) readyKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if e.state == StateReady {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// State returns the lifecycle state of an entry, or idle when none exists
func (c *Cache) State(key string) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return StateIdle
}

// EntryCount returns the number of cache entries
func (c *Cache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sortDisplay orders a display list by attempt time descending with the
// transaction id as a stable tie-break.
func sortDisplay(records []types.CanonicalCallRecord) []types.CanonicalCallRecord {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].AttemptTime(), records[j].AttemptTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].TransactionID < records[j].TransactionID
	})
	return records
}

func copyRecords(records []types.CanonicalCallRecord) []types.CanonicalCallRecord {
	out := make([]types.CanonicalCallRecord, len(records))
	copy(out, records)
	return out
}
