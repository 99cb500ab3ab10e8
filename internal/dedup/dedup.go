package dedup

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// syntheticNamespace is the fixed UUIDv5 namespace for rows whose transaction
// identifier is missing upstream. Deriving the ID from stable content fields
// keeps it identical across fetches of the same row.
var syntheticNamespace = uuid.MustParse("6f1c0de2-9b7a-4c53-8f2e-3d9b4a1c7e05")

// Deduplicator collapses join-fan-out duplicates from the upstream store into
// one canonical record per transaction identifier.
type Deduplicator struct {
	logger zerolog.Logger
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator(logger zerolog.Logger) *Deduplicator {
	return &Deduplicator{
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Deduplicate returns exactly one CanonicalCallRecord per distinct transaction
// identifier. When multiple rows share an identifier the row with a non-null
// recording start wins; among those, the row with the larger connection
// duration; a full tie keeps the first row seen, so the fold is deterministic
// for a given input order. Rows without a transaction identifier get a
// synthetic one and are never dropped. Pure in-memory fold: it either runs
// over the whole batch or not at all.
func (d *Deduplicator) Deduplicate(events []types.RawCallEvent) []types.CanonicalCallRecord {
	byID := make(map[string]types.RawCallEvent, len(events))
	synthetic := make(map[string]bool)
	order := make([]string, 0, len(events))
	collapsed := 0

	for i, ev := range events {
		id := ev.TransactionID
		if id == "" {
			id = syntheticID(ev, i)
			synthetic[id] = true
			d.logger.Debug().
				Str("transaction_id", id).
				Str("contact_id", ev.ContactID).
				Msg("assigned synthetic transaction id")
		}

		existing, seen := byID[id]
		if !seen {
			byID[id] = ev
			order = append(order, id)
			continue
		}

		collapsed++
		if betterRow(ev, existing) {
			byID[id] = ev
		}
	}

	records := make([]types.CanonicalCallRecord, 0, len(order))
	for _, id := range order {
		records = append(records, canonicalize(id, synthetic[id], byID[id]))
	}

	if collapsed > 0 {
		metrics.Get().RecordDuplicatesCollapsed(collapsed)
		d.logger.Debug().
			Int("input_rows", len(events)).
			Int("output_records", len(records)).
			Int("collapsed", collapsed).
			Msg("collapsed duplicate rows")
	}

	return records
}

// betterRow reports whether candidate should replace current for the same
// transaction id: non-null recording start first, then larger duration.
func betterRow(candidate, current types.RawCallEvent) bool {
	candHasStart := candidate.RecordingStart != nil
	currHasStart := current.RecordingStart != nil

	if candHasStart != currHasStart {
		return candHasStart
	}
	return candidate.Duration > current.Duration
}

// syntheticID derives a deterministic transaction id from stable content
// fields plus the row index, so even byte-identical fan-out rows stay unique.
func syntheticID(ev types.RawCallEvent, index int) string {
	seed := fmt.Sprintf("%s|%s|%s|%d", ev.ContactID, ev.CampaignID, ev.FiredDate, index)
	return uuid.NewSHA1(syntheticNamespace, []byte(seed)).String()
}

func canonicalize(id string, isSynthetic bool, ev types.RawCallEvent) types.CanonicalCallRecord {
	return types.CanonicalCallRecord{
		TransactionID:  id,
		Synthetic:      isSynthetic,
		AgentLogin:     ev.AgentLogin,
		CampaignID:     ev.CampaignID,
		FiredDate:      ev.FiredDate,
		RecordingStart: ev.RecordingStart,
		RecordingStop:  ev.RecordingStop,
		Duration:       ev.Duration,
		Status:         ev.Status,
		StatusDetail:   ev.StatusDetail,
		WaitTime:       ev.WaitTime,
		EditTime:       ev.EditTime,
		PauseTime:      ev.PauseTime,
		ContactID:      ev.ContactID,
		ContactName:    ev.ContactName,
		ContactPerson:  ev.ContactPerson,
		Notes:          ev.Notes,
		RecordingURL:   ev.RecordingURL,
		GroupID:        ev.GroupID,
	}
}
