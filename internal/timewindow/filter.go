package timewindow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// Window is a date range plus an optional time-of-day range. Dates are
// calendar dates (YYYY-MM-DD), clock times are HH:MM in the business timezone.
type Window struct {
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
	TimeFrom string `json:"timeFrom,omitempty"`
	TimeTo   string `json:"timeTo,omitempty"`
}

// Signature renders the window as a stable string for cache keys. Cache
// entries store the Window itself; the signature is only ever used as an
// opaque key component, never parsed back.
func (w Window) Signature() string {
	return strings.Join([]string{w.DateFrom, w.DateTo, w.TimeFrom, w.TimeTo}, "~")
}

// HasTimeFilter reports whether a time-of-day bound is active
func (w Window) HasTimeFilter() bool {
	return w.TimeFrom != "" || w.TimeTo != ""
}

// HasDateFilter reports whether a date bound is active
func (w Window) HasDateFilter() bool {
	return w.DateFrom != "" || w.DateTo != ""
}

// Filter applies timezone-correct window predicates to canonical records.
// The business timezone is a fixed offset from UTC; the upstream store has no
// DST, so conversion is plain modulo-24 hour arithmetic.
type Filter struct {
	offsetHours int
	logger      zerolog.Logger
}

// NewFilter creates a new Filter with the given business-timezone offset
func NewFilter(offsetHours int, logger zerolog.Logger) *Filter {
	return &Filter{
		offsetHours: offsetHours,
		logger:      logger.With().Str("component", "timewindow").Logger(),
	}
}

// OffsetHours returns the configured business-timezone offset
func (f *Filter) OffsetHours() int {
	return f.offsetHours
}

// Apply returns the records whose fired date falls inside the window's date
// range and whose recording start, converted to business-local clock time,
// falls inside the time-of-day range.
//
// A window with DateFrom but no DateTo is a single-day query: the UI defaults
// to one day and omits the end bound. When a time-of-day filter is active, a
// record with no recording start is excluded rather than treated as a
// wildcard; there is nothing to compare against the bound. Records without a
// fired date are excluded whenever a date filter is active.
func (f *Filter) Apply(records []types.CanonicalCallRecord, w Window) []types.CanonicalCallRecord {
	w = normalizeWindow(w)

	out := make([]types.CanonicalCallRecord, 0, len(records))
	for _, r := range records {
		if !f.matchesDate(r, w) {
			continue
		}
		if !f.matchesTimeOfDay(r, w) {
			continue
		}
		out = append(out, r)
	}

	f.logger.Debug().
		Int("input", len(records)).
		Int("output", len(out)).
		Str("window", w.Signature()).
		Msg("applied time window")

	return out
}

// normalizeWindow fills the single-day default
func normalizeWindow(w Window) Window {
	if w.DateFrom != "" && w.DateTo == "" {
		w.DateTo = w.DateFrom
	}
	return w
}

func (f *Filter) matchesDate(r types.CanonicalCallRecord, w Window) bool {
	if !w.HasDateFilter() {
		return true
	}
	if r.FiredDate == "" {
		return false
	}
	// YYYY-MM-DD compares correctly as a string
	if w.DateFrom != "" && r.FiredDate < w.DateFrom {
		return false
	}
	if w.DateTo != "" && r.FiredDate > w.DateTo {
		return false
	}
	return true
}

func (f *Filter) matchesTimeOfDay(r types.CanonicalCallRecord, w Window) bool {
	if !w.HasTimeFilter() {
		return true
	}
	if r.RecordingStart == nil {
		// A time bound needs explicit time data to compare against
		return false
	}

	local := f.localMinutes(r)

	hasFrom := w.TimeFrom != ""
	hasTo := w.TimeTo != ""

	// An unparseable bound is dropped entirely; it must not act as 00:00
	from, err := parseClock(w.TimeFrom)
	if err != nil {
		f.logger.Warn().Str("time_from", w.TimeFrom).Msg("unparseable time bound, ignoring")
		hasFrom = false
	}
	to, err := parseClock(w.TimeTo)
	if err != nil {
		f.logger.Warn().Str("time_to", w.TimeTo).Msg("unparseable time bound, ignoring")
		hasTo = false
	}

	switch {
	case !hasFrom && !hasTo:
		return true
	case hasFrom && hasTo:
		if from <= to {
			return local >= from && local <= to
		}
		// Range wraps midnight
		return local >= from || local <= to
	case hasFrom:
		return local >= from
	default:
		return local <= to
	}
}

// localMinutes converts the UTC recording start to minutes past midnight in
// the business timezone, wrapping modulo 24 hours.
func (f *Filter) localMinutes(r types.CanonicalCallRecord) int {
	utc := r.RecordingStart.UTC()
	h := (utc.Hour() + f.offsetHours) % 24
	if h < 0 {
		h += 24
	}
	return h*60 + utc.Minute()
}

// parseClock parses HH:MM into minutes past midnight
func parseClock(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// ToUTCClock shifts a business-local HH:MM to the UTC clock time the upstream
// store must be queried with, wrapping modulo 24 hours.
func (f *Filter) ToUTCClock(local string) (string, error) {
	mins, err := parseClock(local)
	if err != nil {
		return "", err
	}
	mins -= f.offsetHours * 60
	mins %= 24 * 60
	if mins < 0 {
		mins += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60), nil
}
