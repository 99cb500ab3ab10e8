package timewindow

import (
	"bytes"
	"testing"
	"time"

	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

func newTestFilter() *Filter {
	return NewFilter(3, zerolog.New(&bytes.Buffer{}))
}

func rec(firedDate, utcStart string) types.CanonicalCallRecord {
	r := types.CanonicalCallRecord{FiredDate: firedDate}
	if utcStart != "" {
		t, err := time.Parse(time.RFC3339, utcStart)
		if err != nil {
			panic(err)
		}
		r.RecordingStart = &t
	}
	return r
}

func TestSingleDayDefault(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-08-31", ""),
		rec("2025-09-01", ""),
		rec("2025-09-02", ""),
	}

	out := f.Apply(records, Window{DateFrom: "2025-09-01"})

	if len(out) != 1 {
		t.Fatalf("expected exactly the single day, got %d records", len(out))
	}
	if out[0].FiredDate != "2025-09-01" {
		t.Errorf("expected fired date 2025-09-01, got %s", out[0].FiredDate)
	}
}

func TestDateRange(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-08-30", ""),
		rec("2025-08-31", ""),
		rec("2025-09-01", ""),
		rec("2025-09-02", ""),
	}

	out := f.Apply(records, Window{DateFrom: "2025-08-31", DateTo: "2025-09-01"})
	if len(out) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(out))
	}
}

func TestMissingFiredDateExcludedWhenDateFilterActive(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("", "2025-09-01T10:00:00Z"),
		rec("2025-09-01", ""),
	}

	out := f.Apply(records, Window{DateFrom: "2025-09-01"})
	if len(out) != 1 {
		t.Fatalf("expected record without fired date to be excluded, got %d", len(out))
	}

	// Without a date filter the record stays
	out = f.Apply(records, Window{})
	if len(out) != 2 {
		t.Errorf("expected both records without a date filter, got %d", len(out))
	}
}

func TestTimezoneConversionWrapsMidnight(t *testing.T) {
	f := newTestFilter()

	// UTC 21:30 is local 00:30 at +3
	records := []types.CanonicalCallRecord{
		rec("2025-09-01", "2025-09-01T21:30:00Z"),
	}

	// Local window 00:00-01:00 must match
	out := f.Apply(records, Window{TimeFrom: "00:00", TimeTo: "01:00"})
	if len(out) != 1 {
		t.Fatalf("expected UTC 21:30 to match local 00:30 window, got %d records", len(out))
	}

	// Local window 21:00-22:00 must not match
	out = f.Apply(records, Window{TimeFrom: "21:00", TimeTo: "22:00"})
	if len(out) != 0 {
		t.Errorf("expected UTC 21:30 not to match local 21:00-22:00, got %d records", len(out))
	}
}

func TestTimeFilterExcludesMissingStart(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-09-01", ""),
		rec("2025-09-01", "2025-09-01T07:00:00Z"), // local 10:00
	}

	out := f.Apply(records, Window{TimeFrom: "09:00", TimeTo: "11:00"})
	if len(out) != 1 {
		t.Fatalf("record without a start time must be excluded under a time filter, got %d", len(out))
	}
	if out[0].RecordingStart == nil {
		t.Error("wrong record survived the time filter")
	}
}

func TestTimeRangeWrappingMidnight(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-09-01", "2025-09-01T20:30:00Z"), // local 23:30
		rec("2025-09-01", "2025-09-01T22:30:00Z"), // local 01:30
		rec("2025-09-01", "2025-09-01T09:00:00Z"), // local 12:00
	}

	out := f.Apply(records, Window{TimeFrom: "23:00", TimeTo: "02:00"})
	if len(out) != 2 {
		t.Fatalf("expected 2 records inside the wrapping range, got %d", len(out))
	}
}

func TestOpenEndedTimeBounds(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-09-01", "2025-09-01T05:00:00Z"), // local 08:00
		rec("2025-09-01", "2025-09-01T14:00:00Z"), // local 17:00
	}

	out := f.Apply(records, Window{TimeFrom: "12:00"})
	if len(out) != 1 || out[0].DisplayTime(3) != "17:00" {
		t.Errorf("expected only the afternoon record for an open-ended from bound")
	}

	out = f.Apply(records, Window{TimeTo: "12:00"})
	if len(out) != 1 || out[0].DisplayTime(3) != "08:00" {
		t.Errorf("expected only the morning record for an open-ended to bound")
	}
}

func TestUnparseableTimeBoundIsDropped(t *testing.T) {
	f := newTestFilter()

	records := []types.CanonicalCallRecord{
		rec("2025-09-01", "2025-09-01T05:00:00Z"), // local 08:00
		rec("2025-09-01", "2025-09-01T14:00:00Z"), // local 17:00
	}

	// A garbage to-bound must not act as 00:00 and exclude everything
	out := f.Apply(records, Window{TimeTo: "garbage"})
	if len(out) != 2 {
		t.Fatalf("expected unparseable bound to be ignored, got %d records", len(out))
	}

	// The valid half of the window still applies
	out = f.Apply(records, Window{TimeFrom: "12:00", TimeTo: "garbage"})
	if len(out) != 1 || out[0].DisplayTime(3) != "17:00" {
		t.Errorf("expected only the valid from bound to apply")
	}
}

func TestToUTCClock(t *testing.T) {
	f := newTestFilter()

	tests := []struct {
		local string
		want  string
	}{
		{"12:00", "09:00"},
		{"00:30", "21:30"}, // wraps back across midnight
		{"03:00", "00:00"},
	}

	for _, tt := range tests {
		got, err := f.ToUTCClock(tt.local)
		if err != nil {
			t.Fatalf("ToUTCClock(%s): %v", tt.local, err)
		}
		if got != tt.want {
			t.Errorf("ToUTCClock(%s) = %s, want %s", tt.local, got, tt.want)
		}
	}

	if _, err := f.ToUTCClock("25:99"); err == nil {
		t.Error("expected error for out-of-range clock time")
	}
}

func TestWindowSignatureStable(t *testing.T) {
	w := Window{DateFrom: "2025-09-01", TimeFrom: "08:00", TimeTo: "17:00"}
	if w.Signature() != Window(w).Signature() {
		t.Error("signature must be deterministic")
	}
	other := Window{DateFrom: "2025-09-02", TimeFrom: "08:00", TimeTo: "17:00"}
	if w.Signature() == other.Signature() {
		t.Error("different windows must have different signatures")
	}
}
