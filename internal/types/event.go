package types

import (
	"fmt"
	"time"
)

// CallStatus is the raw disposition the upstream dialer assigns to a call attempt
type CallStatus string

const (
	StatusSuccess  CallStatus = "success"
	StatusDeclined CallStatus = "declined"
	StatusOpen     CallStatus = "open"
)

// RawCallEvent is one row from the upstream telephony store. The store is
// append-only and not under our control: transaction IDs may repeat across
// join-fan-out rows, recording timestamps may be missing, and the connection
// duration has already been normalized to seconds at the query boundary.
type RawCallEvent struct {
	TransactionID  string     `json:"transactionId"` // empty when upstream has no ID for the row
	AgentLogin     string     `json:"agentLogin"`
	CampaignID     string     `json:"campaignId"`
	FiredDate      string     `json:"firedDate"`                // YYYY-MM-DD
	RecordingStart *time.Time `json:"recordingStart,omitempty"` // UTC
	RecordingStop  *time.Time `json:"recordingStop,omitempty"`  // UTC
	Duration       float64    `json:"duration"`                 // seconds
	Status         CallStatus `json:"status,omitempty"`
	StatusDetail   string     `json:"statusDetail,omitempty"` // free-text outcome label
	WaitTime       float64    `json:"waitTime"`               // seconds
	EditTime       float64    `json:"editTime"`               // wrap-up, seconds
	PauseTime      float64    `json:"pauseTime"`              // prep, seconds
	ContactID      string     `json:"contactId,omitempty"`
	ContactName    string     `json:"contactName,omitempty"`
	ContactPerson  string     `json:"contactPerson,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	RecordingURL   string     `json:"recordingUrl,omitempty"`
	GroupID        string     `json:"groupId,omitempty"` // upstream contact-engagement id, often empty
}

// CanonicalCallRecord is exactly one call attempt after deduplication.
// No two records in a result set share a TransactionID.
type CanonicalCallRecord struct {
	TransactionID  string     `json:"transactionId"`
	Synthetic      bool       `json:"synthetic,omitempty"` // ID was derived, not supplied by upstream
	AgentLogin     string     `json:"agentLogin"`
	CampaignID     string     `json:"campaignId"`
	FiredDate      string     `json:"firedDate"`
	RecordingStart *time.Time `json:"recordingStart,omitempty"`
	RecordingStop  *time.Time `json:"recordingStop,omitempty"`
	Duration       float64    `json:"duration"` // seconds
	Status         CallStatus `json:"status,omitempty"`
	StatusDetail   string     `json:"statusDetail,omitempty"`
	WaitTime       float64    `json:"waitTime"`
	EditTime       float64    `json:"editTime"`
	PauseTime      float64    `json:"pauseTime"`
	ContactID      string     `json:"contactId,omitempty"`
	ContactName    string     `json:"contactName,omitempty"`
	ContactPerson  string     `json:"contactPerson,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	RecordingURL   string     `json:"recordingUrl,omitempty"`
	GroupID        string     `json:"groupId,omitempty"`
}

// AttemptTime is the timestamp used to order attempts: the recording start
// when present, else midnight UTC of the fired date, else the zero time.
func (r CanonicalCallRecord) AttemptTime() time.Time {
	if r.RecordingStart != nil {
		return *r.RecordingStart
	}
	if r.FiredDate != "" {
		if t, err := time.Parse("2006-01-02", r.FiredDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DisplayTime renders the recording start as a local HH:MM clock time using
// the fixed business-timezone offset. Empty when no start time exists.
func (r CanonicalCallRecord) DisplayTime(offsetHours int) string {
	if r.RecordingStart == nil {
		return ""
	}
	h := (r.RecordingStart.UTC().Hour() + offsetHours) % 24
	if h < 0 {
		h += 24
	}
	return fmt.Sprintf("%02d:%02d", h, r.RecordingStart.UTC().Minute())
}

// FormattedDuration renders the connection duration as MM:SS.
func (r CanonicalCallRecord) FormattedDuration() string {
	secs := int(r.Duration + 0.5)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
