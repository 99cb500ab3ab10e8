package types

// Notification is the outbound event emitted when a live refresh merges a
// genuinely new record into a displayed list. Delivery is best-effort and
// unordered; the UI auto-dismisses after DismissAfterMS.
type Notification struct {
	Type           string          `json:"type"` // always "notification"
	Message        string          `json:"message"`
	Category       string          `json:"category"` // the outcome name of the affected list
	Status         OutcomeCategory `json:"status"`   // classified outcome of the new record
	Count          int             `json:"count"`
	DismissAfterMS int             `json:"dismissAfterMs"`
}
