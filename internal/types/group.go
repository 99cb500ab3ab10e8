package types

import "time"

// CallGroup clusters the call attempts belonging to one contact engagement.
// Groups are ephemeral and rebuilt on every fetch; their key must therefore be
// deterministic so repeated fetches produce identical group identities.
type CallGroup struct {
	Key                string                `json:"key"` // upstream group id, else contactId|campaignId|firedDate
	Members            []CanonicalCallRecord `json:"members"`
	FirstCallTime      time.Time             `json:"firstCallTime"`
	LatestCallTime     time.Time             `json:"latestCallTime"`
	LatestCallDuration float64               `json:"latestCallDuration"` // seconds
	TotalDuration      float64               `json:"totalDuration"`      // seconds
	HasSuccessfulCall  bool                  `json:"hasSuccessfulCall"`
}

// Size returns the number of member attempts. Singleton groups render as a
// plain row, larger ones as a collapsible header.
func (g *CallGroup) Size() int {
	return len(g.Members)
}
