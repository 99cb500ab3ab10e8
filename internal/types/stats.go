package types

// UnknownOutcome is the detail-label key used when a record carries no
// outcome label at all. Keeping it in the outcome map preserves the
// counts-sum-equals-total invariant.
const UnknownOutcome = "Unknown"

// BucketKey identifies one aggregation bucket
type BucketKey struct {
	AgentID    string `json:"agentId"`
	CampaignID string `json:"campaignId"`
	Date       string `json:"date"` // YYYY-MM-DD, business timezone
}

// StatBucket is the per (agent, campaign, day) aggregation unit. Buckets are
// built fresh on every aggregation run and never persisted.
// Invariant: the outcome-count map sums to TotalCalls.
type StatBucket struct {
	AgentID         string         `json:"agentId"`
	CampaignID      string         `json:"campaignId"`
	Date            string         `json:"date"`
	TotalCalls      int            `json:"totalCalls"`
	CompletedCalls  int            `json:"completedCalls"`  // positive + negative
	SuccessfulCalls int            `json:"successfulCalls"` // positive only
	WaitHours       float64        `json:"waitHours"`
	TalkHours       float64        `json:"talkHours"`
	WrapupHours     float64        `json:"wrapupHours"`
	PrepHours       float64        `json:"prepHours"`
	WorkHours       float64        `json:"workHours"`      // wait + talk + wrapup + prep
	SuccessPerHour  float64        `json:"successPerHour"` // successful / standard workday length
	OutcomeCounts   map[string]int `json:"outcomeCounts"`  // detail label -> occurrences
}

// Key returns the bucket's identity triple
func (b *StatBucket) Key() BucketKey {
	return BucketKey{AgentID: b.AgentID, CampaignID: b.CampaignID, Date: b.Date}
}

// OutcomeCountSum sums the outcome-detail occurrence map
func (b *StatBucket) OutcomeCountSum() int {
	sum := 0
	for _, n := range b.OutcomeCounts {
		sum += n
	}
	return sum
}
