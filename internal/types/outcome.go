package types

// OutcomeCategory is the fixed taxonomy every free-text outcome label maps into
type OutcomeCategory string

const (
	OutcomePositive OutcomeCategory = "positive"
	OutcomeNegative OutcomeCategory = "negative"
	OutcomeOpen     OutcomeCategory = "open"
)

// CatalogAllCampaigns is the campaign key of the global fallback category table
const CatalogAllCampaigns = "all"

// OutcomeCategoryTable holds the outcome labels of one campaign (or the "all"
// fallback) split by category. Read-only reference data; labels are compared
// after normalization so spelling variants still match.
type OutcomeCategoryTable struct {
	CampaignID string   `json:"campaignId"` // campaign id or "all"
	Success    []string `json:"success"`
	Declined   []string `json:"declined"`
	Open       []string `json:"open"`
}
