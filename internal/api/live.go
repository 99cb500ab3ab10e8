package api

import (
	"encoding/json"
	"net/http"

	"github.com/mhartmann/telestats/internal/synccache"
	"github.com/mhartmann/telestats/internal/timewindow"
	"github.com/rs/zerolog"
)

// LiveHandler serves the incrementally synchronized call lists. The first
// request for a (agent, outcome, window) combination answers immediately with
// loading=true while the cache fills in the background; subsequent requests
// return the merged list.
type LiveHandler struct {
	cache  *synccache.Cache
	logger zerolog.Logger
}

// NewLiveHandler creates a new LiveHandler
func NewLiveHandler(cache *synccache.Cache, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		cache:  cache,
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// GetCalls returns the live call list for one agent and outcome
// GET /api/live/calls?agentId=a&outcome=sale_closed&dateFrom=YYYY-MM-DD
func (h *LiveHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	agentID := q.Get("agentId")
	if agentID == "" {
		http.Error(w, "agentId query parameter is required", http.StatusBadRequest)
		return
	}
	dateFrom := q.Get("dateFrom")
	if dateFrom == "" {
		http.Error(w, "dateFrom query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	meta := synccache.QueryMeta{
		AgentID:     agentID,
		CampaignIDs: splitList(q.Get("campaigns")),
		OutcomeName: q.Get("outcome"),
		Window: timewindow.Window{
			DateFrom: dateFrom,
			DateTo:   q.Get("dateTo"),
			TimeFrom: q.Get("timeFrom"),
			TimeTo:   q.Get("timeTo"),
		},
	}

	res := h.cache.Get(meta)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
