package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mhartmann/telestats/internal/export"
	"github.com/mhartmann/telestats/internal/report"
	"github.com/mhartmann/telestats/internal/timewindow"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// ReportHandler provides REST endpoints for productivity reports
type ReportHandler struct {
	service *report.Service
	export  *export.Writer
	logger  zerolog.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *report.Service, exporter *export.Writer, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		export:  exporter,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// queryFromRequest parses the shared report query parameters. dateFrom is
// required; a missing dateTo means a single-day query. Time bounds are
// business-local HH:MM.
func queryFromRequest(r *http.Request) (report.StatsQuery, error) {
	q := r.URL.Query()

	window := timewindow.Window{
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
		TimeFrom: q.Get("timeFrom"),
		TimeTo:   q.Get("timeTo"),
	}
	if window.DateFrom == "" {
		return report.StatsQuery{}, fmt.Errorf("dateFrom query parameter is required (YYYY-MM-DD)")
	}

	return report.StatsQuery{
		AgentLogins: splitList(q.Get("agents")),
		CampaignIDs: splitList(q.Get("campaigns")),
		Window:      window,
	}, nil
}

// splitList splits a comma-separated query value, dropping empty items
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetStats returns per (agent, campaign, day) stat buckets
// GET /api/reports/stats?agents=a,b&campaigns=1,2&dateFrom=YYYY-MM-DD&dateTo=&timeFrom=&timeTo=
func (h *ReportHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	query, err := queryFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := h.service.AgentStats(r.Context(), query)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute agent stats")
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	if buckets == nil {
		buckets = []types.StatBucket{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buckets)
}

// GetCalls returns the grouped call-detail list
// GET /api/calls?agents=a&campaigns=1&dateFrom=YYYY-MM-DD
func (h *ReportHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	query, err := queryFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := h.service.CallList(r.Context(), query)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute call list")
		http.Error(w, "failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	if groups == nil {
		groups = []types.CallGroup{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groups)
}

// ExportStats returns the stats report as an xlsx workbook
// GET /api/reports/export?agents=a&dateFrom=YYYY-MM-DD
func (h *ReportHandler) ExportStats(w http.ResponseWriter, r *http.Request) {
	query, err := queryFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := h.service.AgentStats(r.Context(), query)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute stats for export")
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("agent-stats-%s.xlsx", query.Window.DateFrom)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.export.WriteStatsWorkbook(w, buckets); err != nil {
		h.logger.Error().Err(err).Msg("failed to write export workbook")
	}
}
