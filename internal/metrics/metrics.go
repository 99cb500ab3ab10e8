package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Upstream metrics
	RowsFetchedTotal    int64
	MalformedRowsTotal  int64
	UpstreamErrorsTotal int64

	// Pipeline metrics
	DuplicatesCollapsedTotal  int64
	ClassificationMissesTotal int64
	InvariantViolationsTotal  int64
	AggregationRunsTotal      int64
	lastAggregationDuration   time.Duration

	// Sync cache metrics
	RefreshCyclesTotal     int64
	RefreshErrorsTotal     int64
	RecordsMergedTotal     int64
	NotificationsSentTotal int64
	cacheEntries           int

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	activeConnections            int64

	// HTTP metrics
	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			httpRequestsTotal: make(map[string]map[int]int64),
			startTime:         time.Now(),
		}
	})
	return instance
}

// RecordRowsFetched adds to the fetched-row counter
func (m *Metrics) RecordRowsFetched(n int) {
	m.mu.Lock()
	m.RowsFetchedTotal += int64(n)
	m.mu.Unlock()
}

// RecordMalformedRow increments the rejected-row counter
func (m *Metrics) RecordMalformedRow() {
	m.mu.Lock()
	m.MalformedRowsTotal++
	m.mu.Unlock()
}

// RecordUpstreamError increments the upstream failure counter
func (m *Metrics) RecordUpstreamError() {
	m.mu.Lock()
	m.UpstreamErrorsTotal++
	m.mu.Unlock()
}

// RecordDuplicatesCollapsed adds to the collapsed-duplicate counter
func (m *Metrics) RecordDuplicatesCollapsed(n int) {
	m.mu.Lock()
	m.DuplicatesCollapsedTotal += int64(n)
	m.mu.Unlock()
}

// RecordClassificationMiss increments the unmatched-label counter
func (m *Metrics) RecordClassificationMiss() {
	m.mu.Lock()
	m.ClassificationMissesTotal++
	m.mu.Unlock()
}

// RecordInvariantViolation increments the bucket invariant counter
func (m *Metrics) RecordInvariantViolation() {
	m.mu.Lock()
	m.InvariantViolationsTotal++
	m.mu.Unlock()
}

// RecordAggregationRun records one aggregation pass
func (m *Metrics) RecordAggregationRun(duration time.Duration) {
	m.mu.Lock()
	m.AggregationRunsTotal++
	m.lastAggregationDuration = duration
	m.mu.Unlock()
}

// RecordRefreshCycle records one background refresh of a cache entry
func (m *Metrics) RecordRefreshCycle() {
	m.mu.Lock()
	m.RefreshCyclesTotal++
	m.mu.Unlock()
}

// RecordRefreshError increments the failed-refresh counter
func (m *Metrics) RecordRefreshError() {
	m.mu.Lock()
	m.RefreshErrorsTotal++
	m.mu.Unlock()
}

// RecordRecordsMerged adds to the merged-record counter
func (m *Metrics) RecordRecordsMerged(n int) {
	m.mu.Lock()
	m.RecordsMergedTotal += int64(n)
	m.mu.Unlock()
}

// RecordNotificationSent increments the notification counter
func (m *Metrics) RecordNotificationSent() {
	m.mu.Lock()
	m.NotificationsSentTotal++
	m.mu.Unlock()
}

// SetCacheEntries updates the cache entry gauge
func (m *Metrics) SetCacheEntries(n int) {
	m.mu.Lock()
	m.cacheEntries = n
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("telestats_uptime_seconds", time.Since(m.startTime).Seconds())

		// Upstream metrics
		write("telestats_rows_fetched_total", m.RowsFetchedTotal)
		write("telestats_malformed_rows_total", m.MalformedRowsTotal)
		write("telestats_upstream_errors_total", m.UpstreamErrorsTotal)

		// Pipeline metrics
		write("telestats_duplicates_collapsed_total", m.DuplicatesCollapsedTotal)
		write("telestats_classification_misses_total", m.ClassificationMissesTotal)
		write("telestats_invariant_violations_total", m.InvariantViolationsTotal)
		write("telestats_aggregation_runs_total", m.AggregationRunsTotal)
		write("telestats_aggregation_duration_seconds", m.lastAggregationDuration.Seconds())

		// Sync cache metrics
		write("telestats_refresh_cycles_total", m.RefreshCyclesTotal)
		write("telestats_refresh_errors_total", m.RefreshErrorsTotal)
		write("telestats_records_merged_total", m.RecordsMergedTotal)
		write("telestats_notifications_sent_total", m.NotificationsSentTotal)
		write("telestats_cache_entries", m.cacheEntries)

		// WebSocket metrics
		write("telestats_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("telestats_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("telestats_websocket_active_connections", m.activeConnections)

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("telestats_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
