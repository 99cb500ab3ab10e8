package upstream

import (
	"bytes"
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/mhartmann/telestats/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, unit config.DurationUnit) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewSQLStore(db, 5*time.Second, unit, zerolog.New(&bytes.Buffer{})), mock
}

func eventColumns() []string {
	return []string{
		"transaction_id", "agent_login", "campaign_id", "fired_date",
		"recording_start", "recording_stop", "connection_duration",
		"status", "status_detail", "wait_time", "edit_time", "pause_time",
		"contact_id", "contact_name", "contact_person", "notes", "recording_url", "group_id",
	}
}

func TestFetchCallEventsConvertsMillisecondsOnce(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(eventColumns()).
		AddRow("tx-1", "anna", "42", "2025-09-01",
			start, start.Add(61*time.Second), 61000.0,
			"success", "sale_closed", 4000.0, 12000.0, 0.0,
			"c-1", "Meier GmbH", "H. Meier", "", "", "")

	mock.ExpectQuery(`SELECT .+ FROM call_events`).WillReturnRows(rows)

	events, err := store.FetchCallEvents(context.Background(), QueryParams{
		DateFrom: "2025-09-01", DateTo: "2025-09-01",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, 61.0, events[0].Duration, "duration must be in seconds after the boundary")
	require.NotNil(t, events[0].RecordingStart)
	assert.Equal(t, start, *events[0].RecordingStart)
}

func TestFetchCallEventsSecondsPassThrough(t *testing.T) {
	store, mock := newMockStore(t, config.DurationSeconds)

	rows := sqlmock.NewRows(eventColumns()).
		AddRow("tx-1", "anna", "42", "2025-09-01",
			nil, nil, 90.0,
			"open", "", 0.0, 0.0, 0.0,
			"c-1", "Meier GmbH", "", "", "", "")

	mock.ExpectQuery(`SELECT .+ FROM call_events`).WillReturnRows(rows)

	events, err := store.FetchCallEvents(context.Background(), QueryParams{
		DateFrom: "2025-09-01", DateTo: "2025-09-01",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 90.0, events[0].Duration)
	assert.Nil(t, events[0].RecordingStart)
}

func TestFetchCallEventsRejectsMalformedRows(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	rows := sqlmock.NewRows(eventColumns()).
		// missing agent login
		AddRow("tx-1", nil, "42", "2025-09-01",
			nil, nil, 61000.0, "open", "", 0.0, 0.0, 0.0,
			"c-1", "", "", "", "", "").
		// missing duration
		AddRow("tx-2", "anna", "42", "2025-09-01",
			nil, nil, nil, "open", "", 0.0, 0.0, 0.0,
			"c-2", "", "", "", "", "").
		// valid
		AddRow("tx-3", "anna", "42", "2025-09-01",
			nil, nil, 30000.0, "open", "", 0.0, 0.0, 0.0,
			"c-3", "", "", "", "", "")

	mock.ExpectQuery(`SELECT .+ FROM call_events`).WillReturnRows(rows)

	events, err := store.FetchCallEvents(context.Background(), QueryParams{
		DateFrom: "2025-09-01", DateTo: "2025-09-01",
	})
	require.NoError(t, err, "malformed rows must be skipped, not fail the batch")
	require.Len(t, events, 1)
	assert.Equal(t, "tx-3", events[0].TransactionID)
}

func TestFetchCallEventsExpandsListFilters(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	mock.ExpectQuery(`agent_login IN \(.+\).+campaign_id IN \(.+\)`).
		WithArgs("2025-09-01", "2025-09-02", "anna", "ben", "42").
		WillReturnRows(sqlmock.NewRows(eventColumns()))

	_, err := store.FetchCallEvents(context.Background(), QueryParams{
		AgentLogins: []string{"anna", "ben"},
		CampaignIDs: []string{"42"},
		DateFrom:    "2025-09-01",
		DateTo:      "2025-09-02",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchCallEventsWrappingWindowNotPushedToSQL(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	// 22:00 > 02:00 wraps midnight; the query must not carry the BETWEEN clause
	mock.ExpectQuery(`SELECT .+ FROM call_events`).
		WithArgs("2025-09-01", "2025-09-01").
		WillReturnRows(sqlmock.NewRows(eventColumns()))

	_, err := store.FetchCallEvents(context.Background(), QueryParams{
		DateFrom:    "2025-09-01",
		DateTo:      "2025-09-01",
		TimeFromUTC: "22:00",
		TimeToUTC:   "02:00",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchCallEventsQueryError(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	mock.ExpectQuery(`SELECT .+ FROM call_events`).
		WillReturnError(assert.AnError)

	_, err := store.FetchCallEvents(context.Background(), QueryParams{
		DateFrom: "2025-09-01", DateTo: "2025-09-01",
	})
	assert.Error(t, err)
}

func TestFetchOutcomeCategories(t *testing.T) {
	store, mock := newMockStore(t, config.DurationMilliseconds)

	rows := sqlmock.NewRows([]string{"campaign_id", "category", "label"}).
		AddRow(nil, "success", "sale_closed").
		AddRow(nil, "declined", "not_interested").
		AddRow("42", "success", "upsell").
		AddRow("42", "open", "callback").
		AddRow("42", "bogus", "ignored")

	mock.ExpectQuery(`SELECT campaign_id, category, label FROM outcome_categories`).
		WillReturnRows(rows)

	tables, err := store.FetchOutcomeCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "all", tables[0].CampaignID)
	assert.Equal(t, []string{"sale_closed"}, tables[0].Success)
	assert.Equal(t, []string{"not_interested"}, tables[0].Declined)

	assert.Equal(t, "42", tables[1].CampaignID)
	assert.Equal(t, []string{"upsell"}, tables[1].Success)
	assert.Equal(t, []string{"callback"}, tables[1].Open)
	assert.Empty(t, tables[1].Declined)
}

func TestNoopStoreReturnsNothing(t *testing.T) {
	s := NewNoopStore()

	events, err := s.FetchCallEvents(context.Background(), QueryParams{DateFrom: "2025-09-01", DateTo: "2025-09-01"})
	assert.NoError(t, err)
	assert.Empty(t, events)

	tables, err := s.FetchOutcomeCategories(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, tables)
}
