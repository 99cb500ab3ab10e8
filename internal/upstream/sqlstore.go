package upstream

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mhartmann/telestats/internal/config"
	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
)

// callEventRow is the raw scan target. Everything upstream can leave null is
// nullable here; validation decides what survives the boundary.
type callEventRow struct {
	TransactionID sql.NullString  `db:"transaction_id"`
	AgentLogin    sql.NullString  `db:"agent_login"`
	CampaignID    sql.NullString  `db:"campaign_id"`
	FiredDate     sql.NullString  `db:"fired_date"`
	RecStart      sql.NullTime    `db:"recording_start"`
	RecStop       sql.NullTime    `db:"recording_stop"`
	ConnDuration  sql.NullFloat64 `db:"connection_duration"`
	Status        sql.NullString  `db:"status"`
	StatusDetail  sql.NullString  `db:"status_detail"`
	WaitTime      sql.NullFloat64 `db:"wait_time"`
	EditTime      sql.NullFloat64 `db:"edit_time"`
	PauseTime     sql.NullFloat64 `db:"pause_time"`
	ContactID     sql.NullString  `db:"contact_id"`
	ContactName   sql.NullString  `db:"contact_name"`
	ContactPerson sql.NullString  `db:"contact_person"`
	Notes         sql.NullString  `db:"notes"`
	RecordingURL  sql.NullString  `db:"recording_url"`
	GroupID       sql.NullString  `db:"group_id"`
}

type categoryRow struct {
	CampaignID sql.NullString `db:"campaign_id"`
	Category   string         `db:"category"`
	Label      string         `db:"label"`
}

const callEventColumns = `transaction_id, agent_login, campaign_id,
	to_char(fired_date, 'YYYY-MM-DD') AS fired_date,
	recording_start, recording_stop, connection_duration,
	status, status_detail, wait_time, edit_time, pause_time,
	contact_id, contact_name, contact_person, notes, recording_url, group_id`

// SQLStore reads the upstream telephony store over sqlx. It never writes.
// Queries against the full event table may run for minutes, so every call is
// bounded by the configured timeout.
type SQLStore struct {
	db           *sqlx.DB
	timeout      time.Duration
	durationUnit config.DurationUnit
	logger       zerolog.Logger
}

// Connect opens and pings the upstream database
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to upstream store: %w", err)
	}
	return db, nil
}

// NewSQLStore creates a SQLStore
func NewSQLStore(db *sqlx.DB, timeout time.Duration, unit config.DurationUnit, logger zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:           db,
		timeout:      timeout,
		durationUnit: unit,
		logger:       logger.With().Str("component", "upstream").Logger(),
	}
}

// FetchCallEvents queries call events for the given parameters and validates
// each row at the boundary. Malformed rows (missing fired date, agent,
// campaign or duration) are logged and skipped; they never fail the batch.
// A wrapping time-of-day window (from > to) is not pushed into SQL; the
// in-memory filter handles it.
func (s *SQLStore) FetchCallEvents(ctx context.Context, p QueryParams) ([]types.RawCallEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + callEventColumns + ` FROM call_events WHERE fired_date >= ? AND fired_date <= ?`
	args := []interface{}{p.DateFrom, p.DateTo}

	if len(p.AgentLogins) > 0 {
		query += ` AND agent_login IN (?)`
		args = append(args, p.AgentLogins)
	}
	if len(p.CampaignIDs) > 0 {
		query += ` AND campaign_id IN (?)`
		args = append(args, p.CampaignIDs)
	}
	if p.TimeFromUTC != "" && p.TimeToUTC != "" && p.TimeFromUTC <= p.TimeToUTC {
		query += ` AND to_char(recording_start, 'HH24:MI') BETWEEN ? AND ?`
		args = append(args, p.TimeFromUTC, p.TimeToUTC)
	}
	query += ` ORDER BY recording_start`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build call event query: %w", err)
	}
	query = s.db.Rebind(query)

	var rows []callEventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		metrics.Get().RecordUpstreamError()
		return nil, fmt.Errorf("failed to query call events: %w", err)
	}

	events := make([]types.RawCallEvent, 0, len(rows))
	for _, row := range rows {
		ev, ok := s.validate(row)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	metrics.Get().RecordRowsFetched(len(rows))
	s.logger.Debug().
		Int("rows", len(rows)).
		Int("events", len(events)).
		Str("date_from", p.DateFrom).
		Str("date_to", p.DateTo).
		Msg("fetched call events")

	return events, nil
}

// validate turns a scanned row into a RawCallEvent or rejects it. The
// connection duration is converted to seconds here, exactly once; nothing
// past this boundary ever sees the upstream unit again.
func (s *SQLStore) validate(row callEventRow) (types.RawCallEvent, bool) {
	if !row.AgentLogin.Valid || !row.CampaignID.Valid || !row.FiredDate.Valid || !row.ConnDuration.Valid {
		metrics.Get().RecordMalformedRow()
		s.logger.Warn().
			Str("transaction_id", row.TransactionID.String).
			Bool("has_agent", row.AgentLogin.Valid).
			Bool("has_campaign", row.CampaignID.Valid).
			Bool("has_date", row.FiredDate.Valid).
			Bool("has_duration", row.ConnDuration.Valid).
			Msg("malformed row rejected at boundary")
		return types.RawCallEvent{}, false
	}

	duration := row.ConnDuration.Float64
	if s.durationUnit == config.DurationMilliseconds {
		duration /= 1000
	}

	ev := types.RawCallEvent{
		TransactionID: row.TransactionID.String,
		AgentLogin:    row.AgentLogin.String,
		CampaignID:    row.CampaignID.String,
		FiredDate:     row.FiredDate.String,
		Duration:      duration,
		Status:        types.CallStatus(row.Status.String),
		StatusDetail:  row.StatusDetail.String,
		WaitTime:      row.WaitTime.Float64,
		EditTime:      row.EditTime.Float64,
		PauseTime:     row.PauseTime.Float64,
		ContactID:     row.ContactID.String,
		ContactName:   row.ContactName.String,
		ContactPerson: row.ContactPerson.String,
		Notes:         row.Notes.String,
		RecordingURL:  row.RecordingURL.String,
		GroupID:       row.GroupID.String,
	}
	if row.RecStart.Valid {
		t := row.RecStart.Time.UTC()
		ev.RecordingStart = &t
	}
	if row.RecStop.Valid {
		t := row.RecStop.Time.UTC()
		ev.RecordingStop = &t
	}
	return ev, true
}

// FetchOutcomeCategories loads the outcome category reference, one table per
// campaign plus the "all" fallback (stored with a null campaign id).
func (s *SQLStore) FetchOutcomeCategories(ctx context.Context) ([]types.OutcomeCategoryTable, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := s.db.Rebind(`SELECT campaign_id, category, label FROM outcome_categories ORDER BY campaign_id, category, label`)

	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		metrics.Get().RecordUpstreamError()
		return nil, fmt.Errorf("failed to query outcome categories: %w", err)
	}

	byID := make(map[string]*types.OutcomeCategoryTable)
	order := make([]string, 0)
	for _, row := range rows {
		id := types.CatalogAllCampaigns
		if row.CampaignID.Valid {
			id = row.CampaignID.String
		}
		t, ok := byID[id]
		if !ok {
			t = &types.OutcomeCategoryTable{CampaignID: id}
			byID[id] = t
			order = append(order, id)
		}

		switch strings.ToLower(row.Category) {
		case "success":
			t.Success = append(t.Success, row.Label)
		case "declined":
			t.Declined = append(t.Declined, row.Label)
		case "open":
			t.Open = append(t.Open, row.Label)
		default:
			s.logger.Warn().
				Str("campaign_id", id).
				Str("category", row.Category).
				Msg("unknown outcome category, ignoring")
		}
	}

	tables := make([]types.OutcomeCategoryTable, 0, len(order))
	for _, id := range order {
		tables = append(tables, *byID[id])
	}
	return tables, nil
}
