package alerting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"

	"github.com/quotedesk/quotedesk/internal/database"
)

// Store is the persistence boundary of the evaluator. All mutation goes
// through the database's own concurrency control; evaluator instances share
// no memory.
type Store interface {
	ListEnabledRules(ctx context.Context) ([]*AlertRule, error)
	UpsertRule(ctx context.Context, r *AlertRule) error
	LatestSample(ctx context.Context, metric string) (*MetricSample, error)
	InsertSample(ctx context.Context, s *MetricSample) error
	HasOpenRecord(ctx context.Context, ruleID uuid.UUID) (bool, error)
	ListOpenRecords(ctx context.Context) ([]*AlertRecord, error)
	// CreateOpenRecord inserts rec unless the rule already has an open
	// record; reports whether a row was created.
	CreateOpenRecord(ctx context.Context, rec *AlertRecord) (bool, error)
	// ResolveOpenRecords marks every open record of the rule resolved and
	// returns how many were closed.
	ResolveOpenRecords(ctx context.Context, ruleID uuid.UUID, at time.Time) (int, error)
	LastResolvedAt(ctx context.Context, ruleID uuid.UUID) (*time.Time, error)
}

// PgStore is the PostgreSQL-backed Store.
type PgStore struct {
	DB *database.Database
}

func NewPgStore(db *database.Database) *PgStore { return &PgStore{DB: db} }

func (s *PgStore) ListEnabledRules(ctx context.Context) ([]*AlertRule, error) {
	const q = `
	SELECT id, name, metric, op, threshold, severity, channels, cooldown, enabled
	FROM alert_rules WHERE enabled ORDER BY name`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*AlertRule
	for rows.Next() {
		var r AlertRule
		var channelsJSON string
		var cooldown pgtype.Interval
		if err := rows.Scan(&r.ID, &r.Name, &r.Metric, &r.Op, &r.Threshold, &r.Severity, &channelsJSON, &cooldown, &r.Enabled); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(channelsJSON), &r.Channels); err != nil {
			return nil, fmt.Errorf("parse rule channels: %w", err)
		}
		r.Cooldown = intervalToDuration(cooldown)
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

func (s *PgStore) UpsertRule(ctx context.Context, r *AlertRule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	channelsJSON, _ := json.Marshal(r.Channels)
	const q = `
	INSERT INTO alert_rules (id, name, metric, op, threshold, severity, channels, cooldown, enabled)
	VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
	ON CONFLICT (name) DO UPDATE SET
		metric = EXCLUDED.metric,
		op = EXCLUDED.op,
		threshold = EXCLUDED.threshold,
		severity = EXCLUDED.severity,
		channels = EXCLUDED.channels,
		cooldown = EXCLUDED.cooldown,
		enabled = EXCLUDED.enabled`
	_, err := s.DB.ExecContext(ctx, q, r.ID, r.Name, r.Metric, r.Op, r.Threshold, r.Severity,
		string(channelsJSON), durationToPgInterval(r.Cooldown), r.Enabled)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}

func (s *PgStore) LatestSample(ctx context.Context, metric string) (*MetricSample, error) {
	const q = `
	SELECT name, value, recorded_at FROM metric_samples
	WHERE name = $1 ORDER BY recorded_at DESC LIMIT 1`
	var m MetricSample
	err := s.DB.QueryRowContext(ctx, q, metric).Scan(&m.Name, &m.Value, &m.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sample: %w", err)
	}
	return &m, nil
}

func (s *PgStore) InsertSample(ctx context.Context, m *MetricSample) error {
	const q = `INSERT INTO metric_samples (name, value, recorded_at) VALUES ($1, $2, $3)`
	at := m.RecordedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := s.DB.ExecContext(ctx, q, m.Name, m.Value, at); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (s *PgStore) HasOpenRecord(ctx context.Context, ruleID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM alert_records WHERE rule_id = $1 AND state = 'triggered')`
	var open bool
	if err := s.DB.QueryRowContext(ctx, q, ruleID).Scan(&open); err != nil {
		return false, fmt.Errorf("check open record: %w", err)
	}
	return open, nil
}

func (s *PgStore) ListOpenRecords(ctx context.Context) ([]*AlertRecord, error) {
	const q = `
	SELECT a.id, a.rule_id, r.name, a.state, a.value, a.threshold, a.triggered_at, a.resolved_at
	FROM alert_records a JOIN alert_rules r ON r.id = a.rule_id
	WHERE a.state = 'triggered' ORDER BY a.triggered_at DESC`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}
	defer rows.Close()

	var recs []*AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.RuleID, &rec.RuleName, &rec.State, &rec.Value, &rec.Threshold, &rec.TriggeredAt, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan open record: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (s *PgStore) CreateOpenRecord(ctx context.Context, rec *AlertRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	// The WHERE NOT EXISTS guard plus the partial unique index on
	// (rule_id) WHERE state='triggered' keeps at most one record open per
	// rule, even across concurrent evaluation passes.
	const q = `
	INSERT INTO alert_records (id, rule_id, state, value, threshold, triggered_at)
	SELECT $1, $2, 'triggered', $3, $4, $5
	WHERE NOT EXISTS (
		SELECT 1 FROM alert_records WHERE rule_id = $2 AND state = 'triggered'
	)`
	res, err := s.DB.ExecContext(ctx, q, rec.ID, rec.RuleID, rec.Value, rec.Threshold, rec.TriggeredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// lost a race with a concurrent pass; the invariant held
			return false, nil
		}
		return false, fmt.Errorf("create open record: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PgStore) ResolveOpenRecords(ctx context.Context, ruleID uuid.UUID, at time.Time) (int, error) {
	const q = `
	UPDATE alert_records SET state = 'resolved', resolved_at = $1
	WHERE rule_id = $2 AND state = 'triggered'`
	res, err := s.DB.ExecContext(ctx, q, at, ruleID)
	if err != nil {
		return 0, fmt.Errorf("resolve records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PgStore) LastResolvedAt(ctx context.Context, ruleID uuid.UUID) (*time.Time, error) {
	const q = `
	SELECT resolved_at FROM alert_records
	WHERE rule_id = $1 AND state = 'resolved' ORDER BY resolved_at DESC LIMIT 1`
	var at time.Time
	err := s.DB.QueryRowContext(ctx, q, ruleID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last resolved: %w", err)
	}
	return &at, nil
}

func durationToPgInterval(d time.Duration) pgtype.Interval {
	return pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}
}

func intervalToDuration(iv pgtype.Interval) time.Duration {
	if !iv.Valid {
		return 0
	}
	d := time.Duration(iv.Microseconds) * time.Microsecond
	d += time.Duration(iv.Days) * 24 * time.Hour
	// months are approximated; cooldowns that long are not expected
	d += time.Duration(iv.Months) * 30 * 24 * time.Hour
	return d
}
