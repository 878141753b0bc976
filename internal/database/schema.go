package database

import (
	"context"
	"fmt"
)

// Schema DDL applied at startup. Statements are idempotent so restarts are
// safe without a separate migration tool.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		contact    TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id            UUID PRIMARY KEY,
		quote_no      TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'draft',
		total_price   NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// quote_no uniqueness backs the allocator: a lost race surfaces as a
	// conflict instead of a silent duplicate.
	`CREATE UNIQUE INDEX IF NOT EXISTS quotes_quote_no_key ON quotes (quote_no)`,
	`CREATE TABLE IF NOT EXISTS quote_items (
		id         UUID PRIMARY KEY,
		quote_id   UUID NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
		name       TEXT NOT NULL DEFAULT '',
		unit_price NUMERIC(14,2) NOT NULL,
		quantity   INTEGER NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS quote_sequences (
		date_key TEXT PRIMARY KEY,
		counter  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id        UUID PRIMARY KEY,
		name      TEXT NOT NULL UNIQUE,
		metric    TEXT NOT NULL,
		op        TEXT NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		severity  TEXT NOT NULL,
		channels  JSONB NOT NULL DEFAULT '[]',
		cooldown  INTERVAL NOT NULL DEFAULT '0',
		enabled   BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS alert_records (
		id           UUID PRIMARY KEY,
		rule_id      UUID NOT NULL REFERENCES alert_rules(id) ON DELETE CASCADE,
		state        TEXT NOT NULL,
		value        DOUBLE PRECISION NOT NULL,
		threshold    DOUBLE PRECISION NOT NULL,
		triggered_at TIMESTAMPTZ NOT NULL,
		resolved_at  TIMESTAMPTZ
	)`,
	// At most one open record per rule, enforced by the store itself.
	`CREATE UNIQUE INDEX IF NOT EXISTS alert_records_open_key
		ON alert_records (rule_id) WHERE state = 'triggered'`,
	`CREATE TABLE IF NOT EXISTS metric_samples (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS metric_samples_name_time_idx
		ON metric_samples (name, recorded_at DESC)`,
}

// Migrate applies the schema.
func (d *Database) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
