package postgres

import (
	"context"
	"fmt"
)

// schema is applied on startup; every statement is idempotent
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          UUID PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	date        TIMESTAMPTZ NOT NULL,
	source      TEXT NOT NULL,
	currency    TEXT NOT NULL,
	amount      NUMERIC NOT NULL
);

CREATE TABLE IF NOT EXISTS transfers (
	transaction_id UUID NOT NULL REFERENCES transactions (id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	source         TEXT NOT NULL,
	destination    TEXT NOT NULL,
	amount         NUMERIC NOT NULL CHECK (amount >= 0),
	currency       TEXT NOT NULL,
	comment        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (transaction_id, position)
);

CREATE INDEX IF NOT EXISTS transfers_destination_idx ON transfers (destination);

CREATE TABLE IF NOT EXISTS payee_schedules (
	id       UUID PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE,
	currency TEXT NOT NULL,
	rules    JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS schedule_payees (
	schedule_id    UUID NOT NULL REFERENCES payee_schedules (id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	destination    TEXT NOT NULL,
	currency       TEXT NOT NULL,
	rate_type      TEXT NOT NULL,
	apply_type     TEXT NOT NULL,
	rate           NUMERIC NOT NULL,
	payee_group    TEXT[] NOT NULL,
	apply_group    TEXT[] NOT NULL DEFAULT '{}',
	exempt_group   TEXT[] NOT NULL DEFAULT '{}',
	apply_after    TEXT[] NOT NULL DEFAULT '{}',
	minimum_amount NUMERIC,
	maximum_amount NUMERIC,
	comment        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (schedule_id, position)
);
`

// EnsureSchema creates the tables used by the repositories if they are missing
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}
