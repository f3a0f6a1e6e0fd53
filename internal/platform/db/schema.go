package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the local ledger tables. Every statement is
// idempotent so InitSchema is safe to run on each process start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS items (
		item_code       TEXT PRIMARY KEY,
		item_name       TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		standard_rate   NUMERIC(12,3) NOT NULL DEFAULT 0,
		current_stock   INTEGER NOT NULL DEFAULT 0,
		barcode         TEXT,
		item_group      TEXT,
		scale_item_code TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_barcode ON items (barcode) WHERE barcode IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_items_scale_code ON items (scale_item_code) WHERE scale_item_code IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS customers (
		id            BIGSERIAL PRIMARY KEY,
		customer_name TEXT NOT NULL,
		mobile        TEXT NOT NULL UNIQUE,
		email         TEXT,
		erpnext_id    TEXT,
		synced        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Columns scanned into non-pointer fields carry NOT NULL defaults so a
	// freshly opened row always scans. Only opening_balance and closing_balance
	// are nullable; NULL there means the entry has not been recorded yet.
	`CREATE TABLE IF NOT EXISTS pos_sessions (
		id              UUID PRIMARY KEY,
		pos_user        TEXT NOT NULL,
		profile         TEXT NOT NULL DEFAULT '',
		opening_time    TIMESTAMPTZ NOT NULL DEFAULT now(),
		closing_time    TIMESTAMPTZ,
		status          TEXT NOT NULL DEFAULT 'Open',
		opening_balance NUMERIC(12,3),
		closing_balance NUMERIC(12,3),
		cash_amount     NUMERIC(12,3) NOT NULL DEFAULT 0,
		knet_amount     NUMERIC(12,3) NOT NULL DEFAULT 0
	)`,
	// Storage-level guard for the single-open-session invariant. A second
	// concurrent open fails with a unique violation instead of racing a
	// query-then-act check.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pos_sessions_single_open
		ON pos_sessions ((1)) WHERE closing_time IS NULL`,

	`CREATE TABLE IF NOT EXISTS pos_session_closings (
		id              BIGSERIAL PRIMARY KEY,
		session_id      UUID NOT NULL REFERENCES pos_sessions(id),
		mode_of_payment TEXT NOT NULL,
		expected_amount NUMERIC(12,3) NOT NULL,
		counted_amount  NUMERIC(12,3) NOT NULL,
		difference      NUMERIC(12,3) NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sales (
		id              BIGSERIAL PRIMARY KEY,
		customer_id     BIGINT REFERENCES customers(id),
		total_amount    NUMERIC(12,3) NOT NULL,
		payment_method  TEXT NOT NULL,
		payment_details JSONB NOT NULL,
		status          TEXT NOT NULL DEFAULT 'completed',
		synced          BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_unsynced ON sales (id) WHERE synced = FALSE`,

	`CREATE TABLE IF NOT EXISTS sale_items (
		id              BIGSERIAL PRIMARY KEY,
		sale_id         BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		item_code       TEXT NOT NULL,
		item_name       TEXT NOT NULL DEFAULT '',
		quantity        NUMERIC(12,3) NOT NULL,
		rate            NUMERIC(12,3) NOT NULL,
		amount          NUMERIC(12,3) NOT NULL,
		discount        NUMERIC(12,3) NOT NULL DEFAULT 0,
		discount_type   TEXT,
		original_amount NUMERIC(12,3)
	)`,

	// Journal of push attempts: a row is written before the remote call so a
	// crash between remote acknowledgement and the synced-flag write is
	// visible and keyed for idempotent resubmission.
	`CREATE TABLE IF NOT EXISTS sale_submissions (
		sale_id         BIGINT PRIMARY KEY REFERENCES sales(id),
		idempotency_key TEXT NOT NULL,
		submitted_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		acknowledged_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS tax_templates (
		name TEXT PRIMARY KEY,
		rate NUMERIC(7,3) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS price_lists (
		name     TEXT PRIMARY KEY,
		currency TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS sync_status (
		id               SMALLINT PRIMARY KEY CHECK (id = 1),
		last_sync        TIMESTAMPTZ,
		items_synced     BOOLEAN NOT NULL DEFAULT FALSE,
		customers_synced BOOLEAN NOT NULL DEFAULT FALSE,
		sales_synced     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`INSERT INTO sync_status (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
}

// InitSchema creates all ledger tables if absent and seeds the singleton
// sync_status row. Safe to call on every start.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: init schema: %w", err)
		}
	}
	return nil
}
