package migrations

import (
	"database/sql"
	"fmt"
)

// Migrate creates the tables this service owns. Transaction and product
// tables belong to the wider POS schema and are only read here.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS promotions (
			id                  TEXT PRIMARY KEY,
			store_id            TEXT NOT NULL,
			name                TEXT NOT NULL,
			promo_type          TEXT NOT NULL,
			value               NUMERIC(12,2) NOT NULL DEFAULT 0,
			min_order_amount    NUMERIC(12,2) NOT NULL DEFAULT 0,
			max_discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			usage_limit         INTEGER NOT NULL DEFAULT 0,
			usage_count         INTEGER NOT NULL DEFAULT 0,
			is_active           BOOLEAN NOT NULL DEFAULT FALSE,
			start_date          TIMESTAMPTZ NOT NULL,
			end_date            TIMESTAMPTZ NOT NULL,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_promotions_store_active
			ON promotions (store_id, is_active, start_date, end_date)`,
		`CREATE TABLE IF NOT EXISTS promotion_rules (
			id           TEXT PRIMARY KEY,
			promotion_id TEXT NOT NULL REFERENCES promotions (id) ON DELETE CASCADE,
			rule_type    TEXT NOT NULL,
			product_id   TEXT,
			category     TEXT,
			buy_quantity INTEGER,
			get_quantity INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_promotion_rules_promotion
			ON promotion_rules (promotion_id)`,
		`CREATE TABLE IF NOT EXISTS promotion_usage (
			id              TEXT PRIMARY KEY,
			promotion_id    TEXT NOT NULL REFERENCES promotions (id),
			customer_id     TEXT,
			discount_amount NUMERIC(12,2) NOT NULL,
			used_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_promotion_usage_promotion
			ON promotion_usage (promotion_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
