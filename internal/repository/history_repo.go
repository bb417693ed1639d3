package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// HistoryRepo reads customer transaction history and product stock for the
// risk signals. All queries are read-only and may run against a replica.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CountPriorTransactions(ctx context.Context, customerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE customer_id = $1 AND status = 'completed'`,
		customerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prior transactions: %w", err)
	}
	return n, nil
}

func (r *HistoryRepo) CountVoidsSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE customer_id = $1 AND status = 'voided' AND created_at >= $2`,
		customerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count voids: %w", err)
	}
	return n, nil
}

func (r *HistoryRepo) CountTransactionsSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE customer_id = $1 AND created_at >= $2`,
		customerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent transactions: %w", err)
	}
	return n, nil
}

func (r *HistoryRepo) GetStockLevels(ctx context.Context, productIDs []string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stock FROM products WHERE id = ANY($1)`,
		pq.Array(productIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("get stock levels: %w", err)
	}
	defer rows.Close()

	stock := make(map[string]int, len(productIDs))
	for rows.Next() {
		var id string
		var s int
		if err := rows.Scan(&id, &s); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stock[id] = s
	}
	return stock, rows.Err()
}
