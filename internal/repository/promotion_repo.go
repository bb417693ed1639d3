package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

type PromotionRepo struct {
	db *sql.DB
}

func NewPromotionRepo(db *sql.DB) *PromotionRepo {
	return &PromotionRepo{db: db}
}

// ListActivePromotions returns promotions for the store that are flagged
// active, inside their validity window at `now`, and under their usage limit.
// The same checks are repeated in the engine; filtering here just keeps the
// candidate set small.
func (r *PromotionRepo) ListActivePromotions(ctx context.Context, storeID string, now time.Time) ([]models.Promotion, error) {
	query := `
		SELECT id, store_id, name, promo_type, value,
		       min_order_amount, max_discount_amount,
		       usage_limit, usage_count, is_active,
		       start_date, end_date, created_at, updated_at
		FROM promotions
		WHERE store_id = $1
		  AND is_active = TRUE
		  AND start_date <= $2 AND end_date >= $2
		  AND (usage_limit = 0 OR usage_count < usage_limit)
	`
	rows, err := r.db.QueryContext(ctx, query, storeID, now)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promos []models.Promotion
	for rows.Next() {
		var p models.Promotion
		var value, minOrder, maxDiscount string
		if err := rows.Scan(
			&p.ID, &p.StoreID, &p.Name, &p.Type, &value,
			&minOrder, &maxDiscount,
			&p.UsageLimit, &p.UsageCount, &p.IsActive,
			&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		if p.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("promotion %s value: %w", p.ID, err)
		}
		if p.MinOrderAmount, err = decimal.NewFromString(minOrder); err != nil {
			return nil, fmt.Errorf("promotion %s min_order_amount: %w", p.ID, err)
		}
		if p.MaxDiscountAmount, err = decimal.NewFromString(maxDiscount); err != nil {
			return nil, fmt.Errorf("promotion %s max_discount_amount: %w", p.ID, err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (r *PromotionRepo) ListRules(ctx context.Context, promotionID string) ([]models.PromotionRule, error) {
	query := `
		SELECT id, promotion_id, rule_type,
		       COALESCE(product_id, ''), COALESCE(category, ''),
		       COALESCE(buy_quantity, 0), COALESCE(get_quantity, 0)
		FROM promotion_rules
		WHERE promotion_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, promotionID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PromotionRule
	for rows.Next() {
		var rule models.PromotionRule
		if err := rows.Scan(&rule.ID, &rule.PromotionID, &rule.Type,
			&rule.ProductID, &rule.Category, &rule.BuyQuantity, &rule.GetQuantity); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// RecordUsage consumes one use of the promotion and appends the usage fact,
// both in one transaction. The increment is a single conditional UPDATE so
// two commits racing toward the last remaining use cannot both succeed.
func (r *PromotionRepo) RecordUsage(ctx context.Context, promotionID, customerID string, discount decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE promotions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit = 0 OR usage_count < usage_limit)
	`, promotionID)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM promotions WHERE id = $1)`, promotionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check promotion: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrUsageLimitReached
	}

	var custID sql.NullString
	if customerID != "" {
		custID = sql.NullString{String: customerID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO promotion_usage (id, promotion_id, customer_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.NewString(), promotionID, custID, discount.String()); err != nil {
		return fmt.Errorf("insert usage fact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage: %w", err)
	}
	committed = true
	return nil
}

// CreatePromotion inserts a promotion and its rules transactionally and
// returns the generated promotion ID.
func (r *PromotionRepo) CreatePromotion(ctx context.Context, p models.Promotion, rules []models.PromotionRule) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO promotions
			(id, store_id, name, promo_type, value, min_order_amount, max_discount_amount,
			 usage_limit, usage_count, is_active, start_date, end_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9,$10,$11,NOW(),NOW())
	`, id, p.StoreID, p.Name, p.Type, p.Value.String(), p.MinOrderAmount.String(),
		p.MaxDiscountAmount.String(), p.UsageLimit, p.IsActive, p.StartDate, p.EndDate,
	); err != nil {
		return "", fmt.Errorf("insert promotion: %w", err)
	}

	for _, rule := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO promotion_rules
				(id, promotion_id, rule_type, product_id, category, buy_quantity, get_quantity)
			VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7)
		`, uuid.NewString(), id, rule.Type, rule.ProductID, rule.Category,
			rule.BuyQuantity, rule.GetQuantity,
		); err != nil {
			return "", fmt.Errorf("insert rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit promotion: %w", err)
	}
	committed = true
	return id, nil
}

// GetPromotion fetches one promotion by ID, or ErrNotFound.
func (r *PromotionRepo) GetPromotion(ctx context.Context, id string) (*models.Promotion, error) {
	var p models.Promotion
	var value, minOrder, maxDiscount string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, promo_type, value,
		       min_order_amount, max_discount_amount,
		       usage_limit, usage_count, is_active,
		       start_date, end_date, created_at, updated_at
		FROM promotions
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.StoreID, &p.Name, &p.Type, &value,
		&minOrder, &maxDiscount,
		&p.UsageLimit, &p.UsageCount, &p.IsActive,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	if p.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("promotion %s value: %w", p.ID, err)
	}
	if p.MinOrderAmount, err = decimal.NewFromString(minOrder); err != nil {
		return nil, fmt.Errorf("promotion %s min_order_amount: %w", p.ID, err)
	}
	if p.MaxDiscountAmount, err = decimal.NewFromString(maxDiscount); err != nil {
		return nil, fmt.Errorf("promotion %s max_discount_amount: %w", p.ID, err)
	}
	return &p, nil
}
