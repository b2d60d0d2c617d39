package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frioserv/maintenance-service/internal/models"
)

type PricingRuleRepo struct {
	db *sql.DB
}

func NewPricingRuleRepo(db *sql.DB) *PricingRuleRepo {
	return &PricingRuleRepo{db: db}
}

// GetActive returns the current rule snapshot, or nil when none is
// configured. Callers must refuse to price on nil rather than default
// to zero.
func (r *PricingRuleRepo) GetActive(ctx context.Context) (*models.PricingRule, error) {
	query := `
		SELECT id, split_base_price, window_base_price,
		       split_surcharge_over, window_surcharge_over, surcharge_amount,
		       standard_discount_percent, relationship_discount_percent,
		       repair_price, updated_at
		FROM pricing_rules
		WHERE active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var rule models.PricingRule
	err := r.db.QueryRowContext(ctx, query).Scan(
		&rule.ID,
		&rule.SplitBasePrice,
		&rule.WindowBasePrice,
		&rule.SplitSurchargeOver,
		&rule.WindowSurchargeOver,
		&rule.SurchargeAmount,
		&rule.StandardDiscountPercent,
		&rule.RelationshipDiscountPercent,
		&rule.RepairPrice,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}
