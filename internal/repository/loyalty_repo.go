package repository

import (
	"context"
	"database/sql"

	"github.com/frioserv/maintenance-service/internal/models"
)

type LoyaltyRepo struct {
	db *sql.DB
}

func NewLoyaltyRepo(db *sql.DB) *LoyaltyRepo {
	return &LoyaltyRepo{db: db}
}

func (r *LoyaltyRepo) CreateAward(ctx context.Context, tx *sql.Tx, award models.LoyaltyAward) error {
	query := `
		INSERT INTO loyalty_awards (id, client_id, amount, status, earned_at, expiry)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		award.ID, award.ClientID, award.Amount, award.Status, award.EarnedAt,
		nullTime(award.Expiry),
	)
	return err
}

// MarkRedeemed flips every active award of the client to redeemed,
// matching the full-balance consumption of a redemption order.
func (r *LoyaltyRepo) MarkRedeemed(ctx context.Context, tx *sql.Tx, clientID string) error {
	query := `UPDATE loyalty_awards SET status = $2 WHERE client_id = $1 AND status = $3`
	_, err := tx.ExecContext(ctx, query, clientID, models.AwardRedeemed, models.AwardActive)
	return err
}
