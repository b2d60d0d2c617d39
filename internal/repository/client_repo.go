package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frioserv/maintenance-service/internal/models"
)

type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

const clientColumns = `
	id, name, points, points_expiry, relationship_discount_eligible,
	COALESCE(referred_by, ''), created_at, updated_at
`

func (r *ClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(r.db.QueryRowContext(ctx, query, id))
}

// GetAndLockForAward reads the client row FOR UPDATE inside the
// completion transaction. Two concurrent completions of the same
// referred client serialize here, so the second one sees referred_by
// already cleared and awards nothing.
func (r *ClientRepo) GetAndLockForAward(ctx context.Context, tx *sql.Tx, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 FOR UPDATE`
	return scanClient(tx.QueryRowContext(ctx, query, id))
}

func (r *ClientRepo) AddPoints(ctx context.Context, tx *sql.Tx, id string, points int) error {
	query := `UPDATE clients SET points = points + $2, updated_at = NOW() WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, id, points)
	return err
}

func (r *ClientRepo) ClearReferral(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE clients SET referred_by = NULL, updated_at = NOW() WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, id)
	return err
}

// ConsumePoints zeroes the balance: a redemption always spends the
// full balance used to justify it.
func (r *ClientRepo) ConsumePoints(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE clients SET points = 0, updated_at = NOW() WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	var expiry sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Points, &expiry, &c.RelationshipDiscountEligible,
		&c.ReferredBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.PointsExpiry = timeOrZero(expiry)
	return &c, nil
}
