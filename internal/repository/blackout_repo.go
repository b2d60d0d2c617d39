package repository

import (
	"context"
	"database/sql"

	"github.com/frioserv/maintenance-service/internal/models"
)

type BlackoutRepo struct {
	db *sql.DB
}

func NewBlackoutRepo(db *sql.DB) *BlackoutRepo {
	return &BlackoutRepo{db: db}
}

// List returns ranges ordered by from_date then id so overlapping
// ranges match deterministically (first match wins).
func (r *BlackoutRepo) List(ctx context.Context) ([]models.BlackoutRange, error) {
	query := `
		SELECT id, label, from_date, to_date, COALESCE(reason, ''), created_at
		FROM blackout_ranges
		ORDER BY from_date, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranges []models.BlackoutRange
	for rows.Next() {
		var b models.BlackoutRange
		if err := rows.Scan(&b.ID, &b.Label, &b.FromDate, &b.ToDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		ranges = append(ranges, b)
	}
	return ranges, rows.Err()
}

func (r *BlackoutRepo) Create(ctx context.Context, b models.BlackoutRange) (models.BlackoutRange, error) {
	query := `
		INSERT INTO blackout_ranges (label, from_date, to_date, reason, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, b.Label, b.FromDate, b.ToDate, b.Reason).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return models.BlackoutRange{}, err
	}
	return b, nil
}
