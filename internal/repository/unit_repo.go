package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/frioserv/maintenance-service/internal/models"
)

type UnitRepo struct {
	db *sql.DB
}

func NewUnitRepo(db *sql.DB) *UnitRepo {
	return &UnitRepo{db: db}
}

const unitColumns = `
	id, client_id, location_id, brand, category, capacity_class,
	last_service_date, last_repair_date,
	due_3_months, due_4_months, due_6_months,
	created_at, updated_at
`

func (r *UnitRepo) GetUnitsByClient(ctx context.Context, clientID string) ([]models.ServicedUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM serviced_units WHERE client_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

func (r *UnitRepo) GetUnitsByIDs(ctx context.Context, ids []string) ([]models.ServicedUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + unitColumns + ` FROM serviced_units WHERE id = ANY($1) ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// UpdateSchedule writes the lifecycle-derived fields back after a
// completion. Runs inside the completion transaction.
func (r *UnitRepo) UpdateSchedule(ctx context.Context, tx *sql.Tx, unit models.ServicedUnit) error {
	query := `
		UPDATE serviced_units
		SET last_service_date = $2,
		    last_repair_date = $3,
		    due_3_months = $4,
		    due_4_months = $5,
		    due_6_months = $6,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query,
		unit.ID,
		nullTime(unit.LastServiceDate),
		nullTime(unit.LastRepairDate),
		nullTime(unit.Due3Months),
		nullTime(unit.Due4Months),
		nullTime(unit.Due6Months),
	)
	return err
}

func scanUnits(rows *sql.Rows) ([]models.ServicedUnit, error) {
	var units []models.ServicedUnit
	for rows.Next() {
		var u models.ServicedUnit
		var lastService, lastRepair, due3, due4, due6 sql.NullTime
		if err := rows.Scan(
			&u.ID, &u.ClientID, &u.LocationID, &u.Brand, &u.Category, &u.CapacityClass,
			&lastService, &lastRepair, &due3, &due4, &due6,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		u.LastServiceDate = timeOrZero(lastService)
		u.LastRepairDate = timeOrZero(lastRepair)
		u.Due3Months = timeOrZero(due3)
		u.Due4Months = timeOrZero(due4)
		u.Due6Months = timeOrZero(due6)
		units = append(units, u)
	}
	return units, rows.Err()
}
