package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/frioserv/maintenance-service/internal/models"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create inserts the order and its immutable unit links in the
// caller's transaction.
func (r *OrderRepo) Create(ctx context.Context, tx *sql.Tx, order models.Order) error {
	insertOrder := `
		INSERT INTO orders
		(id, client_id, location_id, service_category, scheduled_date, status,
		 amount, unit_count, discount_percent, discount_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
	`
	if _, err := tx.ExecContext(ctx, insertOrder,
		order.ID, order.ClientID, order.LocationID, order.ServiceCategory,
		order.ScheduledDate, order.Status, order.Amount, order.UnitCount,
		order.DiscountPercent, order.DiscountAmount,
	); err != nil {
		return err
	}

	insertLink := `INSERT INTO order_units (order_id, unit_id) VALUES ($1, $2)`
	for _, unitID := range order.UnitIDs {
		if _, err := tx.ExecContext(ctx, insertLink, order.ID, unitID); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `
	o.id, o.client_id, o.location_id, o.service_category, o.scheduled_date,
	o.status, o.amount, o.unit_count, o.discount_percent, o.discount_amount,
	o.created_at, o.updated_at
`

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	var o models.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.ClientID, &o.LocationID, &o.ServiceCategory, &o.ScheduledDate,
		&o.Status, &o.Amount, &o.UnitCount, &o.DiscountPercent, &o.DiscountAmount,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	links, err := r.linkedUnitIDs(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.UnitIDs = links[o.ID]
	return &o, nil
}

func (r *OrderRepo) GetOrdersLinkedToUnit(ctx context.Context, unitID string) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN order_units ou ON ou.order_id = o.id
		WHERE ou.unit_id = $1
		ORDER BY o.scheduled_date
	`
	rows, err := r.db.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrdersWithLinks(ctx, rows)
}

// GetOrdersForUnits loads every order touching any of the given units
// in one read, so status resolution sees a coherent snapshot.
func (r *OrderRepo) GetOrdersForUnits(ctx context.Context, unitIDs []string) ([]models.Order, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT DISTINCT ` + orderColumns + `
		FROM orders o
		JOIN order_units ou ON ou.order_id = o.id
		WHERE ou.unit_id = ANY($1)
		ORDER BY o.scheduled_date
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(unitIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrdersWithLinks(ctx, rows)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *OrderRepo) scanOrdersWithLinks(ctx context.Context, rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	var ids []string
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID, &o.ClientID, &o.LocationID, &o.ServiceCategory, &o.ScheduledDate,
			&o.Status, &o.Amount, &o.UnitCount, &o.DiscountPercent, &o.DiscountAmount,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	links, err := r.linkedUnitIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].UnitIDs = links[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepo) linkedUnitIDs(ctx context.Context, orderIDs []string) (map[string][]string, error) {
	query := `SELECT order_id, unit_id FROM order_units WHERE order_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var orderID, unitID string
		if err := rows.Scan(&orderID, &unitID); err != nil {
			return nil, err
		}
		links[orderID] = append(links[orderID], unitID)
	}
	return links, rows.Err()
}
