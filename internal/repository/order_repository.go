package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// OrderRepo provides read and status access to customer orders.  Orders
// are created elsewhere; this service only consumes CONFIRMED orders and
// moves them through DISPATCHED and DELIVERED.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// GetByIDsTx returns the named orders keyed by id inside a transaction.
// Missing ids are absent from the map.
func (r *OrderRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]*model.Order, error) {
    orders := make(map[uint64]*model.Order)
    if len(ids) == 0 {
        return orders, nil
    }
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `SELECT id, customer_id, status, notes, created_at, updated_at
          FROM orders WHERE id IN (` + strings.Join(placeholders, ",") + `)`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var o model.Order
        var notes sql.NullString
        if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
            return nil, err
        }
        if notes.Valid {
            n := notes.String
            o.Notes = &n
        }
        orders[o.ID] = &o
    }
    return orders, rows.Err()
}

// LinesByOrderIDsTx returns all order lines for the given orders in
// order id then line id order.
func (r *OrderRepo) LinesByOrderIDsTx(ctx context.Context, tx *sql.Tx, orderIDs []uint64) ([]model.OrderLine, error) {
    if len(orderIDs) == 0 {
        return nil, nil
    }
    placeholders := make([]string, 0, len(orderIDs))
    args := make([]interface{}, 0, len(orderIDs))
    for _, id := range orderIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `SELECT id, order_id, product_id, qty_full, qty_empty
          FROM order_lines WHERE order_id IN (` + strings.Join(placeholders, ",") + `)
          ORDER BY order_id, id`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var lines []model.OrderLine
    for rows.Next() {
        var l model.OrderLine
        if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.QtyFull, &l.QtyEmpty); err != nil {
            return nil, err
        }
        lines = append(lines, l)
    }
    return lines, rows.Err()
}

// LinesByTripTx returns the order lines behind a trip's active
// allocations, the input to loading requirement calculation.
func (r *OrderRepo) LinesByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.OrderLine, error) {
    const q = `SELECT ol.id, ol.order_id, ol.product_id, ol.qty_full, ol.qty_empty
               FROM order_lines ol
               JOIN trip_allocations ta ON ta.order_id = ol.order_id
               WHERE ta.trip_id = ? AND ta.status <> ?
               ORDER BY ol.order_id, ol.id`
    rows, err := tx.QueryContext(ctx, q, tripID, model.AllocationStatusCancelled)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var lines []model.OrderLine
    for rows.Next() {
        var l model.OrderLine
        if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.QtyFull, &l.QtyEmpty); err != nil {
            return nil, err
        }
        lines = append(lines, l)
    }
    return lines, rows.Err()
}

// LinesByTrip is LinesByTripTx outside a transaction, for read-only
// endpoints.
func (r *OrderRepo) LinesByTrip(ctx context.Context, tripID uint64) ([]model.OrderLine, error) {
    const q = `SELECT ol.id, ol.order_id, ol.product_id, ol.qty_full, ol.qty_empty
               FROM order_lines ol
               JOIN trip_allocations ta ON ta.order_id = ol.order_id
               WHERE ta.trip_id = ? AND ta.status <> ?
               ORDER BY ol.order_id, ol.id`
    rows, err := r.db.QueryContext(ctx, q, tripID, model.AllocationStatusCancelled)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var lines []model.OrderLine
    for rows.Next() {
        var l model.OrderLine
        if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.QtyFull, &l.QtyEmpty); err != nil {
            return nil, err
        }
        lines = append(lines, l)
    }
    return lines, rows.Err()
}

// UpdateStatusTx moves a single order to the given status.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID uint64, status string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
        status, orderID)
    return err
}

// UpdateStatusBulk moves every named order to the given status in one
// statement.  Used outside the allocation transaction for the
// best-effort DISPATCHED follow-up.
func (r *OrderRepo) UpdateStatusBulk(ctx context.Context, orderIDs []uint64, status string) error {
    if len(orderIDs) == 0 {
        return nil
    }
    placeholders := make([]string, 0, len(orderIDs))
    args := []interface{}{status}
    for _, id := range orderIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP
          WHERE id IN (` + strings.Join(placeholders, ",") + `)`
    _, err := r.db.ExecContext(ctx, q, args...)
    return err
}
