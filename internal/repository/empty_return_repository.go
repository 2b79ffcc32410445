package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// EmptyReturnRepo provides persistence for empty-return expectations.
type EmptyReturnRepo struct {
    db *sql.DB
}

// NewEmptyReturnRepo returns an EmptyReturnRepo bound to the given database.
func NewEmptyReturnRepo(db *sql.DB) *EmptyReturnRepo { return &EmptyReturnRepo{db: db} }

// CreateBulk inserts expectation rows in one statement.  Called outside
// the allocation transaction as a best-effort follow-up, so a failure
// here never unwinds the allocation.
func (r *EmptyReturnRepo) CreateBulk(ctx context.Context, expectations []model.EmptyReturnExpectation) error {
    if len(expectations) == 0 {
        return nil
    }
    query := `INSERT INTO empty_return_expectations
              (order_id, customer_id, full_product_id, empty_product_id, qty_expected, due_date, status) VALUES `
    args := make([]interface{}, 0, len(expectations)*7)
    for i, e := range expectations {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?)"
        args = append(args, e.OrderID, e.CustomerID, e.FullProductID, e.EmptyProductID, e.QtyExpected, e.DueDate, e.Status)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// DeleteByOrder removes pending expectations for an order, used when an
// allocation is rolled back after its follow-ups already ran.
func (r *EmptyReturnRepo) DeleteByOrder(ctx context.Context, orderID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `DELETE FROM empty_return_expectations WHERE order_id = ? AND status = ?`,
        orderID, model.EmptyReturnPending)
    return err
}

// ListByOrder returns an order's expectations in creation order.
func (r *EmptyReturnRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.EmptyReturnExpectation, error) {
    const q = `SELECT id, order_id, customer_id, full_product_id, empty_product_id,
                      qty_expected, DATE_FORMAT(due_date, '%Y-%m-%d'), status, created_at
               FROM empty_return_expectations WHERE order_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    expectations := make([]model.EmptyReturnExpectation, 0)
    for rows.Next() {
        var e model.EmptyReturnExpectation
        var emptyProductID sql.NullInt64
        if err := rows.Scan(&e.ID, &e.OrderID, &e.CustomerID, &e.FullProductID, &emptyProductID,
            &e.QtyExpected, &e.DueDate, &e.Status, &e.CreatedAt); err != nil {
            return nil, err
        }
        if emptyProductID.Valid {
            id := uint64(emptyProductID.Int64)
            e.EmptyProductID = &id
        }
        expectations = append(expectations, e)
    }
    return expectations, rows.Err()
}
