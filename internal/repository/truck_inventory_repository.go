package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// TruckInventoryRepo provides persistence for per-truck stock lines.
// Reservation and transfer mutations are single guarded UPDATE
// statements: the WHERE clause restates the stock invariant, so a
// concurrent change that would break it simply matches zero rows and
// the caller gets ErrInsufficientInventory with nothing mutated.
type TruckInventoryRepo struct {
    db *sql.DB
}

// NewTruckInventoryRepo returns a TruckInventoryRepo bound to the given database.
func NewTruckInventoryRepo(db *sql.DB) *TruckInventoryRepo { return &TruckInventoryRepo{db: db} }

// ListByTruck returns all stock lines on a truck ordered by product.
func (r *TruckInventoryRepo) ListByTruck(ctx context.Context, truckID uint64) ([]model.TruckInventory, error) {
    const q = `SELECT id, truck_id, product_id, qty_full, qty_empty, qty_reserved, updated_at
               FROM truck_inventory WHERE truck_id = ? ORDER BY product_id`
    rows, err := r.db.QueryContext(ctx, q, truckID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    lines := make([]model.TruckInventory, 0)
    for rows.Next() {
        var ti model.TruckInventory
        if err := rows.Scan(&ti.ID, &ti.TruckID, &ti.ProductID, &ti.QtyFull, &ti.QtyEmpty, &ti.QtyReserved, &ti.UpdatedAt); err != nil {
            return nil, err
        }
        lines = append(lines, ti)
    }
    return lines, rows.Err()
}

// GetTx returns the stock line for a (truck, product) pair inside a
// transaction, or nil when the truck has never carried the product.
func (r *TruckInventoryRepo) GetTx(ctx context.Context, tx *sql.Tx, truckID, productID uint64) (*model.TruckInventory, error) {
    const q = `SELECT id, truck_id, product_id, qty_full, qty_empty, qty_reserved, updated_at
               FROM truck_inventory WHERE truck_id = ? AND product_id = ?`
    var ti model.TruckInventory
    err := tx.QueryRowContext(ctx, q, truckID, productID).
        Scan(&ti.ID, &ti.TruckID, &ti.ProductID, &ti.QtyFull, &ti.QtyEmpty, &ti.QtyReserved, &ti.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &ti, nil
}

// ReserveTx increases qty_reserved by qty for a (truck, product) line.
// The guard keeps 0 <= qty_reserved <= qty_full; when the line is
// missing or the remaining availability is too small the update matches
// nothing and ErrInsufficientInventory is returned.
func (r *TruckInventoryRepo) ReserveTx(ctx context.Context, tx *sql.Tx, truckID, productID uint64, qty int) error {
    return r.adjustReservedTx(ctx, tx, truckID, productID, qty)
}

// ReleaseTx decreases qty_reserved by qty, the exact inverse of
// ReserveTx.  Releasing more than is reserved fails the guard.
func (r *TruckInventoryRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, truckID, productID uint64, qty int) error {
    return r.adjustReservedTx(ctx, tx, truckID, productID, -qty)
}

func (r *TruckInventoryRepo) adjustReservedTx(ctx context.Context, tx *sql.Tx, truckID, productID uint64, delta int) error {
    if delta == 0 {
        return nil
    }
    const q = `UPDATE truck_inventory
               SET qty_reserved = qty_reserved + ?, updated_at = CURRENT_TIMESTAMP
               WHERE truck_id = ? AND product_id = ?
                 AND qty_reserved + ? >= 0
                 AND qty_reserved + ? <= qty_full`
    res, err := tx.ExecContext(ctx, q, delta, truckID, productID, delta, delta)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err != nil {
        return err
    } else if n == 0 {
        return ErrInsufficientInventory
    }
    return nil
}

// AddStockTx adds (possibly negative) full and empty quantities to a
// truck's stock line, creating the line when absent.  Negative deltas
// are guarded so neither count drops below zero and qty_full never
// drops below qty_reserved.
func (r *TruckInventoryRepo) AddStockTx(ctx context.Context, tx *sql.Tx, truckID, productID uint64, deltaFull, deltaEmpty int) error {
    if deltaFull == 0 && deltaEmpty == 0 {
        return nil
    }
    const upd = `UPDATE truck_inventory
                 SET qty_full = qty_full + ?, qty_empty = qty_empty + ?, updated_at = CURRENT_TIMESTAMP
                 WHERE truck_id = ? AND product_id = ?
                   AND qty_full + ? >= qty_reserved
                   AND qty_empty + ? >= 0`
    res, err := tx.ExecContext(ctx, upd, deltaFull, deltaEmpty, truckID, productID, deltaFull, deltaEmpty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }

    // Either the line does not exist yet or the guard failed; insert only
    // when the line is genuinely absent and the deltas are non-negative.
    var one int
    err = tx.QueryRowContext(ctx,
        `SELECT 1 FROM truck_inventory WHERE truck_id = ? AND product_id = ? LIMIT 1`,
        truckID, productID).Scan(&one)
    if err == nil {
        return ErrInsufficientInventory
    }
    if !errors.Is(err, sql.ErrNoRows) {
        return err
    }
    if deltaFull < 0 || deltaEmpty < 0 {
        return ErrInsufficientInventory
    }
    _, err = tx.ExecContext(ctx,
        `INSERT INTO truck_inventory (truck_id, product_id, qty_full, qty_empty, qty_reserved)
         VALUES (?, ?, ?, ?, 0)`,
        truckID, productID, deltaFull, deltaEmpty)
    return err
}
