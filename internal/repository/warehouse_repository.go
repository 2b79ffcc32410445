package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// WarehouseRepo provides read access to warehouses.
type WarehouseRepo struct {
    db *sql.DB
}

// NewWarehouseRepo returns a WarehouseRepo bound to the given database.
func NewWarehouseRepo(db *sql.DB) *WarehouseRepo { return &WarehouseRepo{db: db} }

// GetByID returns a warehouse or ErrWarehouseNotFound.
func (r *WarehouseRepo) GetByID(ctx context.Context, id uint64) (*model.Warehouse, error) {
    const q = `SELECT id, name, address, is_active, created_at, updated_at
               FROM warehouses WHERE id = ?`
    var w model.Warehouse
    var address sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&w.ID, &w.Name, &address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrWarehouseNotFound
    }
    if err != nil {
        return nil, err
    }
    if address.Valid {
        a := address.String
        w.Address = &a
    }
    return &w, nil
}

// WarehouseInventoryRepo provides persistence for warehouse stock lines.
// Stock removals use the same guarded-update shape as truck inventory:
// the WHERE clause restates the non-negativity invariant and zero rows
// affected means the stock was not there.
type WarehouseInventoryRepo struct {
    db *sql.DB
}

// NewWarehouseInventoryRepo returns a WarehouseInventoryRepo bound to the given database.
func NewWarehouseInventoryRepo(db *sql.DB) *WarehouseInventoryRepo {
    return &WarehouseInventoryRepo{db: db}
}

// ListByWarehouse returns the warehouse's stock lines keyed by product.
func (r *WarehouseInventoryRepo) ListByWarehouse(ctx context.Context, warehouseID uint64) (map[uint64]*model.WarehouseInventory, error) {
    const q = `SELECT id, warehouse_id, product_id, qty_full, qty_empty, reorder_level, updated_at
               FROM warehouse_inventory WHERE warehouse_id = ?`
    rows, err := r.db.QueryContext(ctx, q, warehouseID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    stock := make(map[uint64]*model.WarehouseInventory)
    for rows.Next() {
        var wi model.WarehouseInventory
        if err := rows.Scan(&wi.ID, &wi.WarehouseID, &wi.ProductID, &wi.QtyFull, &wi.QtyEmpty, &wi.ReorderLevel, &wi.UpdatedAt); err != nil {
            return nil, err
        }
        stock[wi.ProductID] = &wi
    }
    return stock, rows.Err()
}

// GetTx returns the stock line for a (warehouse, product) pair inside a
// transaction, or nil when the warehouse has never stocked the product.
func (r *WarehouseInventoryRepo) GetTx(ctx context.Context, tx *sql.Tx, warehouseID, productID uint64) (*model.WarehouseInventory, error) {
    const q = `SELECT id, warehouse_id, product_id, qty_full, qty_empty, reorder_level, updated_at
               FROM warehouse_inventory WHERE warehouse_id = ? AND product_id = ?`
    var wi model.WarehouseInventory
    err := tx.QueryRowContext(ctx, q, warehouseID, productID).
        Scan(&wi.ID, &wi.WarehouseID, &wi.ProductID, &wi.QtyFull, &wi.QtyEmpty, &wi.ReorderLevel, &wi.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &wi, nil
}

// RemoveStockTx subtracts full and empty quantities from a warehouse
// stock line.  The guard keeps both counts non-negative; a shortfall
// matches zero rows and returns ErrInsufficientInventory unchanged.
func (r *WarehouseInventoryRepo) RemoveStockTx(ctx context.Context, tx *sql.Tx, warehouseID, productID uint64, qtyFull, qtyEmpty int) error {
    if qtyFull == 0 && qtyEmpty == 0 {
        return nil
    }
    const q = `UPDATE warehouse_inventory
               SET qty_full = qty_full - ?, qty_empty = qty_empty - ?, updated_at = CURRENT_TIMESTAMP
               WHERE warehouse_id = ? AND product_id = ?
                 AND qty_full >= ? AND qty_empty >= ?`
    res, err := tx.ExecContext(ctx, q, qtyFull, qtyEmpty, warehouseID, productID, qtyFull, qtyEmpty)
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

// AddStockTx adds full and empty quantities back to a warehouse stock
// line, creating the line when absent.  Used when loading is corrected
// downward or a trip is cancelled after stock moved to the truck.
func (r *WarehouseInventoryRepo) AddStockTx(ctx context.Context, tx *sql.Tx, warehouseID, productID uint64, qtyFull, qtyEmpty int) error {
    if qtyFull == 0 && qtyEmpty == 0 {
        return nil
    }
    const q = `INSERT INTO warehouse_inventory (warehouse_id, product_id, qty_full, qty_empty)
               VALUES (?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                 qty_full = qty_full + VALUES(qty_full),
                 qty_empty = qty_empty + VALUES(qty_empty),
                 updated_at = CURRENT_TIMESTAMP`
    _, err := tx.ExecContext(ctx, q, warehouseID, productID, qtyFull, qtyEmpty)
    return err
}
