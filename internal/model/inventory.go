package model

import "time"

// TruckInventory is the per (truck, product) stock line on a vehicle.
// Invariant: 0 <= QtyReserved <= QtyFull at all times; the available
// quantity is QtyFull - QtyReserved and must never go negative as a
// result of a reservation.  Mutations go exclusively through the
// reservation and transfer repository entry points, which enforce the
// invariant with guarded updates.
type TruckInventory struct {
    ID          uint64    // truck_inventory.id
    TruckID     uint64    // truck_inventory.truck_id
    ProductID   uint64    // truck_inventory.product_id
    QtyFull     int       // truck_inventory.qty_full
    QtyEmpty    int       // truck_inventory.qty_empty
    QtyReserved int       // truck_inventory.qty_reserved
    UpdatedAt   time.Time // truck_inventory.updated_at
}

// Available returns the unreserved full-cylinder quantity.
func (t *TruckInventory) Available() int {
    return t.QtyFull - t.QtyReserved
}

// Warehouse represents a stocking location trips load from.
type Warehouse struct {
    ID        uint64    // warehouses.id
    Name      string    // warehouses.name
    Address   *string   // warehouses.address (nullable)
    IsActive  bool      // warehouses.is_active
    CreatedAt time.Time // warehouses.created_at
    UpdatedAt time.Time // warehouses.updated_at
}

// WarehouseInventory is the per (warehouse, product) stock line.
// ReorderLevel acts as safety stock when availability checks are asked
// to respect it.
type WarehouseInventory struct {
    ID           uint64    // warehouse_inventory.id
    WarehouseID  uint64    // warehouse_inventory.warehouse_id
    ProductID    uint64    // warehouse_inventory.product_id
    QtyFull      int       // warehouse_inventory.qty_full
    QtyEmpty     int       // warehouse_inventory.qty_empty
    ReorderLevel int       // warehouse_inventory.reorder_level
    UpdatedAt    time.Time // warehouse_inventory.updated_at
}
