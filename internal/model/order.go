package model

import "time"

// Order statuses.  Only CONFIRMED orders are eligible for allocation;
// allocation moves them to DISPATCHED and removal reverts them to
// CONFIRMED.
const (
    OrderStatusDraft      = "DRAFT"
    OrderStatusConfirmed  = "CONFIRMED"
    OrderStatusDispatched = "DISPATCHED"
    OrderStatusDelivered  = "DELIVERED"
    OrderStatusCancelled  = "CANCELLED"
)

// Order represents a confirmed customer order awaiting delivery.
type Order struct {
    ID         uint64    // orders.id
    CustomerID uint64    // orders.customer_id
    Status     string    // orders.status
    Notes      *string   // orders.notes (nullable)
    CreatedAt  time.Time // orders.created_at
    UpdatedAt  time.Time // orders.updated_at
}

// OrderLine is one product line on an order.  QtyFull counts full
// cylinders to deliver; QtyEmpty counts empties expected back on
// exchange lines.
type OrderLine struct {
    ID        uint64 // order_lines.id
    OrderID   uint64 // order_lines.order_id
    ProductID uint64 // order_lines.product_id
    QtyFull   int    // order_lines.qty_full
    QtyEmpty  int    // order_lines.qty_empty
}
