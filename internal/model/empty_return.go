package model

import "time"

// Empty-return expectation statuses.
const (
    EmptyReturnPending   = "PENDING"
    EmptyReturnReturned  = "RETURNED"
    EmptyReturnOverdue   = "OVERDUE"
    EmptyReturnWrittenOff = "WRITTEN_OFF"
)

// EmptyReturnExpectation records that a customer owes empty cylinders
// back after an exchange delivery.  One record is seeded per exchange
// order line when the order is allocated to a trip, with a default
// 30-day return window.  The empty product is the EMPTY variant of the
// exchanged full product, resolved by SKU naming convention.
type EmptyReturnExpectation struct {
    ID             uint64    // empty_return_expectations.id
    OrderID        uint64    // empty_return_expectations.order_id
    CustomerID     uint64    // empty_return_expectations.customer_id
    FullProductID  uint64    // empty_return_expectations.full_product_id
    EmptyProductID *uint64   // empty_return_expectations.empty_product_id (nullable when unresolved)
    QtyExpected    int       // empty_return_expectations.qty_expected
    DueDate        string    // empty_return_expectations.due_date (DATE, "2006-01-02")
    Status         string    // empty_return_expectations.status
    CreatedAt      time.Time // empty_return_expectations.created_at
}
