// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for the dispatch domain events.
const (
    TripStatusQueueName = "trip.status_changed"
    VarianceQueueName   = "variance.recorded"
)

// TripStatusChangedEvent is published whenever a trip moves through its
// lifecycle. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type TripStatusChangedEvent struct {
    TripID    uint64 `json:"trip_id"`
    TruckID   uint64 `json:"truck_id"`
    RouteDate string `json:"route_date"`
    OldStatus string `json:"old_status"`
    NewStatus string `json:"new_status"`
    ChangedBy uint64 `json:"changed_by"`
    ChangedAt string `json:"changed_at"`
}

// VarianceRecordedEvent is published when a cylinder count discrepancy is
// recorded against a trip, so accounting consumers can pick it up without
// polling.
type VarianceRecordedEvent struct {
    VarianceID           uint64 `json:"variance_id"`
    TripID               uint64 `json:"trip_id"`
    ProductID            uint64 `json:"product_id"`
    VarianceFull         int    `json:"variance_qty_full"`
    VarianceEmpty        int    `json:"variance_qty_empty"`
    ReasonCode           string `json:"reason_code"`
    FinancialImpactCents *int64 `json:"financial_impact_cents,omitempty"`
    RecordedBy           uint64 `json:"recorded_by"`
    RecordedAt           string `json:"recorded_at"`
}
