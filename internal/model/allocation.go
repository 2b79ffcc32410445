package model

import "time"

// Allocation statuses.  PLANNED rows are active; CANCELLED rows no longer
// count towards the one-active-allocation-per-order rule.
const (
    AllocationStatusPlanned   = "PLANNED"
    AllocationStatusLoaded    = "LOADED"
    AllocationStatusDelivered = "DELIVERED"
    AllocationStatusCancelled = "CANCELLED"
)

// TripAllocation links one order to one trip.  An order participates in at
// most one active allocation across all trips.  TruckID is denormalized
// from the trip for reporting queries.
//
// Fields:
//  ID              – primary key identifier.
//  TripID          – trip the order is allocated to.
//  TruckID         – truck of the trip (denormalized).
//  OrderID         – allocated order.
//  StopSequence    – route stop order (nil when not auto-sequenced).
//  Status          – allocation status (see constants above).
//  EstimatedWeight – estimated load weight in kg (nullable).
//  ActualWeight    – recorded load weight in kg (nullable).
//  AllocatedBy     – operator who performed the allocation.
//  Notes           – free-text notes.
//  CreatedAt       – creation timestamp.
type TripAllocation struct {
    ID              uint64    // trip_allocations.id
    TripID          uint64    // trip_allocations.trip_id
    TruckID         uint64    // trip_allocations.truck_id
    OrderID         uint64    // trip_allocations.order_id
    StopSequence    *uint32   // trip_allocations.stop_sequence (nullable)
    Status          string    // trip_allocations.status
    EstimatedWeight *float64  // trip_allocations.estimated_weight_kg (nullable)
    ActualWeight    *float64  // trip_allocations.actual_weight_kg (nullable)
    AllocatedBy     uint64    // trip_allocations.allocated_by
    Notes           *string   // trip_allocations.notes (nullable)
    CreatedAt       time.Time // trip_allocations.created_at
}
