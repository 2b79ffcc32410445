package model

import "time"

// Trip lifecycle statuses.  The canonical set is the five-state model:
// PLANNED -> LOADING -> LOADED -> IN_TRANSIT -> COMPLETED, with CANCELLED
// reachable from any non-terminal state.
const (
    TripStatusPlanned   = "PLANNED"
    TripStatusLoading   = "LOADING"
    TripStatusLoaded    = "LOADED"
    TripStatusInTransit = "IN_TRANSIT"
    TripStatusCompleted = "COMPLETED"
    TripStatusCancelled = "CANCELLED"
)

// Trip represents a truck's planned movement on a given route date,
// carrying allocated orders out of a warehouse.  At most one
// non-cancelled trip may exist per (truck, date) and per (driver, date).
// Trips are never deleted; they are cancelled instead.
//
// Fields:
//  ID                 – primary key identifier.
//  TruckID            – truck assigned to the trip.
//  DriverID           – driver assigned to the trip (nil when unassigned).
//  WarehouseID        – warehouse the trip loads from.
//  RouteDate          – calendar date of the trip ("2006-01-02").
//  Status             – lifecycle status (see constants above).
//  PlannedStartTime   – planned departure (nullable).
//  PlannedEndTime     – planned return (nullable).
//  ActualStartTime    – stamped when the trip goes IN_TRANSIT.
//  ActualEndTime      – stamped when the trip is COMPLETED.
//  LoadStartedAt      – stamped when loading begins.
//  LoadCompletedAt    – stamped when loading is completed.
//  DeliveryStartedAt  – stamped when the trip goes IN_TRANSIT.
//  UnloadCompletedAt  – stamped when the trip is COMPLETED.
//  Notes              – free-text dispatcher notes.
//  CreatedBy          – operator who created the trip.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Trip struct {
    ID                uint64     // trips.id
    TruckID           uint64     // trips.truck_id
    DriverID          *uint64    // trips.driver_id (nullable)
    WarehouseID       uint64     // trips.warehouse_id
    RouteDate         string     // trips.route_date (DATE, "2006-01-02")
    Status            string     // trips.status
    PlannedStartTime  *time.Time // trips.planned_start_time (nullable)
    PlannedEndTime    *time.Time // trips.planned_end_time (nullable)
    ActualStartTime   *time.Time // trips.actual_start_time (nullable)
    ActualEndTime     *time.Time // trips.actual_end_time (nullable)
    LoadStartedAt     *time.Time // trips.load_started_at (nullable)
    LoadCompletedAt   *time.Time // trips.load_completed_at (nullable)
    DeliveryStartedAt *time.Time // trips.delivery_started_at (nullable)
    UnloadCompletedAt *time.Time // trips.unload_completed_at (nullable)
    Notes             *string    // trips.notes (nullable)
    CreatedBy         uint64     // trips.created_by
    CreatedAt         time.Time  // trips.created_at
    UpdatedAt         time.Time  // trips.updated_at
}
