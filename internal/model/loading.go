package model

import "time"

// Loading detail statuses for a (trip, product) line.
const (
    LoadingStatusPending    = "PENDING"
    LoadingStatusLoaded     = "LOADED"
    LoadingStatusShort      = "SHORT_LOADED"
    LoadingStatusOverLoaded = "OVER_LOADED"
)

// LoadingDetail tracks required vs. loaded cylinder quantities for one
// product on one trip.  Rows are seeded from the allocated orders' lines
// when loading starts and updated each time a loading record is
// submitted.  Once the trip leaves the LOADING state the rows are
// treated as read-only.
//
// Fields:
//  ID            – primary key identifier.
//  TripID        – owning trip.
//  ProductID     – product being loaded.
//  RequiredFull  – full cylinders required by allocated orders.
//  RequiredEmpty – empty cylinders required (returns/exchanges).
//  LoadedFull    – full cylinders actually loaded so far.
//  LoadedEmpty   – empty cylinders actually loaded so far.
//  Sequence      – loading order on the truck bed (nullable).
//  Status        – PENDING, LOADED, SHORT_LOADED or OVER_LOADED.
//  Notes         – free-text notes.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type LoadingDetail struct {
    ID            uint64    // trip_loading_details.id
    TripID        uint64    // trip_loading_details.trip_id
    ProductID     uint64    // trip_loading_details.product_id
    RequiredFull  int       // trip_loading_details.required_qty_full
    RequiredEmpty int       // trip_loading_details.required_qty_empty
    LoadedFull    int       // trip_loading_details.loaded_qty_full
    LoadedEmpty   int       // trip_loading_details.loaded_qty_empty
    Sequence      *uint32   // trip_loading_details.loading_sequence (nullable)
    Status        string    // trip_loading_details.status
    Notes         *string   // trip_loading_details.notes (nullable)
    CreatedAt     time.Time // trip_loading_details.created_at
    UpdatedAt     time.Time // trip_loading_details.updated_at
}
