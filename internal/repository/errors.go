// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting database error strings.
package repository

import (
    "errors"
    "fmt"
)

// Not-found sentinels, one per entity the dispatch surface resolves by id.
var (
    ErrTripNotFound      = errors.New("trip not found")
    ErrTruckNotFound     = errors.New("truck not found")
    ErrDriverNotFound    = errors.New("driver not found")
    ErrWarehouseNotFound = errors.New("warehouse not found")
    ErrProductNotFound   = errors.New("product not found")
    ErrOrderNotFound     = errors.New("order not found")
    ErrVarianceNotFound  = errors.New("variance record not found")
    ErrDetailNotFound    = errors.New("loading detail not found")
)

// ErrConflict is returned when an operation cannot proceed due to
// conflicting state, such as allocating an order that already has an
// active allocation. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrInsufficientInventory is returned by guarded stock updates when the
// requested quantity would drive a reserved or on-hand count outside its
// invariant. The update leaves quantities unchanged.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrInvalidState is returned when an operation is attempted outside its
// legal lifecycle state, e.g. recording loading on a trip that is not
// loading.
var ErrInvalidState = errors.New("invalid state")

// TripConflictError reports a truck/driver date-exclusivity violation.
// It names the clashing trip, its status and the busy party so the
// dispatcher can see exactly what blocks the request.
type TripConflictError struct {
    TripID    uint64 // the existing non-cancelled trip
    Status    string // its current status
    Party     string // "truck" or "driver"
    PartyID   uint64 // id of the busy truck or driver
    RouteDate string // clashing calendar date
}

func (e *TripConflictError) Error() string {
    return fmt.Sprintf("%s %d already has trip %d (%s) on %s",
        e.Party, e.PartyID, e.TripID, e.Status, e.RouteDate)
}

// Is lets errors.Is(err, ErrConflict) match a TripConflictError.
func (e *TripConflictError) Is(target error) bool { return target == ErrConflict }
