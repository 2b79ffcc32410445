package model

import "time"

// Truck represents a delivery vehicle.  CapacityCylinders is the rated
// number of cylinders the truck can carry; CapacityKg is the rated load
// weight.  When CapacityKg is unset, capacity validation derives a
// fallback from the cylinder capacity.
//
// Fields:
//  ID                – primary key identifier.
//  Code              – unique fleet code (e.g. "TRK-07").
//  PlateNumber       – registration plate.
//  CapacityCylinders – rated cylinder capacity.
//  CapacityKg        – rated weight capacity in kg (nullable).
//  IsActive          – whether the truck is in service.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Truck struct {
    ID                uint64    // trucks.id
    Code              string    // trucks.code
    PlateNumber       string    // trucks.plate_number
    CapacityCylinders int       // trucks.capacity_cylinders
    CapacityKg        *float64  // trucks.capacity_kg (nullable)
    IsActive          bool      // trucks.is_active
    CreatedAt         time.Time // trucks.created_at
    UpdatedAt         time.Time // trucks.updated_at
}

// Driver represents a person who can be assigned to trips.  A driver may
// have at most one active trip per calendar date.
type Driver struct {
    ID        uint64    // drivers.id
    FullName  string    // drivers.full_name
    Phone     *string   // drivers.phone (nullable)
    IsActive  bool      // drivers.is_active
    CreatedAt time.Time // drivers.created_at
    UpdatedAt time.Time // drivers.updated_at
}
