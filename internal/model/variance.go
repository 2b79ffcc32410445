package model

import "time"

// Variance resolution statuses.  Resolution follows
// PENDING -> INVESTIGATING -> {RESOLVED | WRITTEN_OFF | ADJUSTED}.
const (
    VarianceStatusPending       = "PENDING"
    VarianceStatusInvestigating = "INVESTIGATING"
    VarianceStatusResolved      = "RESOLVED"
    VarianceStatusWrittenOff    = "WRITTEN_OFF"
    VarianceStatusAdjusted      = "ADJUSTED"
)

// Variance reason codes recorded at unload.
const (
    VarianceReasonUnknown     = "UNKNOWN"
    VarianceReasonDamage      = "DAMAGE"
    VarianceReasonTheft       = "THEFT"
    VarianceReasonMiscount    = "MISCOUNT"
    VarianceReasonLeak        = "LEAK"
    VarianceReasonCustomerUse = "CUSTOMER_RETENTION"
)

// VarianceRecord captures the difference between expected and physically
// counted cylinder quantities for one product on one trip, typically
// recorded during unload.  Variance amounts are physical minus expected.
// Unresolved variances never block trip completion; they are an
// accounting concern, not a lifecycle gate.
//
// Fields:
//  ID                   – primary key identifier.
//  TripID               – owning trip.
//  ProductID            – product counted.
//  ExpectedFull         – expected full cylinders.
//  ExpectedEmpty        – expected empty cylinders.
//  PhysicalFull         – physically counted full cylinders.
//  PhysicalEmpty        – physically counted empty cylinders.
//  VarianceFull         – PhysicalFull - ExpectedFull.
//  VarianceEmpty        – PhysicalEmpty - ExpectedEmpty.
//  ReasonCode           – classification of the discrepancy.
//  FinancialImpactCents – unit cost × variance, when cost is known (nullable).
//  Status               – resolution status (see constants above).
//  RecordedBy           – operator who recorded the count.
//  Notes                – free-text notes.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type VarianceRecord struct {
    ID                   uint64    // trip_variances.id
    TripID               uint64    // trip_variances.trip_id
    ProductID            uint64    // trip_variances.product_id
    ExpectedFull         int       // trip_variances.expected_qty_full
    ExpectedEmpty        int       // trip_variances.expected_qty_empty
    PhysicalFull         int       // trip_variances.physical_qty_full
    PhysicalEmpty        int       // trip_variances.physical_qty_empty
    VarianceFull         int       // trip_variances.variance_qty_full
    VarianceEmpty        int       // trip_variances.variance_qty_empty
    ReasonCode           string    // trip_variances.reason_code
    FinancialImpactCents *int64    // trip_variances.financial_impact_cents (nullable)
    Status               string    // trip_variances.status
    RecordedBy           uint64    // trip_variances.recorded_by
    Notes                *string   // trip_variances.notes (nullable)
    CreatedAt            time.Time // trip_variances.created_at
    UpdatedAt            time.Time // trip_variances.updated_at
}
