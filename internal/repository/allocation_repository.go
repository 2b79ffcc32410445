package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// AllocationRepo provides persistence for trip allocations.  An order
// may have at most one active (non-cancelled) allocation across all
// trips; a unique index on order_id filtered to active rows backs the
// check-then-insert sequence so concurrent allocations of the same
// order cannot both succeed.
type AllocationRepo struct {
    db *sql.DB
}

// NewAllocationRepo returns an AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// ActiveOrderIDsTx returns, from the given order ids, those that already
// have an active allocation on any trip.
func (r *AllocationRepo) ActiveOrderIDsTx(ctx context.Context, tx *sql.Tx, orderIDs []uint64) ([]uint64, error) {
    if len(orderIDs) == 0 {
        return nil, nil
    }
    placeholders := make([]string, 0, len(orderIDs))
    args := make([]interface{}, 0, len(orderIDs)+1)
    for _, id := range orderIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    args = append(args, model.AllocationStatusCancelled)
    q := `SELECT order_id FROM trip_allocations
          WHERE order_id IN (` + strings.Join(placeholders, ",") + `) AND status <> ?`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var taken []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        taken = append(taken, id)
    }
    return taken, rows.Err()
}

// CreateBulkTx inserts allocation rows in one statement and returns the
// ids of the inserted rows (consecutive under MySQL auto-increment).
// A racing duplicate allocation surfaces as ErrConflict from the unique
// order index.
func (r *AllocationRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, allocs []model.TripAllocation) ([]uint64, error) {
    if len(allocs) == 0 {
        return nil, nil
    }
    query := `INSERT INTO trip_allocations
              (trip_id, truck_id, order_id, stop_sequence, status, estimated_weight_kg, allocated_by, notes) VALUES `
    args := make([]interface{}, 0, len(allocs)*8)
    for i, a := range allocs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?, ?)"
        args = append(args, a.TripID, a.TruckID, a.OrderID, a.StopSequence, a.Status, a.EstimatedWeight, a.AllocatedBy, a.Notes)
    }
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            return nil, ErrConflict
        }
        return nil, err
    }
    first, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    ids := make([]uint64, len(allocs))
    for i := range allocs {
        ids[i] = uint64(first) + uint64(i)
    }
    return ids, nil
}

// GetActiveByTripAndOrderTx returns the active allocation linking an
// order to a trip, or ErrOrderNotFound when none exists.
func (r *AllocationRepo) GetActiveByTripAndOrderTx(ctx context.Context, tx *sql.Tx, tripID, orderID uint64) (*model.TripAllocation, error) {
    const q = `SELECT id, trip_id, truck_id, order_id, stop_sequence, status,
                      estimated_weight_kg, actual_weight_kg, allocated_by, notes, created_at
               FROM trip_allocations
               WHERE trip_id = ? AND order_id = ? AND status <> ? LIMIT 1`
    a, err := scanAllocation(tx.QueryRowContext(ctx, q, tripID, orderID, model.AllocationStatusCancelled))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrOrderNotFound
    }
    return a, err
}

// DeleteTx removes a single allocation row.
func (r *AllocationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM trip_allocations WHERE id = ?`, id)
    return err
}

// CountActiveByTripTx counts the trip's remaining active allocations.
func (r *AllocationRepo) CountActiveByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM trip_allocations WHERE trip_id = ? AND status <> ?`,
        tripID, model.AllocationStatusCancelled).Scan(&n)
    return n, err
}

// ListByTrip returns all allocations of a trip ordered by stop sequence
// (unsequenced rows last) then creation order.
func (r *AllocationRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.TripAllocation, error) {
    const q = `SELECT id, trip_id, truck_id, order_id, stop_sequence, status,
                      estimated_weight_kg, actual_weight_kg, allocated_by, notes, created_at
               FROM trip_allocations
               WHERE trip_id = ?
               ORDER BY stop_sequence IS NULL, stop_sequence, id`
    rows, err := r.db.QueryContext(ctx, q, tripID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    allocs := make([]model.TripAllocation, 0)
    for rows.Next() {
        a, err := scanAllocation(rows)
        if err != nil {
            return nil, err
        }
        allocs = append(allocs, *a)
    }
    return allocs, rows.Err()
}

// ListActiveByTripTx is ListByTrip restricted to active rows, inside a
// transaction (used when cancelling a trip to release reservations).
func (r *AllocationRepo) ListActiveByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.TripAllocation, error) {
    const q = `SELECT id, trip_id, truck_id, order_id, stop_sequence, status,
                      estimated_weight_kg, actual_weight_kg, allocated_by, notes, created_at
               FROM trip_allocations
               WHERE trip_id = ? AND status <> ?
               ORDER BY id`
    rows, err := tx.QueryContext(ctx, q, tripID, model.AllocationStatusCancelled)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    allocs := make([]model.TripAllocation, 0)
    for rows.Next() {
        a, err := scanAllocation(rows)
        if err != nil {
            return nil, err
        }
        allocs = append(allocs, *a)
    }
    return allocs, rows.Err()
}

// UpdateStatusByTripTx flips every active allocation of a trip to the
// given status (e.g. CANCELLED when the trip is cancelled, LOADED when
// loading completes).
func (r *AllocationRepo) UpdateStatusByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64, status string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE trip_allocations SET status = ? WHERE trip_id = ? AND status <> ?`,
        status, tripID, model.AllocationStatusCancelled)
    return err
}

func scanAllocation(row rowScanner) (*model.TripAllocation, error) {
    var a model.TripAllocation
    var stopSeq sql.NullInt64
    var estWeight, actWeight sql.NullFloat64
    var notes sql.NullString
    err := row.Scan(&a.ID, &a.TripID, &a.TruckID, &a.OrderID, &stopSeq, &a.Status,
        &estWeight, &actWeight, &a.AllocatedBy, &notes, &a.CreatedAt)
    if err != nil {
        return nil, err
    }
    if stopSeq.Valid {
        v := uint32(stopSeq.Int64)
        a.StopSequence = &v
    }
    if estWeight.Valid {
        v := estWeight.Float64
        a.EstimatedWeight = &v
    }
    if actWeight.Valid {
        v := actWeight.Float64
        a.ActualWeight = &v
    }
    if notes.Valid {
        n := notes.String
        a.Notes = &n
    }
    return &a, nil
}
