package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// TripRepo provides persistence for trips.  Trips are never deleted;
// cancelling is a status change.  All timestamps are stored in UTC.
type TripRepo struct {
    db *sql.DB
}

// NewTripRepo returns a TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying sql.DB so handlers can begin transactions
// spanning multiple repositories.
func (r *TripRepo) DB() *sql.DB { return r.db }

// tripColumns is the SELECT list shared by every trip query.  route_date
// is formatted in SQL so it scans as a plain "2006-01-02" string.
const tripColumns = `id, truck_id, driver_id, warehouse_id,
       DATE_FORMAT(route_date, '%Y-%m-%d'),
       status, planned_start_time, planned_end_time,
       actual_start_time, actual_end_time,
       load_started_at, load_completed_at, delivery_started_at, unload_completed_at,
       notes, created_by, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*model.Trip, error) {
    var t model.Trip
    var driverID sql.NullInt64
    var notes sql.NullString
    var plannedStart, plannedEnd, actualStart, actualEnd sql.NullTime
    var loadStarted, loadCompleted, deliveryStarted, unloadCompleted sql.NullTime
    err := row.Scan(
        &t.ID, &t.TruckID, &driverID, &t.WarehouseID,
        &t.RouteDate,
        &t.Status, &plannedStart, &plannedEnd,
        &actualStart, &actualEnd,
        &loadStarted, &loadCompleted, &deliveryStarted, &unloadCompleted,
        &notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if driverID.Valid {
        id := uint64(driverID.Int64)
        t.DriverID = &id
    }
    if notes.Valid {
        n := notes.String
        t.Notes = &n
    }
    t.PlannedStartTime = nullTimePtr(plannedStart)
    t.PlannedEndTime = nullTimePtr(plannedEnd)
    t.ActualStartTime = nullTimePtr(actualStart)
    t.ActualEndTime = nullTimePtr(actualEnd)
    t.LoadStartedAt = nullTimePtr(loadStarted)
    t.LoadCompletedAt = nullTimePtr(loadCompleted)
    t.DeliveryStartedAt = nullTimePtr(deliveryStarted)
    t.UnloadCompletedAt = nullTimePtr(unloadCompleted)
    return &t, nil
}

func nullTimePtr(v sql.NullTime) *time.Time {
    if !v.Valid {
        return nil
    }
    t := v.Time.UTC()
    return &t
}

// FindActiveByTruckAndDateTx returns the non-cancelled trip for a truck
// on a date, or nil when the truck is free.  Run inside the creating
// transaction so the check and the insert see the same snapshot.
func (r *TripRepo) FindActiveByTruckAndDateTx(ctx context.Context, tx *sql.Tx, truckID uint64, routeDate string) (*model.Trip, error) {
    const q = `SELECT ` + tripColumns + ` FROM trips
               WHERE truck_id = ? AND route_date = ? AND status <> ? LIMIT 1`
    t, err := scanTrip(tx.QueryRowContext(ctx, q, truckID, routeDate, model.TripStatusCancelled))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return t, err
}

// FindActiveByDriverAndDateTx returns the non-cancelled trip a driver is
// assigned to on a date, or nil when the driver is free.
func (r *TripRepo) FindActiveByDriverAndDateTx(ctx context.Context, tx *sql.Tx, driverID uint64, routeDate string) (*model.Trip, error) {
    const q = `SELECT ` + tripColumns + ` FROM trips
               WHERE driver_id = ? AND route_date = ? AND status <> ? LIMIT 1`
    t, err := scanTrip(tx.QueryRowContext(ctx, q, driverID, routeDate, model.TripStatusCancelled))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return t, err
}

// CreateTx inserts a trip after re-verifying truck and driver
// exclusivity inside the transaction.  The write itself also fails
// closed: the unique indexes on (truck_id, route_date) and
// (driver_id, route_date) for non-cancelled trips surface as
// ErrConflict should two creations race past the check.  On success the
// generated ID and DB defaults are populated on the given trip.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
    if clash, err := r.FindActiveByTruckAndDateTx(ctx, tx, t.TruckID, t.RouteDate); err != nil {
        return err
    } else if clash != nil {
        return &TripConflictError{TripID: clash.ID, Status: clash.Status, Party: "truck", PartyID: t.TruckID, RouteDate: t.RouteDate}
    }
    if t.DriverID != nil {
        if clash, err := r.FindActiveByDriverAndDateTx(ctx, tx, *t.DriverID, t.RouteDate); err != nil {
            return err
        } else if clash != nil {
            return &TripConflictError{TripID: clash.ID, Status: clash.Status, Party: "driver", PartyID: *t.DriverID, RouteDate: t.RouteDate}
        }
    }

    const q = `INSERT INTO trips
               (truck_id, driver_id, warehouse_id, route_date, status,
                planned_start_time, planned_end_time, notes, created_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        t.TruckID, t.DriverID, t.WarehouseID, t.RouteDate, model.TripStatusPlanned,
        t.PlannedStartTime, t.PlannedEndTime, t.Notes, t.CreatedBy,
    )
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)

    const sel = `SELECT ` + tripColumns + ` FROM trips WHERE id = ?`
    created, err := scanTrip(tx.QueryRowContext(ctx, sel, t.ID))
    if err != nil {
        return err
    }
    *t = *created
    return nil
}

// GetByID returns a trip or ErrTripNotFound.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
    const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = ?`
    t, err := scanTrip(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTripNotFound
    }
    return t, err
}

// GetForUpdateTx loads a trip with a row lock so concurrent lifecycle
// mutations on the same trip serialize.
func (r *TripRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Trip, error) {
    const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = ? FOR UPDATE`
    t, err := scanTrip(tx.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTripNotFound
    }
    return t, err
}

// List returns trips ordered by route date descending then id.  Either
// filter may be empty.
func (r *TripRepo) List(ctx context.Context, routeDate, status string) ([]model.Trip, error) {
    q := `SELECT ` + tripColumns + ` FROM trips`
    var conds []string
    var args []interface{}
    if routeDate != "" {
        conds = append(conds, "route_date = ?")
        args = append(args, routeDate)
    }
    if status != "" {
        conds = append(conds, "status = ?")
        args = append(args, status)
    }
    if len(conds) > 0 {
        q += " WHERE " + strings.Join(conds, " AND ")
    }
    q += " ORDER BY route_date DESC, id DESC"

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    trips := make([]model.Trip, 0)
    for rows.Next() {
        t, err := scanTrip(rows)
        if err != nil {
            return nil, err
        }
        trips = append(trips, *t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return trips, nil
}

// UpdateStatusTx moves a trip from one status to another, stamps
// updated_at and any extra timestamp columns the lifecycle table
// prescribes for the target status, and optionally appends notes.  The
// WHERE clause restates the expected current status, so a trip that was
// moved meanwhile matches zero rows and ErrInvalidState is returned
// with nothing mutated.  stampCols must name trip timestamp columns
// only (they come from the lifecycle table, never from user input).
func (r *TripRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string, stampCols []string, at time.Time, notes *string) error {
    q := `UPDATE trips SET status = ?, updated_at = CURRENT_TIMESTAMP`
    args := []interface{}{to}
    for _, col := range stampCols {
        q += ", " + col + " = ?"
        args = append(args, at)
    }
    if notes != nil {
        q += ", notes = ?"
        args = append(args, *notes)
    }
    q += " WHERE id = ? AND status = ?"
    args = append(args, id, from)

    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        var current string
        if err := tx.QueryRowContext(ctx, `SELECT status FROM trips WHERE id = ? LIMIT 1`, id).Scan(&current); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrTripNotFound
            }
            return err
        }
        return ErrInvalidState
    }
    return nil
}
