package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// LoadingRepo provides persistence for per-trip loading detail lines.
type LoadingRepo struct {
    db *sql.DB
}

// NewLoadingRepo returns a LoadingRepo bound to the given database.
func NewLoadingRepo(db *sql.DB) *LoadingRepo { return &LoadingRepo{db: db} }

const loadingColumns = `id, trip_id, product_id, required_qty_full, required_qty_empty,
       loaded_qty_full, loaded_qty_empty, loading_sequence, status, notes, created_at, updated_at`

func scanLoadingDetail(row rowScanner) (*model.LoadingDetail, error) {
    var d model.LoadingDetail
    var seq sql.NullInt64
    var notes sql.NullString
    err := row.Scan(&d.ID, &d.TripID, &d.ProductID, &d.RequiredFull, &d.RequiredEmpty,
        &d.LoadedFull, &d.LoadedEmpty, &seq, &d.Status, &notes, &d.CreatedAt, &d.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if seq.Valid {
        v := uint32(seq.Int64)
        d.Sequence = &v
    }
    if notes.Valid {
        n := notes.String
        d.Notes = &n
    }
    return &d, nil
}

// CreateBulkTx seeds the loading detail lines for a trip when loading
// starts.  All lines start PENDING with zero loaded quantities.
func (r *LoadingRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, tripID uint64, lines []model.LoadingDetail) error {
    if len(lines) == 0 {
        return nil
    }
    query := `INSERT INTO trip_loading_details
              (trip_id, product_id, required_qty_full, required_qty_empty, loading_sequence, status) VALUES `
    args := make([]interface{}, 0, len(lines)*6)
    for i, d := range lines {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, tripID, d.ProductID, d.RequiredFull, d.RequiredEmpty, d.Sequence, model.LoadingStatusPending)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// GetByTripAndProductForUpdateTx locks one loading line so concurrent
// loading records for the same product serialize.  Returns
// ErrDetailNotFound when the product is not part of the trip's plan.
func (r *LoadingRepo) GetByTripAndProductForUpdateTx(ctx context.Context, tx *sql.Tx, tripID, productID uint64) (*model.LoadingDetail, error) {
    const q = `SELECT ` + loadingColumns + ` FROM trip_loading_details
               WHERE trip_id = ? AND product_id = ? FOR UPDATE`
    d, err := scanLoadingDetail(tx.QueryRowContext(ctx, q, tripID, productID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrDetailNotFound
    }
    return d, err
}

// InsertTx adds an unplanned loading line, used when a recorded load
// covers a product the seeded plan did not include.
func (r *LoadingRepo) InsertTx(ctx context.Context, tx *sql.Tx, d *model.LoadingDetail) error {
    const q = `INSERT INTO trip_loading_details
               (trip_id, product_id, required_qty_full, required_qty_empty,
                loaded_qty_full, loaded_qty_empty, loading_sequence, status, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        d.TripID, d.ProductID, d.RequiredFull, d.RequiredEmpty,
        d.LoadedFull, d.LoadedEmpty, d.Sequence, d.Status, d.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    d.ID = uint64(id)
    return nil
}

// UpdateLoadedTx writes the new loaded quantities and derived status for
// one line.  A non-nil sequence also sets the loading sequence, letting
// a loading record correct the line's position on the truck bed.
func (r *LoadingRepo) UpdateLoadedTx(ctx context.Context, tx *sql.Tx, id uint64, loadedFull, loadedEmpty int, sequence *uint32, status string, notes *string) error {
    q := `UPDATE trip_loading_details
          SET loaded_qty_full = ?, loaded_qty_empty = ?, status = ?, updated_at = CURRENT_TIMESTAMP`
    args := []interface{}{loadedFull, loadedEmpty, status}
    if sequence != nil {
        q += ", loading_sequence = ?"
        args = append(args, *sequence)
    }
    if notes != nil {
        q += ", notes = ?"
        args = append(args, *notes)
    }
    q += " WHERE id = ?"
    args = append(args, id)
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// ListByTrip returns the trip's loading lines in loading sequence order,
// unsequenced lines last.
func (r *LoadingRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.LoadingDetail, error) {
    const q = `SELECT ` + loadingColumns + ` FROM trip_loading_details
               WHERE trip_id = ?
               ORDER BY loading_sequence IS NULL, loading_sequence, product_id`
    rows, err := r.db.QueryContext(ctx, q, tripID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]model.LoadingDetail, 0)
    for rows.Next() {
        d, err := scanLoadingDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, *d)
    }
    return details, rows.Err()
}

// ListByTripTx is ListByTrip inside a transaction, used by loading
// completion so the summary and the status change see one snapshot.
func (r *LoadingRepo) ListByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.LoadingDetail, error) {
    const q = `SELECT ` + loadingColumns + ` FROM trip_loading_details
               WHERE trip_id = ?
               ORDER BY loading_sequence IS NULL, loading_sequence, product_id`
    rows, err := tx.QueryContext(ctx, q, tripID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]model.LoadingDetail, 0)
    for rows.Next() {
        d, err := scanLoadingDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, *d)
    }
    return details, rows.Err()
}

// CountByTripTx reports how many loading lines a trip has, a cheap way
// to tell whether loading has already been started.
func (r *LoadingRepo) CountByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM trip_loading_details WHERE trip_id = ?`, tripID).Scan(&n)
    return n, err
}
