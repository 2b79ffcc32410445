package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// VarianceRepo provides persistence for trip variance records.
type VarianceRepo struct {
    db *sql.DB
}

// NewVarianceRepo returns a VarianceRepo bound to the given database.
func NewVarianceRepo(db *sql.DB) *VarianceRepo { return &VarianceRepo{db: db} }

const varianceColumns = `id, trip_id, product_id, expected_qty_full, expected_qty_empty,
       physical_qty_full, physical_qty_empty, variance_qty_full, variance_qty_empty,
       reason_code, financial_impact_cents, status, recorded_by, notes, created_at, updated_at`

func scanVariance(row rowScanner) (*model.VarianceRecord, error) {
    var v model.VarianceRecord
    var impact sql.NullInt64
    var notes sql.NullString
    err := row.Scan(&v.ID, &v.TripID, &v.ProductID, &v.ExpectedFull, &v.ExpectedEmpty,
        &v.PhysicalFull, &v.PhysicalEmpty, &v.VarianceFull, &v.VarianceEmpty,
        &v.ReasonCode, &impact, &v.Status, &v.RecordedBy, &notes, &v.CreatedAt, &v.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if impact.Valid {
        c := impact.Int64
        v.FinancialImpactCents = &c
    }
    if notes.Valid {
        n := notes.String
        v.Notes = &n
    }
    return &v, nil
}

// Create inserts a variance record and reads back the stored row.
func (r *VarianceRepo) Create(ctx context.Context, v *model.VarianceRecord) error {
    const q = `INSERT INTO trip_variances
               (trip_id, product_id, expected_qty_full, expected_qty_empty,
                physical_qty_full, physical_qty_empty, variance_qty_full, variance_qty_empty,
                reason_code, financial_impact_cents, status, recorded_by, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        v.TripID, v.ProductID, v.ExpectedFull, v.ExpectedEmpty,
        v.PhysicalFull, v.PhysicalEmpty, v.VarianceFull, v.VarianceEmpty,
        v.ReasonCode, v.FinancialImpactCents, v.Status, v.RecordedBy, v.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    const sel = `SELECT ` + varianceColumns + ` FROM trip_variances WHERE id = ?`
    created, err := scanVariance(r.db.QueryRowContext(ctx, sel, uint64(id)))
    if err != nil {
        return err
    }
    *v = *created
    return nil
}

// GetByID returns a variance record or ErrVarianceNotFound.
func (r *VarianceRepo) GetByID(ctx context.Context, id uint64) (*model.VarianceRecord, error) {
    const q = `SELECT ` + varianceColumns + ` FROM trip_variances WHERE id = ?`
    v, err := scanVariance(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrVarianceNotFound
    }
    return v, err
}

// UpdateResolution moves a variance record to a new resolution status,
// optionally replacing the reason code and appending notes.
func (r *VarianceRepo) UpdateResolution(ctx context.Context, id uint64, status string, reasonCode, notes *string) error {
    q := `UPDATE trip_variances SET status = ?, updated_at = CURRENT_TIMESTAMP`
    args := []interface{}{status}
    if reasonCode != nil {
        q += ", reason_code = ?"
        args = append(args, *reasonCode)
    }
    if notes != nil {
        q += ", notes = ?"
        args = append(args, *notes)
    }
    q += " WHERE id = ?"
    args = append(args, id)
    _, err := r.db.ExecContext(ctx, q, args...)
    return err
}

// ListByTrip returns a trip's variance records in creation order.
func (r *VarianceRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.VarianceRecord, error) {
    const q = `SELECT ` + varianceColumns + ` FROM trip_variances WHERE trip_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, tripID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    records := make([]model.VarianceRecord, 0)
    for rows.Next() {
        v, err := scanVariance(rows)
        if err != nil {
            return nil, err
        }
        records = append(records, *v)
    }
    return records, rows.Err()
}
