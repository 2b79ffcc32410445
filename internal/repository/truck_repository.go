package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// TruckRepo provides read access to the fleet.
type TruckRepo struct {
    db *sql.DB
}

// NewTruckRepo returns a TruckRepo bound to the given database.
func NewTruckRepo(db *sql.DB) *TruckRepo { return &TruckRepo{db: db} }

// GetByID returns a truck or ErrTruckNotFound.
func (r *TruckRepo) GetByID(ctx context.Context, id uint64) (*model.Truck, error) {
    const q = `SELECT id, code, plate_number, capacity_cylinders, capacity_kg, is_active, created_at, updated_at
               FROM trucks WHERE id = ?`
    var t model.Truck
    var capacityKg sql.NullFloat64
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&t.ID, &t.Code, &t.PlateNumber, &t.CapacityCylinders, &capacityKg, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTruckNotFound
    }
    if err != nil {
        return nil, err
    }
    if capacityKg.Valid {
        v := capacityKg.Float64
        t.CapacityKg = &v
    }
    return &t, nil
}

// DriverRepo provides read access to drivers.
type DriverRepo struct {
    db *sql.DB
}

// NewDriverRepo returns a DriverRepo bound to the given database.
func NewDriverRepo(db *sql.DB) *DriverRepo { return &DriverRepo{db: db} }

// GetByID returns a driver or ErrDriverNotFound.
func (r *DriverRepo) GetByID(ctx context.Context, id uint64) (*model.Driver, error) {
    const q = `SELECT id, full_name, phone, is_active, created_at, updated_at
               FROM drivers WHERE id = ?`
    var d model.Driver
    var phone sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&d.ID, &d.FullName, &phone, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrDriverNotFound
    }
    if err != nil {
        return nil, err
    }
    if phone.Valid {
        p := phone.String
        d.Phone = &p
    }
    return &d, nil
}
