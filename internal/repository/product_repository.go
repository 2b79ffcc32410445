package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// ProductRepo provides read access to the product catalog.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, sku, name, variant, capacity_kg, tare_weight_kg, unit_cost_cents, is_active, created_at, updated_at`

func scanProduct(row rowScanner) (*model.Product, error) {
    var p model.Product
    var capacityKg, tareWeightKg sql.NullFloat64
    var unitCost sql.NullInt64
    err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Variant, &capacityKg, &tareWeightKg, &unitCost, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if capacityKg.Valid {
        v := capacityKg.Float64
        p.CapacityKg = &v
    }
    if tareWeightKg.Valid {
        v := tareWeightKg.Float64
        p.TareWeightKg = &v
    }
    if unitCost.Valid {
        v := unitCost.Int64
        p.UnitCostCents = &v
    }
    return &p, nil
}

// GetByID returns a product or ErrProductNotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
    const q = `SELECT ` + productColumns + ` FROM products WHERE id = ?`
    p, err := scanProduct(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrProductNotFound
    }
    return p, err
}

// GetBySKU returns a product by its SKU, or nil when no such SKU
// exists.  Used to resolve a full product's empty counterpart; an
// unresolvable SKU is not an error there.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*model.Product, error) {
    const q = `SELECT ` + productColumns + ` FROM products WHERE sku = ?`
    p, err := scanProduct(r.db.QueryRowContext(ctx, q, sku))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return p, err
}

// GetByIDs returns the named products keyed by id.  Missing ids are
// simply absent from the map; the caller decides whether that matters.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.Product, error) {
    products := make(map[uint64]*model.Product)
    if len(ids) == 0 {
        return products, nil
    }
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + strings.Join(placeholders, ",") + `)`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        p, err := scanProduct(rows)
        if err != nil {
            return nil, err
        }
        products[p.ID] = p
    }
    return products, rows.Err()
}
