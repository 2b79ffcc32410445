package model

import "time"

// Product variants.  Full-cylinder sale and full-cylinder exchange lines
// consume full stock on the truck; empty variants track the depleted
// cylinders coming back.
const (
    VariantFullSale     = "FULL_SALE"
    VariantFullExchange = "FULL_XCH"
    VariantEmpty        = "EMPTY"
)

// Product represents a gas cylinder SKU.  CapacityKg is the gas content
// of a full cylinder and TareWeightKg the weight of the empty shell;
// either may be unknown, in which case weight calculations fall back to
// fixed per-cylinder defaults and mark the result as an estimate.
//
// Fields:
//  ID             – primary key identifier.
//  SKU            – unique stock keeping unit.
//  Name           – display name.
//  Variant        – FULL_SALE, FULL_XCH or EMPTY.
//  CapacityKg     – gas content in kg (nullable).
//  TareWeightKg   – empty shell weight in kg (nullable).
//  UnitCostCents  – unit cost used for variance financial impact (nullable).
//  IsActive       – whether the product is sellable.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Product struct {
    ID            uint64    // products.id
    SKU           string    // products.sku
    Name          string    // products.name
    Variant       string    // products.variant
    CapacityKg    *float64  // products.capacity_kg (nullable)
    TareWeightKg  *float64  // products.tare_weight_kg (nullable)
    UnitCostCents *int64    // products.unit_cost_cents (nullable)
    IsActive      bool      // products.is_active
    CreatedAt     time.Time // products.created_at
    UpdatedAt     time.Time // products.updated_at
}

// IsFullVariant reports whether the product consumes full-cylinder stock
// when sold or exchanged.
func (p *Product) IsFullVariant() bool {
    return p.Variant == VariantFullSale || p.Variant == VariantFullExchange
}
