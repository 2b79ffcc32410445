// Package service contains the pure calculation and state-machine logic
// behind the trip dispatch endpoints: capacity validation, loading
// reconciliation math and lifecycle transition rules.  Nothing in this
// package touches the database; handlers feed it rows loaded by the
// repository layer.
package service

import (
    "fmt"
    "math"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// Fallback per-cylinder weights used when a product's capacity or tare
// weight is unknown.  Results computed with these are flagged as
// estimates rather than exact figures.
const (
    DefaultFullCylinderKg  = 27.0
    DefaultEmptyCylinderKg = 14.0
)

// Warning thresholds as a fraction of rated capacity.
const (
    cylinderWarnRatio = 0.95
    weightWarnRatio   = 0.90
)

// LoadingPlanLine is one proposed additional loading quantity for a
// product, on top of whatever the truck already carries.
type LoadingPlanLine struct {
    ProductID uint64 `json:"product_id"`
    QtyFull   int    `json:"qty_full"`
    QtyEmpty  int    `json:"qty_empty"`
}

// CapacityResult reports the outcome of validating a truck load.
// Errors make the load invalid; warnings are advisory (near-capacity,
// stock shortfalls) and never flip IsValid on their own.
type CapacityResult struct {
    IsValid              bool     `json:"is_valid"`
    Errors               []string `json:"errors"`
    Warnings             []string `json:"warnings"`
    TotalCylinders       int      `json:"total_cylinders"`
    CylinderCapacity     int      `json:"cylinder_capacity"`
    CylinderUtilization  float64  `json:"cylinder_utilization_pct"`
    TotalWeightKg        float64  `json:"total_weight_kg"`
    WeightCapacityKg     float64  `json:"weight_capacity_kg"`
    WeightUtilization    float64  `json:"weight_utilization_pct"`
    WeightIsEstimate     bool     `json:"weight_is_estimate"`
}

// LineWeightKg computes the weight of qtyFull full and qtyEmpty empty
// cylinders of the given product.  A full cylinder weighs capacity plus
// tare; an empty one weighs only the tare.  When either weight field is
// missing the fixed defaults are used and estimate is true.
func LineWeightKg(p *model.Product, qtyFull, qtyEmpty int) (weight float64, estimate bool) {
    if p != nil && p.CapacityKg != nil && p.TareWeightKg != nil {
        full := *p.CapacityKg + *p.TareWeightKg
        return float64(qtyFull)*full + float64(qtyEmpty)*(*p.TareWeightKg), false
    }
    return float64(qtyFull)*DefaultFullCylinderKg + float64(qtyEmpty)*DefaultEmptyCylinderKg, true
}

// ValidateCapacity checks a truck's current inventory plus a proposed
// loading plan against the truck's cylinder and weight capacities.
// Warehouse stock sufficiency is checked independently per plan line and
// reported as warnings only.  The products map is keyed by product ID;
// warehouseStock may be nil when no warehouse context applies.
func ValidateCapacity(
    truck *model.Truck,
    current []model.TruckInventory,
    plan []LoadingPlanLine,
    products map[uint64]*model.Product,
    warehouseStock map[uint64]*model.WarehouseInventory,
) CapacityResult {
    res := CapacityResult{
        IsValid:          true,
        Errors:           []string{},
        Warnings:         []string{},
        CylinderCapacity: truck.CapacityCylinders,
    }

    totalCyl := 0
    totalWeight := 0.0
    estimate := false

    for i := range current {
        inv := &current[i]
        totalCyl += inv.QtyFull + inv.QtyEmpty
        w, est := LineWeightKg(products[inv.ProductID], inv.QtyFull, inv.QtyEmpty)
        totalWeight += w
        estimate = estimate || est
    }
    for _, line := range plan {
        totalCyl += line.QtyFull + line.QtyEmpty
        w, est := LineWeightKg(products[line.ProductID], line.QtyFull, line.QtyEmpty)
        totalWeight += w
        estimate = estimate || est
    }

    res.TotalCylinders = totalCyl
    res.TotalWeightKg = totalWeight
    res.WeightIsEstimate = estimate

    // Cylinder count ceiling.
    if truck.CapacityCylinders > 0 {
        res.CylinderUtilization = round1(float64(totalCyl) / float64(truck.CapacityCylinders) * 100)
        if totalCyl > truck.CapacityCylinders {
            res.IsValid = false
            res.Errors = append(res.Errors, fmt.Sprintf(
                "total cylinders %d exceed truck capacity %d", totalCyl, truck.CapacityCylinders))
        } else if float64(totalCyl) >= cylinderWarnRatio*float64(truck.CapacityCylinders) {
            res.Warnings = append(res.Warnings, fmt.Sprintf(
                "cylinder load at %.1f%% of capacity", res.CylinderUtilization))
        }
    }

    // Weight ceiling.  Fall back to a derived figure when the truck has
    // no rated weight capacity.
    weightCap := 0.0
    if truck.CapacityKg != nil && *truck.CapacityKg > 0 {
        weightCap = *truck.CapacityKg
    } else if truck.CapacityCylinders > 0 {
        weightCap = float64(truck.CapacityCylinders) * DefaultFullCylinderKg
    }
    res.WeightCapacityKg = weightCap
    if weightCap > 0 {
        res.WeightUtilization = round1(totalWeight / weightCap * 100)
        if totalWeight > weightCap {
            res.IsValid = false
            res.Errors = append(res.Errors, fmt.Sprintf(
                "total weight %.1f kg exceeds truck capacity %.1f kg", totalWeight, weightCap))
        } else if totalWeight >= weightWarnRatio*weightCap {
            res.Warnings = append(res.Warnings, fmt.Sprintf(
                "weight load at %.1f%% of capacity", res.WeightUtilization))
        }
    }

    // Per-line warehouse stock sufficiency, warnings only.
    if warehouseStock != nil {
        for _, line := range plan {
            stock, ok := warehouseStock[line.ProductID]
            if !ok {
                res.Warnings = append(res.Warnings, fmt.Sprintf(
                    "product %d has no warehouse inventory row", line.ProductID))
                continue
            }
            if line.QtyFull > stock.QtyFull {
                res.Warnings = append(res.Warnings, fmt.Sprintf(
                    "product %d: insufficient full stock (have %d, plan %d)",
                    line.ProductID, stock.QtyFull, line.QtyFull))
            }
            if line.QtyEmpty > stock.QtyEmpty {
                res.Warnings = append(res.Warnings, fmt.Sprintf(
                    "product %d: insufficient empty stock (have %d, plan %d)",
                    line.ProductID, stock.QtyEmpty, line.QtyEmpty))
            }
        }
    }

    return res
}

// round1 rounds to one decimal place for utilization percentages.
func round1(v float64) float64 {
    return math.Round(v*10) / 10
}
