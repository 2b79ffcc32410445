package service

import (
    "testing"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestLineWeightKg(t *testing.T) {
    exact := &model.Product{CapacityKg: f64(12), TareWeightKg: f64(14)}

    w, est := LineWeightKg(exact, 2, 1)
    if est {
        t.Errorf("expected exact weight, got estimate")
    }
    // full cylinder = 12 + 14 = 26 kg, empty = 14 kg
    if want := 2*26.0 + 14.0; w != want {
        t.Errorf("weight = %v, want %v", w, want)
    }

    // unknown product falls back to the fixed defaults
    w, est = LineWeightKg(nil, 10, 5)
    if !est {
        t.Errorf("expected estimate for unknown product")
    }
    if want := 10*DefaultFullCylinderKg + 5*DefaultEmptyCylinderKg; w != want {
        t.Errorf("fallback weight = %v, want %v", w, want)
    }

    // missing tare alone also forces the fallback
    partial := &model.Product{CapacityKg: f64(12)}
    if _, est := LineWeightKg(partial, 1, 0); !est {
        t.Errorf("expected estimate when tare weight is unknown")
    }
}

func TestValidateCapacityCylinderLimit(t *testing.T) {
    truck := &model.Truck{ID: 1, CapacityCylinders: 100, CapacityKg: f64(5000)}
    products := map[uint64]*model.Product{
        7: {ID: 7, CapacityKg: f64(12), TareWeightKg: f64(14)},
    }

    tests := []struct {
        name      string
        current   []model.TruckInventory
        plan      []LoadingPlanLine
        wantValid bool
        wantErrs  int
        wantWarns int
    }{
        {
            name:      "over capacity",
            current:   []model.TruckInventory{{ProductID: 7, QtyFull: 40, QtyEmpty: 11}},
            plan:      []LoadingPlanLine{{ProductID: 7, QtyFull: 50}},
            wantValid: false,
            wantErrs:  1,
        },
        {
            name:      "near capacity warns",
            current:   []model.TruckInventory{{ProductID: 7, QtyFull: 46}},
            plan:      []LoadingPlanLine{{ProductID: 7, QtyFull: 50}},
            wantValid: true,
            wantWarns: 1,
        },
        {
            name:      "half load is clean",
            plan:      []LoadingPlanLine{{ProductID: 7, QtyFull: 50}},
            wantValid: true,
        },
    }

    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            res := ValidateCapacity(truck, tc.current, tc.plan, products, nil)
            if res.IsValid != tc.wantValid {
                t.Errorf("IsValid = %v, want %v (errors %v)", res.IsValid, tc.wantValid, res.Errors)
            }
            if len(res.Errors) != tc.wantErrs {
                t.Errorf("errors = %v, want %d", res.Errors, tc.wantErrs)
            }
            if len(res.Warnings) != tc.wantWarns {
                t.Errorf("warnings = %v, want %d", res.Warnings, tc.wantWarns)
            }
        })
    }
}

func TestValidateCapacityWeightLimit(t *testing.T) {
    // 30 full cylinders at 26 kg = 780 kg against a 700 kg rating.
    truck := &model.Truck{ID: 1, CapacityCylinders: 100, CapacityKg: f64(700)}
    products := map[uint64]*model.Product{
        7: {ID: 7, CapacityKg: f64(12), TareWeightKg: f64(14)},
    }
    plan := []LoadingPlanLine{{ProductID: 7, QtyFull: 30}}

    res := ValidateCapacity(truck, nil, plan, products, nil)
    if res.IsValid {
        t.Fatalf("expected weight violation, got valid result: %+v", res)
    }
    if res.TotalWeightKg != 780 {
        t.Errorf("TotalWeightKg = %v, want 780", res.TotalWeightKg)
    }
    if res.WeightIsEstimate {
        t.Errorf("weight should be exact with known product weights")
    }
}

func TestValidateCapacityDerivedWeightCap(t *testing.T) {
    // No rated weight: the cap derives from cylinders at the default
    // full-cylinder weight.
    truck := &model.Truck{ID: 1, CapacityCylinders: 10}
    res := ValidateCapacity(truck, nil, nil, nil, nil)
    if want := 10 * DefaultFullCylinderKg; res.WeightCapacityKg != want {
        t.Errorf("WeightCapacityKg = %v, want %v", res.WeightCapacityKg, want)
    }
    if !res.IsValid {
        t.Errorf("empty load should be valid")
    }
}

func TestValidateCapacityWarehouseShortfall(t *testing.T) {
    truck := &model.Truck{ID: 1, CapacityCylinders: 100, CapacityKg: f64(5000)}
    products := map[uint64]*model.Product{
        7: {ID: 7, CapacityKg: f64(12), TareWeightKg: f64(14)},
        8: {ID: 8, CapacityKg: f64(12), TareWeightKg: f64(14)},
    }
    stock := map[uint64]*model.WarehouseInventory{
        7: {ProductID: 7, QtyFull: 5, QtyEmpty: 0},
    }
    plan := []LoadingPlanLine{
        {ProductID: 7, QtyFull: 10},
        {ProductID: 8, QtyFull: 3},
    }

    res := ValidateCapacity(truck, nil, plan, products, stock)
    if !res.IsValid {
        t.Fatalf("stock shortfalls must not invalidate the load: %+v", res)
    }
    // one for the short full stock, one for the missing inventory row
    if len(res.Warnings) != 2 {
        t.Errorf("warnings = %v, want 2 entries", res.Warnings)
    }
}
