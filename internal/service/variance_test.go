package service

import (
    "testing"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

func i64(v int64) *int64 { return &v }

func TestComputeVariance(t *testing.T) {
    // two full cylinders missing at 1500 cents each
    varFull, varEmpty, impact := ComputeVariance(10, 5, 8, 5, i64(1500))
    if varFull != -2 || varEmpty != 0 {
        t.Errorf("variance = %d/%d, want -2/0", varFull, varEmpty)
    }
    if impact == nil || *impact != -3000 {
        t.Errorf("impact = %v, want -3000", impact)
    }

    // surplus counts positive and empties contribute too
    varFull, varEmpty, impact = ComputeVariance(4, 4, 5, 6, i64(1000))
    if varFull != 1 || varEmpty != 2 {
        t.Errorf("variance = %d/%d, want 1/2", varFull, varEmpty)
    }
    if impact == nil || *impact != 3000 {
        t.Errorf("impact = %v, want 3000", impact)
    }

    // unknown unit cost leaves the impact unset
    _, _, impact = ComputeVariance(10, 0, 7, 0, nil)
    if impact != nil {
        t.Errorf("impact = %v, want nil without unit cost", *impact)
    }
}

func TestCanTransitionVariance(t *testing.T) {
    tests := []struct {
        from, to string
        want     bool
    }{
        {model.VarianceStatusPending, model.VarianceStatusInvestigating, true},
        {model.VarianceStatusPending, model.VarianceStatusResolved, true},
        {model.VarianceStatusPending, model.VarianceStatusWrittenOff, true},
        {model.VarianceStatusPending, model.VarianceStatusAdjusted, true},
        {model.VarianceStatusInvestigating, model.VarianceStatusResolved, true},
        {model.VarianceStatusInvestigating, model.VarianceStatusWrittenOff, true},
        {model.VarianceStatusInvestigating, model.VarianceStatusAdjusted, true},

        {model.VarianceStatusInvestigating, model.VarianceStatusPending, false},
        {model.VarianceStatusResolved, model.VarianceStatusInvestigating, false},
        {model.VarianceStatusResolved, model.VarianceStatusWrittenOff, false},
        {model.VarianceStatusWrittenOff, model.VarianceStatusResolved, false},
        {model.VarianceStatusAdjusted, model.VarianceStatusPending, false},
        {model.VarianceStatusPending, model.VarianceStatusPending, false},
        {model.VarianceStatusPending, "CLOSED", false},
    }
    for _, tc := range tests {
        if got := CanTransitionVariance(tc.from, tc.to); got != tc.want {
            t.Errorf("CanTransitionVariance(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
        }
    }
}
