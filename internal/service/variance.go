package service

import "github.com/iliyamo/lpg-trip-dispatch/internal/model"

// varianceTransitions lists the legal resolution moves for a variance
// record.  PENDING may go straight to any terminal state when the cause
// is obvious, or through INVESTIGATING first.
var varianceTransitions = map[string][]string{
    model.VarianceStatusPending: {
        model.VarianceStatusInvestigating,
        model.VarianceStatusResolved,
        model.VarianceStatusWrittenOff,
        model.VarianceStatusAdjusted,
    },
    model.VarianceStatusInvestigating: {
        model.VarianceStatusResolved,
        model.VarianceStatusWrittenOff,
        model.VarianceStatusAdjusted,
    },
}

// CanTransitionVariance reports whether a variance record may move from
// one resolution status to another.
func CanTransitionVariance(from, to string) bool {
    for _, next := range varianceTransitions[from] {
        if next == to {
            return true
        }
    }
    return false
}

// ComputeVariance derives the variance amounts (physical minus expected,
// separately for full and empty cylinders) and the financial impact.
// The impact is the total cylinder variance multiplied by the product's
// unit cost; it is nil when the cost is unknown.
func ComputeVariance(expectedFull, expectedEmpty, physicalFull, physicalEmpty int, unitCostCents *int64) (varFull, varEmpty int, impactCents *int64) {
    varFull = physicalFull - expectedFull
    varEmpty = physicalEmpty - expectedEmpty
    if unitCostCents != nil {
        impact := int64(varFull+varEmpty) * *unitCostCents
        impactCents = &impact
    }
    return varFull, varEmpty, impactCents
}
