package service

import (
    "fmt"
    "math"
    "sort"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// Minimum overall loading percentage required to complete loading
// without forcing.
const minLoadingPercent = 50

// RequiredLine is the per-product required quantity derived from the
// order lines of a trip's allocated orders.
type RequiredLine struct {
    ProductID     uint64
    RequiredFull  int
    RequiredEmpty int
}

// BuildRequiredLines groups order lines by product and sums the full and
// empty quantities separately.  Lines on full-cylinder products
// (sale-out and exchange-out) contribute to the required-full count;
// lines on empty-variant products contribute to the required-empty
// count.  Lines whose product is unknown are skipped.  The result is
// ordered by product ID for deterministic seeding.
func BuildRequiredLines(lines []model.OrderLine, products map[uint64]*model.Product) []RequiredLine {
    byProduct := make(map[uint64]*RequiredLine)
    for _, line := range lines {
        p, ok := products[line.ProductID]
        if !ok {
            continue
        }
        req, ok := byProduct[line.ProductID]
        if !ok {
            req = &RequiredLine{ProductID: line.ProductID}
            byProduct[line.ProductID] = req
        }
        if p.IsFullVariant() {
            req.RequiredFull += line.QtyFull
        } else {
            req.RequiredEmpty += line.QtyEmpty
        }
    }

    out := make([]RequiredLine, 0, len(byProduct))
    for _, req := range byProduct {
        if req.RequiredFull == 0 && req.RequiredEmpty == 0 {
            continue
        }
        out = append(out, *req)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
    return out
}

// LoadingLineStatus derives a loading detail's status from its required
// and loaded quantities, comparing total cylinder counts.
func LoadingLineStatus(requiredFull, requiredEmpty, loadedFull, loadedEmpty int) string {
    required := requiredFull + requiredEmpty
    loaded := loadedFull + loadedEmpty
    switch {
    case loaded == 0:
        return model.LoadingStatusPending
    case loaded < required:
        return model.LoadingStatusShort
    case loaded > required:
        return model.LoadingStatusOverLoaded
    default:
        return model.LoadingStatusLoaded
    }
}

// ApplyLoadingRecord folds one recorded load into a trip's loading
// line and re-derives its status.  A nil detail means the product was
// outside the seeded plan; a fresh line with zero required quantities
// is started.  A non-nil sequence sets or corrects the line's loading
// sequence, nil leaves it untouched.
func ApplyLoadingRecord(detail *model.LoadingDetail, tripID, productID uint64, qtyFull, qtyEmpty int, sequence *uint32) *model.LoadingDetail {
    if detail == nil {
        detail = &model.LoadingDetail{TripID: tripID, ProductID: productID}
    }
    detail.LoadedFull += qtyFull
    detail.LoadedEmpty += qtyEmpty
    if sequence != nil {
        detail.Sequence = sequence
    }
    detail.Status = LoadingLineStatus(detail.RequiredFull, detail.RequiredEmpty, detail.LoadedFull, detail.LoadedEmpty)
    return detail
}

// LoadingSummary aggregates a trip's loading details.
type LoadingSummary struct {
    TotalProducts        int  `json:"total_products"`
    ProductsLoaded       int  `json:"products_loaded"`
    ProductsPending      int  `json:"products_pending"`
    ProductsShortLoaded  int  `json:"products_short_loaded"`
    RequiredCylinders    int  `json:"required_cylinders"`
    LoadedCylinders      int  `json:"loaded_cylinders"`
    LoadingPercentage    int  `json:"loading_percentage"`
    ProductsWithVariance int  `json:"products_with_variance"`
    HasShortLoading      bool `json:"has_short_loading"`
}

// Summarize computes the loading summary for a set of loading details.
// The loading percentage is loaded/required cylinders rounded to the
// nearest whole percent, or 0 when nothing is required.
func Summarize(details []model.LoadingDetail) LoadingSummary {
    var s LoadingSummary
    s.TotalProducts = len(details)
    for i := range details {
        d := &details[i]
        s.RequiredCylinders += d.RequiredFull + d.RequiredEmpty
        s.LoadedCylinders += d.LoadedFull + d.LoadedEmpty
        switch d.Status {
        case model.LoadingStatusPending:
            s.ProductsPending++
        case model.LoadingStatusShort:
            s.ProductsShortLoaded++
            s.HasShortLoading = true
        case model.LoadingStatusLoaded, model.LoadingStatusOverLoaded:
            s.ProductsLoaded++
        }
        if d.LoadedFull != d.RequiredFull || d.LoadedEmpty != d.RequiredEmpty {
            s.ProductsWithVariance++
        }
    }
    if s.RequiredCylinders > 0 {
        s.LoadingPercentage = int(math.Round(float64(s.LoadedCylinders) / float64(s.RequiredCylinders) * 100))
    }
    return s
}

// ValidateLoadingCompletion returns the violations that block completing
// a trip's loading: products still pending, overall percentage below the
// minimum, or the loaded cylinder count exceeding the truck's capacity.
// Callers forcing completion downgrade these to warnings.
func ValidateLoadingCompletion(s LoadingSummary, truckCapacityCylinders int) []string {
    var violations []string
    if s.ProductsPending > 0 {
        violations = append(violations,
            fmt.Sprintf("%d product(s) still pending loading", s.ProductsPending))
    }
    if s.LoadingPercentage < minLoadingPercent {
        violations = append(violations,
            fmt.Sprintf("loading at %d%%, below the %d%% minimum", s.LoadingPercentage, minLoadingPercent))
    }
    if truckCapacityCylinders > 0 && s.LoadedCylinders > truckCapacityCylinders {
        violations = append(violations,
            fmt.Sprintf("loaded cylinders %d exceed truck capacity %d", s.LoadedCylinders, truckCapacityCylinders))
    }
    return violations
}
