package service

import (
    "testing"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

func TestBuildRequiredLines(t *testing.T) {
    products := map[uint64]*model.Product{
        1: {ID: 1, Variant: model.VariantFullSale},
        2: {ID: 2, Variant: model.VariantFullExchange},
        3: {ID: 3, Variant: model.VariantEmpty},
    }
    lines := []model.OrderLine{
        {OrderID: 10, ProductID: 2, QtyFull: 4, QtyEmpty: 4},
        {OrderID: 10, ProductID: 1, QtyFull: 3},
        {OrderID: 11, ProductID: 1, QtyFull: 2},
        {OrderID: 11, ProductID: 3, QtyEmpty: 6},
        {OrderID: 12, ProductID: 99, QtyFull: 5}, // unknown product, skipped
        {OrderID: 12, ProductID: 3, QtyFull: 1},  // empty variant, full qty ignored
    }

    got := BuildRequiredLines(lines, products)
    want := []RequiredLine{
        {ProductID: 1, RequiredFull: 5},
        {ProductID: 2, RequiredFull: 4},
        {ProductID: 3, RequiredEmpty: 6},
    }
    if len(got) != len(want) {
        t.Fatalf("got %d lines %+v, want %d", len(got), got, len(want))
    }
    for i := range want {
        if got[i] != want[i] {
            t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
        }
    }
}

func TestBuildRequiredLinesDropsZeroLines(t *testing.T) {
    products := map[uint64]*model.Product{3: {ID: 3, Variant: model.VariantEmpty}}
    got := BuildRequiredLines([]model.OrderLine{{OrderID: 1, ProductID: 3, QtyFull: 2}}, products)
    if len(got) != 0 {
        t.Errorf("expected no lines, got %+v", got)
    }
}

func TestLoadingLineStatus(t *testing.T) {
    tests := []struct {
        name                    string
        reqFull, reqEmpty       int
        loadedFull, loadedEmpty int
        want                    string
    }{
        {"nothing loaded", 5, 2, 0, 0, model.LoadingStatusPending},
        {"partial", 5, 2, 4, 0, model.LoadingStatusShort},
        {"exact", 5, 2, 5, 2, model.LoadingStatusLoaded},
        {"over", 5, 2, 6, 2, model.LoadingStatusOverLoaded},
        {"totals match across kinds", 5, 2, 4, 3, model.LoadingStatusLoaded},
        {"unplanned line", 0, 0, 3, 0, model.LoadingStatusOverLoaded},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            got := LoadingLineStatus(tc.reqFull, tc.reqEmpty, tc.loadedFull, tc.loadedEmpty)
            if got != tc.want {
                t.Errorf("got %s, want %s", got, tc.want)
            }
        })
    }
}

func TestSummarize(t *testing.T) {
    details := []model.LoadingDetail{
        {RequiredFull: 10, LoadedFull: 10, Status: model.LoadingStatusLoaded},
        {RequiredFull: 6, LoadedFull: 4, Status: model.LoadingStatusShort},
        {RequiredEmpty: 4, Status: model.LoadingStatusPending},
    }
    s := Summarize(details)

    if s.TotalProducts != 3 {
        t.Errorf("TotalProducts = %d, want 3", s.TotalProducts)
    }
    if s.ProductsLoaded != 1 || s.ProductsShortLoaded != 1 || s.ProductsPending != 1 {
        t.Errorf("loaded/short/pending = %d/%d/%d, want 1/1/1",
            s.ProductsLoaded, s.ProductsShortLoaded, s.ProductsPending)
    }
    if s.RequiredCylinders != 20 || s.LoadedCylinders != 14 {
        t.Errorf("cylinders = %d/%d, want 14/20", s.LoadedCylinders, s.RequiredCylinders)
    }
    // 14/20 = 70%
    if s.LoadingPercentage != 70 {
        t.Errorf("LoadingPercentage = %d, want 70", s.LoadingPercentage)
    }
    if !s.HasShortLoading {
        t.Errorf("HasShortLoading = false, want true")
    }
    if s.ProductsWithVariance != 2 {
        t.Errorf("ProductsWithVariance = %d, want 2", s.ProductsWithVariance)
    }
}

func TestSummarizeRounding(t *testing.T) {
    // 2 of 3 cylinders rounds to 67, not 66
    s := Summarize([]model.LoadingDetail{
        {RequiredFull: 3, LoadedFull: 2, Status: model.LoadingStatusShort},
    })
    if s.LoadingPercentage != 67 {
        t.Errorf("LoadingPercentage = %d, want 67", s.LoadingPercentage)
    }
}

func TestSummarizeNothingRequired(t *testing.T) {
    s := Summarize(nil)
    if s.LoadingPercentage != 0 {
        t.Errorf("LoadingPercentage = %d, want 0 with no details", s.LoadingPercentage)
    }
}

func TestValidateLoadingCompletion(t *testing.T) {
    tests := []struct {
        name     string
        summary  LoadingSummary
        capacity int
        want     int
    }{
        {
            name:     "fully loaded",
            summary:  LoadingSummary{TotalProducts: 2, ProductsLoaded: 2, RequiredCylinders: 20, LoadedCylinders: 20, LoadingPercentage: 100},
            capacity: 50,
            want:     0,
        },
        {
            name:     "short but above minimum",
            summary:  LoadingSummary{TotalProducts: 2, ProductsLoaded: 1, ProductsShortLoaded: 1, RequiredCylinders: 20, LoadedCylinders: 14, LoadingPercentage: 70, HasShortLoading: true},
            capacity: 50,
            want:     0,
        },
        {
            name:     "pending product blocks",
            summary:  LoadingSummary{TotalProducts: 2, ProductsLoaded: 1, ProductsPending: 1, RequiredCylinders: 20, LoadedCylinders: 12, LoadingPercentage: 60},
            capacity: 50,
            want:     1,
        },
        {
            name:     "below minimum percentage",
            summary:  LoadingSummary{TotalProducts: 1, ProductsShortLoaded: 1, RequiredCylinders: 20, LoadedCylinders: 8, LoadingPercentage: 40},
            capacity: 50,
            want:     1,
        },
        {
            name:     "over truck capacity",
            summary:  LoadingSummary{TotalProducts: 1, ProductsLoaded: 1, RequiredCylinders: 60, LoadedCylinders: 60, LoadingPercentage: 100},
            capacity: 50,
            want:     1,
        },
        {
            name:     "pending and below minimum stack",
            summary:  LoadingSummary{TotalProducts: 2, ProductsPending: 2, RequiredCylinders: 20, LoadingPercentage: 0},
            capacity: 50,
            want:     2,
        },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            got := ValidateLoadingCompletion(tc.summary, tc.capacity)
            if len(got) != tc.want {
                t.Errorf("violations = %v, want %d", got, tc.want)
            }
        })
    }
}

func seq(v uint32) *uint32 { return &v }

func TestApplyLoadingRecord(t *testing.T) {
    t.Run("unplanned product starts a fresh line", func(t *testing.T) {
        got := ApplyLoadingRecord(nil, 7, 3, 4, 0, seq(2))
        if got.TripID != 7 || got.ProductID != 3 {
            t.Errorf("line keyed to trip %d product %d, want 7/3", got.TripID, got.ProductID)
        }
        if got.LoadedFull != 4 || got.LoadedEmpty != 0 {
            t.Errorf("loaded = %d/%d, want 4/0", got.LoadedFull, got.LoadedEmpty)
        }
        if got.Sequence == nil || *got.Sequence != 2 {
            t.Errorf("sequence = %v, want 2", got.Sequence)
        }
        if got.Status != model.LoadingStatusOverLoaded {
            t.Errorf("status = %q, want %q", got.Status, model.LoadingStatusOverLoaded)
        }
    })

    t.Run("accumulates onto a seeded line", func(t *testing.T) {
        detail := &model.LoadingDetail{
            TripID: 7, ProductID: 1,
            RequiredFull: 10, LoadedFull: 4,
            Sequence: seq(1),
            Status:   model.LoadingStatusShort,
        }
        got := ApplyLoadingRecord(detail, 7, 1, 6, 0, nil)
        if got.LoadedFull != 10 {
            t.Errorf("loaded full = %d, want 10", got.LoadedFull)
        }
        if got.Sequence == nil || *got.Sequence != 1 {
            t.Errorf("nil sequence overwrote existing, got %v", got.Sequence)
        }
        if got.Status != model.LoadingStatusLoaded {
            t.Errorf("status = %q, want %q", got.Status, model.LoadingStatusLoaded)
        }
    })

    t.Run("corrects the loading sequence", func(t *testing.T) {
        detail := &model.LoadingDetail{
            TripID: 7, ProductID: 1,
            RequiredFull: 10, LoadedFull: 5,
            Sequence: seq(3),
            Status:   model.LoadingStatusShort,
        }
        got := ApplyLoadingRecord(detail, 7, 1, 2, 0, seq(1))
        if got.Sequence == nil || *got.Sequence != 1 {
            t.Errorf("sequence = %v, want 1", got.Sequence)
        }
        if got.LoadedFull != 7 || got.Status != model.LoadingStatusShort {
            t.Errorf("loaded full = %d status = %q, want 7 %q", got.LoadedFull, got.Status, model.LoadingStatusShort)
        }
    })
}
