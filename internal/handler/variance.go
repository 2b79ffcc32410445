package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
    "github.com/iliyamo/lpg-trip-dispatch/internal/queue"
    queue_publisher "github.com/iliyamo/lpg-trip-dispatch/internal/queue_publisher"
    "github.com/iliyamo/lpg-trip-dispatch/internal/repository"
    "github.com/iliyamo/lpg-trip-dispatch/internal/service"
)

// VarianceHandler records cylinder count discrepancies at unload and
// walks them through their resolution lifecycle.  Variances never block
// the trip lifecycle; they are an accounting trail.
type VarianceHandler struct {
    TripRepo     *repository.TripRepo
    ProductRepo  *repository.ProductRepo
    LoadingRepo  *repository.LoadingRepo
    VarianceRepo *repository.VarianceRepo
}

// NewVarianceHandler constructs a VarianceHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewVarianceHandler(tripRepo *repository.TripRepo, productRepo *repository.ProductRepo, loadingRepo *repository.LoadingRepo, varianceRepo *repository.VarianceRepo) *VarianceHandler {
    if tripRepo == nil || productRepo == nil || loadingRepo == nil || varianceRepo == nil {
        panic("nil repository passed to NewVarianceHandler")
    }
    return &VarianceHandler{
        TripRepo:     tripRepo,
        ProductRepo:  productRepo,
        LoadingRepo:  loadingRepo,
        VarianceRepo: varianceRepo,
    }
}

// knownReasonCode reports whether the reason code is one of the
// recorded classifications.
func knownReasonCode(code string) bool {
    switch code {
    case model.VarianceReasonUnknown, model.VarianceReasonDamage, model.VarianceReasonTheft,
        model.VarianceReasonMiscount, model.VarianceReasonLeak, model.VarianceReasonCustomerUse:
        return true
    }
    return false
}

// Record handles POST /v1/trips/:id/variances.  The body carries the
// physical counts for one product; expected counts default to the
// trip's loaded quantities for that product when omitted.  The variance
// amounts and the financial impact (unit cost times total cylinder
// variance, when the cost is known) are derived server-side.
func (h *VarianceHandler) Record(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        ProductID     uint64  `json:"product_id"`
        PhysicalFull  int     `json:"physical_qty_full"`
        PhysicalEmpty int     `json:"physical_qty_empty"`
        ExpectedFull  *int    `json:"expected_qty_full"`
        ExpectedEmpty *int    `json:"expected_qty_empty"`
        ReasonCode    string  `json:"reason_code"`
        Notes         *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
    }
    if body.PhysicalFull < 0 || body.PhysicalEmpty < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "physical quantities must not be negative"})
    }
    if body.ReasonCode == "" {
        body.ReasonCode = model.VarianceReasonUnknown
    }
    if !knownReasonCode(body.ReasonCode) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown reason code"})
    }

    ctx := c.Request().Context()
    trip, err := h.TripRepo.GetByID(ctx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if trip.Status != model.TripStatusInTransit && trip.Status != model.TripStatusCompleted {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "variances are recorded at unload, not while the trip is " + trip.Status,
        })
    }
    product, err := h.ProductRepo.GetByID(ctx, body.ProductID)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    expectedFull, expectedEmpty := 0, 0
    if body.ExpectedFull != nil || body.ExpectedEmpty != nil {
        if body.ExpectedFull != nil {
            expectedFull = *body.ExpectedFull
        }
        if body.ExpectedEmpty != nil {
            expectedEmpty = *body.ExpectedEmpty
        }
    } else {
        // Default to what the loading phase says should be on the truck.
        details, err := h.LoadingRepo.ListByTrip(ctx, tripID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load loading details"})
        }
        for i := range details {
            if details[i].ProductID == body.ProductID {
                expectedFull = details[i].LoadedFull
                expectedEmpty = details[i].LoadedEmpty
                break
            }
        }
    }

    varFull, varEmpty, impact := service.ComputeVariance(
        expectedFull, expectedEmpty, body.PhysicalFull, body.PhysicalEmpty, product.UnitCostCents)
    record := &model.VarianceRecord{
        TripID:               tripID,
        ProductID:            body.ProductID,
        ExpectedFull:         expectedFull,
        ExpectedEmpty:        expectedEmpty,
        PhysicalFull:         body.PhysicalFull,
        PhysicalEmpty:        body.PhysicalEmpty,
        VarianceFull:         varFull,
        VarianceEmpty:        varEmpty,
        ReasonCode:           body.ReasonCode,
        FinancialImpactCents: impact,
        Status:               model.VarianceStatusPending,
        RecordedBy:           userID,
        Notes:                body.Notes,
    }
    if err := h.VarianceRepo.Create(ctx, record); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record variance"})
    }

    // Best-effort event; a broker outage never fails the recording.
    _ = queue_publisher.PublishVarianceRecorded(ctx, queue.VarianceRecordedEvent{
        VarianceID:           record.ID,
        TripID:               tripID,
        ProductID:            record.ProductID,
        VarianceFull:         record.VarianceFull,
        VarianceEmpty:        record.VarianceEmpty,
        ReasonCode:           record.ReasonCode,
        FinancialImpactCents: record.FinancialImpactCents,
        RecordedBy:           userID,
        RecordedAt:           record.CreatedAt.Format(time.RFC3339),
    })

    return c.JSON(http.StatusCreated, echo.Map{"variance": varianceView(record)})
}

// Resolve handles PATCH /v1/variances/:id.  Resolution moves
// PENDING -> INVESTIGATING -> {RESOLVED | WRITTEN_OFF | ADJUSTED}, with
// the investigating step optional.
func (h *VarianceHandler) Resolve(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    varianceID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid variance id"})
    }
    var body struct {
        Status     string  `json:"status"`
        ReasonCode *string `json:"reason_code"`
        Notes      *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ReasonCode != nil && !knownReasonCode(*body.ReasonCode) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown reason code"})
    }

    ctx := c.Request().Context()
    record, err := h.VarianceRepo.GetByID(ctx, varianceID)
    if err != nil {
        if errors.Is(err, repository.ErrVarianceNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "variance record not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !service.CanTransitionVariance(record.Status, body.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "illegal resolution transition " + record.Status + " -> " + body.Status,
        })
    }
    if err := h.VarianceRepo.UpdateResolution(ctx, varianceID, body.Status, body.ReasonCode, body.Notes); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update variance"})
    }
    updated, err := h.VarianceRepo.GetByID(ctx, varianceID)
    if err != nil {
        return c.JSON(http.StatusOK, echo.Map{"variance_id": varianceID, "status": body.Status})
    }
    return c.JSON(http.StatusOK, echo.Map{"variance": varianceView(updated)})
}

// List handles GET /v1/trips/:id/variances, returning the trip's
// variance records with aggregate totals.
func (h *VarianceHandler) List(c echo.Context) error {
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    ctx := c.Request().Context()
    if _, err := h.TripRepo.GetByID(ctx, tripID); err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    records, err := h.VarianceRepo.ListByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load variances"})
    }
    totalFull, totalEmpty := 0, 0
    var totalImpact int64
    unresolved := 0
    for i := range records {
        totalFull += records[i].VarianceFull
        totalEmpty += records[i].VarianceEmpty
        if records[i].FinancialImpactCents != nil {
            totalImpact += *records[i].FinancialImpactCents
        }
        if records[i].Status == model.VarianceStatusPending || records[i].Status == model.VarianceStatusInvestigating {
            unresolved++
        }
    }
    items := make([]echo.Map, 0, len(records))
    for i := range records {
        items = append(items, varianceView(&records[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":                      tripID,
        "items":                        items,
        "total_variance_full":          totalFull,
        "total_variance_empty":         totalEmpty,
        "total_financial_impact_cents": totalImpact,
        "unresolved":                   unresolved,
    })
}

// varianceView shapes a variance record for JSON responses.
func varianceView(v *model.VarianceRecord) echo.Map {
    return echo.Map{
        "id":                     v.ID,
        "trip_id":                v.TripID,
        "product_id":             v.ProductID,
        "expected_qty_full":      v.ExpectedFull,
        "expected_qty_empty":     v.ExpectedEmpty,
        "physical_qty_full":      v.PhysicalFull,
        "physical_qty_empty":     v.PhysicalEmpty,
        "variance_qty_full":      v.VarianceFull,
        "variance_qty_empty":     v.VarianceEmpty,
        "reason_code":            v.ReasonCode,
        "financial_impact_cents": v.FinancialImpactCents,
        "status":                 v.Status,
        "recorded_by":            v.RecordedBy,
        "notes":                  v.Notes,
        "created_at":             v.CreatedAt.Format(time.RFC3339),
        "updated_at":             v.UpdatedAt.Format(time.RFC3339),
    }
}
