package handler

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
    "github.com/iliyamo/lpg-trip-dispatch/internal/queue"
    queue_publisher "github.com/iliyamo/lpg-trip-dispatch/internal/queue_publisher"
    "github.com/iliyamo/lpg-trip-dispatch/internal/repository"
    "github.com/iliyamo/lpg-trip-dispatch/internal/service"
)

// LoadingHandler covers the loading phase of a trip: seeding required
// quantities when loading starts, recording actual loaded quantities
// (which atomically move stock from the warehouse onto the truck),
// summarising progress, validating capacity and completing loading.
type LoadingHandler struct {
    TripRepo     *repository.TripRepo
    TruckRepo    *repository.TruckRepo
    OrderRepo    *repository.OrderRepo
    ProductRepo  *repository.ProductRepo
    LoadingRepo  *repository.LoadingRepo
    AllocRepo    *repository.AllocationRepo
    TruckInv     *repository.TruckInventoryRepo
    WarehouseInv *repository.WarehouseInventoryRepo
}

// NewLoadingHandler constructs a LoadingHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewLoadingHandler(tripRepo *repository.TripRepo, truckRepo *repository.TruckRepo, orderRepo *repository.OrderRepo, productRepo *repository.ProductRepo, loadingRepo *repository.LoadingRepo, allocRepo *repository.AllocationRepo, truckInv *repository.TruckInventoryRepo, warehouseInv *repository.WarehouseInventoryRepo) *LoadingHandler {
    if tripRepo == nil || truckRepo == nil || orderRepo == nil || productRepo == nil ||
        loadingRepo == nil || allocRepo == nil || truckInv == nil || warehouseInv == nil {
        panic("nil repository passed to NewLoadingHandler")
    }
    return &LoadingHandler{
        TripRepo:     tripRepo,
        TruckRepo:    truckRepo,
        OrderRepo:    orderRepo,
        ProductRepo:  productRepo,
        LoadingRepo:  loadingRepo,
        AllocRepo:    allocRepo,
        TruckInv:     truckInv,
        WarehouseInv: warehouseInv,
    }
}

// Start handles POST /v1/trips/:id/loading/start.  It moves a PLANNED
// trip into LOADING, stamping load_started_at and seeding one loading
// detail line per product from the allocated orders' lines (full and
// empty quantities summed separately by product variant).
func (h *LoadingHandler) Start(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }

    ctx := c.Request().Context()
    tx, err := h.TripRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    trip, err := h.TripRepo.GetForUpdateTx(ctx, tx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !service.CanTransitionTrip(trip.Status, model.TripStatusLoading) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "loading can only start on a planned trip, not " + trip.Status,
        })
    }
    active, err := h.AllocRepo.CountActiveByTripTx(ctx, tx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count allocations"})
    }
    if active == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip has no allocated orders to load"})
    }

    seeded, err := seedLoadingDetailsTx(ctx, tx, h.OrderRepo, h.ProductRepo, h.LoadingRepo, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seed loading details"})
    }

    now := time.Now().UTC()
    if err := h.TripRepo.UpdateStatusTx(ctx, tx, tripID, trip.Status, model.TripStatusLoading,
        service.StampColumns(model.TripStatusLoading), now, nil); err != nil {
        return c.JSON(statusForError(err), echo.Map{"error": "failed to update trip status"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    _ = queue_publisher.PublishTripStatusChanged(ctx, queue.TripStatusChangedEvent{
        TripID:    trip.ID,
        TruckID:   trip.TruckID,
        RouteDate: trip.RouteDate,
        OldStatus: trip.Status,
        NewStatus: model.TripStatusLoading,
        ChangedBy: userID,
        ChangedAt: now.Format(time.RFC3339),
    })

    details, err := h.LoadingRepo.ListByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusCreated, echo.Map{"trip_id": tripID, "seeded": seeded})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "trip_id": tripID,
        "seeded":  seeded,
        "details": loadingDetailViews(details),
    })
}

// seedLoadingDetailsTx creates a trip's loading detail lines from its
// allocated orders' lines.  Re-entering loading on a trip that already
// has lines is a no-op so a retried start never duplicates them.  Shared
// by the loading start endpoint and the generic status transition.
func seedLoadingDetailsTx(ctx context.Context, tx *sql.Tx, orderRepo *repository.OrderRepo, productRepo *repository.ProductRepo, loadingRepo *repository.LoadingRepo, tripID uint64) (int, error) {
    existing, err := loadingRepo.CountByTripTx(ctx, tx, tripID)
    if err != nil {
        return 0, err
    }
    if existing > 0 {
        return 0, nil
    }
    lines, err := orderRepo.LinesByTripTx(ctx, tx, tripID)
    if err != nil {
        return 0, err
    }
    productIDs := make([]uint64, 0, len(lines))
    for _, l := range lines {
        productIDs = append(productIDs, l.ProductID)
    }
    products, err := productRepo.GetByIDs(ctx, dedupeIDs(productIDs))
    if err != nil {
        return 0, err
    }
    required := service.BuildRequiredLines(lines, products)
    details := make([]model.LoadingDetail, 0, len(required))
    for i, req := range required {
        seq := uint32(i + 1)
        details = append(details, model.LoadingDetail{
            TripID:        tripID,
            ProductID:     req.ProductID,
            RequiredFull:  req.RequiredFull,
            RequiredEmpty: req.RequiredEmpty,
            Sequence:      &seq,
        })
    }
    if err := loadingRepo.CreateBulkTx(ctx, tx, tripID, details); err != nil {
        return 0, err
    }
    return len(details), nil
}

// Record handles POST /v1/trips/:id/loading.  It records actually loaded
// quantities for one product and, in the same transaction, moves that
// stock from the trip's warehouse onto the truck.  A product outside the
// seeded plan gets a new line with zero required quantities.
func (h *LoadingHandler) Record(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        ProductID uint64  `json:"product_id"`
        QtyFull   int     `json:"qty_full"`
        QtyEmpty  int     `json:"qty_empty"`
        Sequence  *uint32 `json:"sequence"`
        Notes     *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
    }
    if body.QtyFull < 0 || body.QtyEmpty < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantities must not be negative"})
    }
    if body.QtyFull == 0 && body.QtyEmpty == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "a loading record needs a non-zero quantity"})
    }
    if body.Sequence != nil && *body.Sequence == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sequence must be positive"})
    }

    ctx := c.Request().Context()
    if _, err := h.ProductRepo.GetByID(ctx, body.ProductID); err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    tx, err := h.TripRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    trip, err := h.TripRepo.GetForUpdateTx(ctx, tx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if trip.Status != model.TripStatusLoading {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "loading can only be recorded while the trip is loading, not " + trip.Status,
        })
    }

    // Warehouse -> truck, atomically with the detail update.  A product
    // the warehouse has never stocked is reported as such rather than as
    // a shortfall.
    stock, err := h.WarehouseInv.GetTx(ctx, tx, trip.WarehouseID, body.ProductID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load warehouse stock"})
    }
    if stock == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "warehouse does not stock this product"})
    }
    if err := h.WarehouseInv.RemoveStockTx(ctx, tx, trip.WarehouseID, body.ProductID, body.QtyFull, body.QtyEmpty); err != nil {
        if errors.Is(err, repository.ErrInsufficientInventory) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient warehouse stock"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove warehouse stock"})
    }
    if err := h.TruckInv.AddStockTx(ctx, tx, trip.TruckID, body.ProductID, body.QtyFull, body.QtyEmpty); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add truck stock"})
    }

    detail, err := h.LoadingRepo.GetByTripAndProductForUpdateTx(ctx, tx, tripID, body.ProductID)
    switch {
    case errors.Is(err, repository.ErrDetailNotFound):
        detail = service.ApplyLoadingRecord(nil, tripID, body.ProductID, body.QtyFull, body.QtyEmpty, body.Sequence)
        detail.Notes = body.Notes
        if err := h.LoadingRepo.InsertTx(ctx, tx, detail); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create loading detail"})
        }
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    default:
        detail = service.ApplyLoadingRecord(detail, tripID, body.ProductID, body.QtyFull, body.QtyEmpty, body.Sequence)
        if err := h.LoadingRepo.UpdateLoadedTx(ctx, tx, detail.ID, detail.LoadedFull, detail.LoadedEmpty, body.Sequence, detail.Status, body.Notes); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update loading detail"})
        }
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":          tripID,
        "product_id":       body.ProductID,
        "loaded_full":      detail.LoadedFull,
        "loaded_empty":     detail.LoadedEmpty,
        "loading_sequence": detail.Sequence,
        "status":           detail.Status,
    })
}

// Summary handles GET /v1/trips/:id/loading/summary.
func (h *LoadingHandler) Summary(c echo.Context) error {
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    ctx := c.Request().Context()
    trip, err := h.TripRepo.GetByID(ctx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    details, err := h.LoadingRepo.ListByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load loading details"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":     tripID,
        "trip_status": trip.Status,
        "summary":     service.Summarize(details),
        "details":     loadingDetailViews(details),
    })
}

// Complete handles POST /v1/trips/:id/loading/complete.  Without force
// the trip may only complete loading when nothing is pending, the
// overall percentage meets the minimum and the loaded count fits the
// truck; with force those violations are downgraded to warnings in the
// response.  Completion moves the trip to LOADED and its allocations to
// LOADED.
func (h *LoadingHandler) Complete(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        Force bool `json:"force"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    ctx := c.Request().Context()
    tx, err := h.TripRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    trip, err := h.TripRepo.GetForUpdateTx(ctx, tx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if trip.Status != model.TripStatusLoading {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "loading can only be completed while the trip is loading, not " + trip.Status,
        })
    }
    truck, err := h.TruckRepo.GetByID(ctx, trip.TruckID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load truck"})
    }
    details, err := h.LoadingRepo.ListByTripTx(ctx, tx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load loading details"})
    }
    summary := service.Summarize(details)
    violations := service.ValidateLoadingCompletion(summary, truck.CapacityCylinders)
    if len(violations) > 0 && !body.Force {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":      "loading completion blocked",
            "violations": violations,
            "summary":    summary,
        })
    }
    if len(violations) > 0 {
        log.Printf("loading: trip %d completed with force, violations: %v", tripID, violations)
    }

    now := time.Now().UTC()
    if err := h.TripRepo.UpdateStatusTx(ctx, tx, tripID, trip.Status, model.TripStatusLoaded,
        service.StampColumns(model.TripStatusLoaded), now, nil); err != nil {
        return c.JSON(statusForError(err), echo.Map{"error": "failed to update trip status"})
    }
    if err := h.AllocRepo.UpdateStatusByTripTx(ctx, tx, tripID, model.AllocationStatusLoaded); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update allocations"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    _ = queue_publisher.PublishTripStatusChanged(ctx, queue.TripStatusChangedEvent{
        TripID:    trip.ID,
        TruckID:   trip.TruckID,
        RouteDate: trip.RouteDate,
        OldStatus: trip.Status,
        NewStatus: model.TripStatusLoaded,
        ChangedBy: userID,
        ChangedAt: now.Format(time.RFC3339),
    })

    resp := echo.Map{
        "trip_id": tripID,
        "status":  model.TripStatusLoaded,
        "summary": summary,
    }
    if len(violations) > 0 {
        resp["warnings"] = violations
    }
    return c.JSON(http.StatusOK, resp)
}

// ValidateCapacity handles POST /v1/trips/:id/capacity/validate.  The
// body carries proposed additional loading lines; the response reports
// cylinder and weight utilization against the truck's capacity, plus
// warehouse stock warnings, without mutating anything.
func (h *LoadingHandler) ValidateCapacity(c echo.Context) error {
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        Lines []service.LoadingPlanLine `json:"lines"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    for _, line := range body.Lines {
        if line.ProductID == 0 || line.QtyFull < 0 || line.QtyEmpty < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan line"})
        }
    }

    ctx := c.Request().Context()
    trip, err := h.TripRepo.GetByID(ctx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    truck, err := h.TruckRepo.GetByID(ctx, trip.TruckID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load truck"})
    }
    current, err := h.TruckInv.ListByTruck(ctx, trip.TruckID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load truck inventory"})
    }
    productIDs := make([]uint64, 0, len(current)+len(body.Lines))
    for _, inv := range current {
        productIDs = append(productIDs, inv.ProductID)
    }
    for _, line := range body.Lines {
        productIDs = append(productIDs, line.ProductID)
    }
    products, err := h.ProductRepo.GetByIDs(ctx, dedupeIDs(productIDs))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load products"})
    }
    stock, err := h.WarehouseInv.ListByWarehouse(ctx, trip.WarehouseID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load warehouse stock"})
    }

    result := service.ValidateCapacity(truck, current, body.Lines, products, stock)
    return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "result": result})
}

// Availability handles GET /v1/trips/:id/availability.  It compares the
// trip's required quantities against the warehouse's stock, optionally
// holding back the reorder level as safety stock
// (?include_safety_stock=true).
func (h *LoadingHandler) Availability(c echo.Context) error {
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    includeSafety := c.QueryParam("include_safety_stock") == "true"

    ctx := c.Request().Context()
    trip, err := h.TripRepo.GetByID(ctx, tripID)
    if err != nil {
        if errors.Is(err, repository.ErrTripNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    lines, err := h.OrderRepo.LinesByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order lines"})
    }
    productIDs := make([]uint64, 0, len(lines))
    for _, l := range lines {
        productIDs = append(productIDs, l.ProductID)
    }
    products, err := h.ProductRepo.GetByIDs(ctx, dedupeIDs(productIDs))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load products"})
    }
    stock, err := h.WarehouseInv.ListByWarehouse(ctx, trip.WarehouseID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load warehouse stock"})
    }

    required := service.BuildRequiredLines(lines, products)
    allAvailable := true
    items := make([]echo.Map, 0, len(required))
    for _, req := range required {
        availableFull, availableEmpty := 0, 0
        if s, ok := stock[req.ProductID]; ok {
            availableFull = s.QtyFull
            availableEmpty = s.QtyEmpty
            if includeSafety {
                availableFull -= s.ReorderLevel
                if availableFull < 0 {
                    availableFull = 0
                }
            }
        }
        sufficient := availableFull >= req.RequiredFull && availableEmpty >= req.RequiredEmpty
        if !sufficient {
            allAvailable = false
        }
        items = append(items, echo.Map{
            "product_id":      req.ProductID,
            "required_full":   req.RequiredFull,
            "required_empty":  req.RequiredEmpty,
            "available_full":  availableFull,
            "available_empty": availableEmpty,
            "sufficient":      sufficient,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":       tripID,
        "all_available": allAvailable,
        "items":         items,
    })
}

// loadingDetailView shapes a loading detail line for JSON responses.
func loadingDetailView(d *model.LoadingDetail) echo.Map {
    return echo.Map{
        "id":               d.ID,
        "trip_id":          d.TripID,
        "product_id":       d.ProductID,
        "required_full":    d.RequiredFull,
        "required_empty":   d.RequiredEmpty,
        "loaded_full":      d.LoadedFull,
        "loaded_empty":     d.LoadedEmpty,
        "loading_sequence": d.Sequence,
        "status":           d.Status,
        "notes":            d.Notes,
        "updated_at":       d.UpdatedAt.Format(time.RFC3339),
    }
}

func loadingDetailViews(details []model.LoadingDetail) []echo.Map {
    out := make([]echo.Map, 0, len(details))
    for i := range details {
        out = append(out, loadingDetailView(&details[i]))
    }
    return out
}
