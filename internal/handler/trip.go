package handler

import (
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

// TripHandler groups the repositories needed to create trips and move
// them through their lifecycle.  All methods assume JWT authentication
// and role validation has already been performed by middleware.  Each
// method runs critical DB operations inside a transaction to guarantee
// atomicity.
type TripHandler struct {
    TripRepo         *repository.TripRepo
    TruckRepo        *repository.TruckRepo
    DriverRepo       *repository.DriverRepo
    WarehouseRepo    *repository.WarehouseRepo
    AllocRepo        *repository.AllocationRepo
    OrderRepo        *repository.OrderRepo
    ProductRepo      *repository.ProductRepo
    TruckInvRepo     *repository.TruckInventoryRepo
    WarehouseInvRepo *repository.WarehouseInventoryRepo
    LoadingRepo      *repository.LoadingRepo
}

// NewTripHandler constructs a TripHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewTripHandler(tripRepo *repository.TripRepo, truckRepo *repository.TruckRepo, driverRepo *repository.DriverRepo, warehouseRepo *repository.WarehouseRepo, allocRepo *repository.AllocationRepo, orderRepo *repository.OrderRepo, productRepo *repository.ProductRepo, truckInvRepo *repository.TruckInventoryRepo, warehouseInvRepo *repository.WarehouseInventoryRepo, loadingRepo *repository.LoadingRepo) *TripHandler {
    if tripRepo == nil || truckRepo == nil || driverRepo == nil || warehouseRepo == nil ||
        allocRepo == nil || orderRepo == nil || productRepo == nil || truckInvRepo == nil ||
        warehouseInvRepo == nil || loadingRepo == nil {
        panic("nil repository passed to NewTripHandler")
    }
    return &TripHandler{
        TripRepo:         tripRepo,
        TruckRepo:        truckRepo,
        DriverRepo:       driverRepo,
        WarehouseRepo:    warehouseRepo,
        AllocRepo:        allocRepo,
        OrderRepo:        orderRepo,
        ProductRepo:      productRepo,
        TruckInvRepo:     truckInvRepo,
        WarehouseInvRepo: warehouseInvRepo,
        LoadingRepo:      loadingRepo,
    }
}

// Create handles POST /v1/trips.  It plans a new trip for a truck on a
// route date.  A truck and a driver may each have at most one
// non-cancelled trip per date; a clash returns 409 naming the existing
// trip.  The exclusivity check is re-verified inside the insert
// transaction and the unique indexes fail closed should two creations
// race past it.
func (h *TripHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        TruckID          uint64  `json:"truck_id"`
        DriverID         *uint64 `json:"driver_id"`
        WarehouseID      uint64  `json:"warehouse_id"`
        RouteDate        string  `json:"route_date"`
        PlannedStartTime string  `json:"planned_start_time"`
        PlannedEndTime   string  `json:"planned_end_time"`
        Notes            *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TruckID == 0 || body.WarehouseID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "truck_id and warehouse_id are required"})
    }
    if _, err := time.Parse("2006-01-02", body.RouteDate); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_date must be YYYY-MM-DD"})
    }

    ctx := c.Request().Context()
    truck, err := h.TruckRepo.GetByID(ctx, body.TruckID)
    if err != nil {
        if errors.Is(err, repository.ErrTruckNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "truck not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !truck.IsActive {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "truck is not in service"})
    }
    if body.DriverID != nil {
        driver, err := h.DriverRepo.GetByID(ctx, *body.DriverID)
        if err != nil {
            if errors.Is(err, repository.ErrDriverNotFound) {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "driver not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        if !driver.IsActive {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "driver is not active"})
        }
    }
    warehouse, err := h.WarehouseRepo.GetByID(ctx, body.WarehouseID)
    if err != nil {
        if errors.Is(err, repository.ErrWarehouseNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "warehouse not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !warehouse.IsActive {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "warehouse is not active"})
    }

    trip := &model.Trip{
        TruckID:     body.TruckID,
        DriverID:    body.DriverID,
        WarehouseID: body.WarehouseID,
        RouteDate:   body.RouteDate,
        CreatedBy:   userID,
        Notes:       body.Notes,
    }
    now := time.Now().UTC()
    if body.PlannedStartTime != "" {
        t, ok := service.ResolveStatusTimestamp(body.PlannedStartTime, now)
        if !ok {
            log.Printf("trip: malformed planned_start_time %q, substituting current time", body.PlannedStartTime)
        }
        trip.PlannedStartTime = &t
    }
    if body.PlannedEndTime != "" {
        t, ok := service.ResolveStatusTimestamp(body.PlannedEndTime, now)
        if !ok {
            log.Printf("trip: malformed planned_end_time %q, substituting current time", body.PlannedEndTime)
        }
        trip.PlannedEndTime = &t
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
    if err := h.TripRepo.CreateTx(ctx, tx, trip); err != nil {
        var conflict *repository.TripConflictError
        if errors.As(err, &conflict) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error":            conflict.Error(),
                "conflicting_trip": conflict.TripID,
            })
        }
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "truck or driver already booked on this date"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create trip"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    return c.JSON(http.StatusCreated, echo.Map{"trip": tripView(trip)})
}

// List handles GET /v1/trips with optional route_date and status query
// filters.
func (h *TripHandler) List(c echo.Context) error {
    routeDate := c.QueryParam("route_date")
    status := c.QueryParam("status")
    if routeDate != "" {
        if _, err := time.Parse("2006-01-02", routeDate); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_date must be YYYY-MM-DD"})
        }
    }
    if status != "" && !service.KnownTripStatus(status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown trip status"})
    }
    trips, err := h.TripRepo.List(c.Request().Context(), routeDate, status)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trips"})
    }
    items := make([]echo.Map, 0, len(trips))
    for i := range trips {
        items = append(items, tripView(&trips[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/trips/:id and returns the trip together with its
// allocations and loading details.
func (h *TripHandler) Get(c echo.Context) error {
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
    allocations, err := h.AllocRepo.ListByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load allocations"})
    }
    details, err := h.LoadingRepo.ListByTrip(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load loading details"})
    }
    allocViews := make([]echo.Map, 0, len(allocations))
    for i := range allocations {
        allocViews = append(allocViews, allocationView(&allocations[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "trip":            tripView(trip),
        "allocations":     allocViews,
        "loading_details": loadingDetailViews(details),
    })
}

// UpdateStatus handles PATCH /v1/trips/:id/status.  Transitions follow
// PLANNED -> LOADING -> LOADED -> IN_TRANSIT -> COMPLETED, with
// CANCELLED reachable from any non-terminal state.  Entering a status
// stamps its lifecycle timestamps; an optional caller-supplied ISO-8601
// timestamp overrides the stamp value and falls back to the current
// time with a logged warning when malformed.  Cancelling releases every
// inventory reservation held by the trip's active allocations and
// cancels those allocations.
func (h *TripHandler) UpdateStatus(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        Status    string  `json:"status"`
        Timestamp string  `json:"timestamp"`
        Notes     *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if !service.KnownTripStatus(body.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown trip status"})
    }

    at, ok := service.ResolveStatusTimestamp(body.Timestamp, time.Now().UTC())
    if !ok {
        log.Printf("trip: malformed status timestamp %q for trip %d, substituting current time", body.Timestamp, tripID)
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
    if !service.CanTransitionTrip(trip.Status, body.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "illegal transition " + trip.Status + " -> " + body.Status,
        })
    }

    switch body.Status {
    case model.TripStatusCancelled:
        if err := h.releaseTripReservationsTx(c, tx, trip); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release reservations"})
        }
        if trip.Status == model.TripStatusLoading || trip.Status == model.TripStatusLoaded {
            if err := h.returnLoadedStockTx(c, tx, trip); err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to return loaded stock"})
            }
        }
    case model.TripStatusLoading:
        if _, err := seedLoadingDetailsTx(ctx, tx, h.OrderRepo, h.ProductRepo, h.LoadingRepo, tripID); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seed loading details"})
        }
    }

    if err := h.TripRepo.UpdateStatusTx(ctx, tx, tripID, trip.Status, body.Status, service.StampColumns(body.Status), at, body.Notes); err != nil {
        return c.JSON(statusForError(err), echo.Map{"error": "failed to update trip status"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    // Best-effort event; a broker outage never fails the status change.
    _ = queue_publisher.PublishTripStatusChanged(ctx, queue.TripStatusChangedEvent{
        TripID:    trip.ID,
        TruckID:   trip.TruckID,
        RouteDate: trip.RouteDate,
        OldStatus: trip.Status,
        NewStatus: body.Status,
        ChangedBy: userID,
        ChangedAt: at.Format(time.RFC3339),
    })

    updated, err := h.TripRepo.GetByID(ctx, tripID)
    if err != nil {
        return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "status": body.Status})
    }
    return c.JSON(http.StatusOK, echo.Map{"trip": tripView(updated)})
}

// releaseTripReservationsTx releases the truck inventory reserved by the
// trip's active allocations and marks those allocations cancelled.
// Orders revert to CONFIRMED so they can be allocated to another trip.
func (h *TripHandler) releaseTripReservationsTx(c echo.Context, tx *sql.Tx, trip *model.Trip) error {
    ctx := c.Request().Context()
    allocations, err := h.AllocRepo.ListActiveByTripTx(ctx, tx, trip.ID)
    if err != nil {
        return err
    }
    if len(allocations) == 0 {
        return nil
    }
    lines, err := h.OrderRepo.LinesByTripTx(ctx, tx, trip.ID)
    if err != nil {
        return err
    }
    productIDs := make([]uint64, 0, len(lines))
    for _, l := range lines {
        productIDs = append(productIDs, l.ProductID)
    }
    products, err := h.ProductRepo.GetByIDs(ctx, dedupeIDs(productIDs))
    if err != nil {
        return err
    }
    for _, l := range lines {
        p, ok := products[l.ProductID]
        if !ok || !p.IsFullVariant() || l.QtyFull == 0 {
            continue
        }
        if err := h.TruckInvRepo.ReleaseTx(ctx, tx, trip.TruckID, l.ProductID, l.QtyFull); err != nil {
            if errors.Is(err, repository.ErrInsufficientInventory) {
                // The reservation may already have been consumed by loading;
                // log and keep releasing the rest.
                log.Printf("trip: release of %d x product %d on truck %d skipped: %v",
                    l.QtyFull, l.ProductID, trip.TruckID, err)
                continue
            }
            return err
        }
    }
    if err := h.AllocRepo.UpdateStatusByTripTx(ctx, tx, trip.ID, model.AllocationStatusCancelled); err != nil {
        return err
    }
    for _, a := range allocations {
        if err := h.OrderRepo.UpdateStatusTx(ctx, tx, a.OrderID, model.OrderStatusConfirmed); err != nil {
            return err
        }
    }
    return nil
}

// returnLoadedStockTx moves a cancelled trip's loaded cylinders off the
// truck and back into its warehouse.  Only trips cancelled during or
// right after loading come through here; once deliveries start the
// truck's contents no longer match the loading details.  A line whose
// truck stock has meanwhile dropped below the loaded amount is logged
// and skipped rather than failing the cancellation.
func (h *TripHandler) returnLoadedStockTx(c echo.Context, tx *sql.Tx, trip *model.Trip) error {
    ctx := c.Request().Context()
    details, err := h.LoadingRepo.ListByTripTx(ctx, tx, trip.ID)
    if err != nil {
        return err
    }
    for i := range details {
        d := &details[i]
        if d.LoadedFull == 0 && d.LoadedEmpty == 0 {
            continue
        }
        if err := h.TruckInvRepo.AddStockTx(ctx, tx, trip.TruckID, d.ProductID, -d.LoadedFull, -d.LoadedEmpty); err != nil {
            if errors.Is(err, repository.ErrInsufficientInventory) {
                log.Printf("trip: return of %d full / %d empty x product %d from truck %d skipped: %v",
                    d.LoadedFull, d.LoadedEmpty, d.ProductID, trip.TruckID, err)
                continue
            }
            return err
        }
        if err := h.WarehouseInvRepo.AddStockTx(ctx, tx, trip.WarehouseID, d.ProductID, d.LoadedFull, d.LoadedEmpty); err != nil {
            return err
        }
    }
    return nil
}

// tripView shapes a trip for JSON responses, formatting nullable
// timestamps as RFC3339 strings.
func tripView(t *model.Trip) echo.Map {
    return echo.Map{
        "id":                  t.ID,
        "truck_id":            t.TruckID,
        "driver_id":           t.DriverID,
        "warehouse_id":        t.WarehouseID,
        "route_date":          t.RouteDate,
        "status":              t.Status,
        "planned_start_time":  fmtTimePtr(t.PlannedStartTime),
        "planned_end_time":    fmtTimePtr(t.PlannedEndTime),
        "actual_start_time":   fmtTimePtr(t.ActualStartTime),
        "actual_end_time":     fmtTimePtr(t.ActualEndTime),
        "load_started_at":     fmtTimePtr(t.LoadStartedAt),
        "load_completed_at":   fmtTimePtr(t.LoadCompletedAt),
        "delivery_started_at": fmtTimePtr(t.DeliveryStartedAt),
        "unload_completed_at": fmtTimePtr(t.UnloadCompletedAt),
        "notes":               t.Notes,
        "created_by":          t.CreatedBy,
        "created_at":          t.CreatedAt.Format(time.RFC3339),
        "updated_at":          t.UpdatedAt.Format(time.RFC3339),
    }
}

func fmtTimePtr(t *time.Time) *string {
    if t == nil {
        return nil
    }
    s := t.Format(time.RFC3339)
    return &s
}
