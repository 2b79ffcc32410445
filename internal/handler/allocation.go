package handler

import (
    "errors"
    "fmt"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
    "github.com/iliyamo/lpg-trip-dispatch/internal/repository"
    "github.com/iliyamo/lpg-trip-dispatch/internal/service"
)

// AllocationHandler assigns confirmed orders to trips and removes them
// again.  Allocation is all-or-nothing: every order in the batch must be
// eligible and every reservation must succeed, otherwise the whole batch
// is rolled back.  Secondary effects (order status flip, empty-return
// seeding) run after commit as best-effort follow-ups that are logged
// and swallowed on failure.
type AllocationHandler struct {
    TripRepo        *repository.TripRepo
    AllocRepo       *repository.AllocationRepo
    OrderRepo       *repository.OrderRepo
    ProductRepo     *repository.ProductRepo
    TruckInvRepo    *repository.TruckInventoryRepo
    EmptyReturnRepo *repository.EmptyReturnRepo
}

// NewAllocationHandler constructs an AllocationHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewAllocationHandler(tripRepo *repository.TripRepo, allocRepo *repository.AllocationRepo, orderRepo *repository.OrderRepo, productRepo *repository.ProductRepo, truckInvRepo *repository.TruckInventoryRepo, emptyReturnRepo *repository.EmptyReturnRepo) *AllocationHandler {
    if tripRepo == nil || allocRepo == nil || orderRepo == nil || productRepo == nil || truckInvRepo == nil || emptyReturnRepo == nil {
        panic("nil repository passed to NewAllocationHandler")
    }
    return &AllocationHandler{
        TripRepo:        tripRepo,
        AllocRepo:       allocRepo,
        OrderRepo:       orderRepo,
        ProductRepo:     productRepo,
        TruckInvRepo:    truckInvRepo,
        EmptyReturnRepo: emptyReturnRepo,
    }
}

// Allocate handles POST /v1/trips/:id/allocations.  The body carries
// {"order_ids": [...], "auto_sequence": bool}.  Every order must exist
// and be CONFIRMED, must not hold an active allocation anywhere, and the
// truck must have enough unreserved full cylinders for every product in
// the batch; violations are reported together, not just the first.  On
// success the orders' truck inventory is reserved inside the same
// transaction as the allocation insert, so concurrent attempts for the
// same order or stock cannot both succeed.
func (h *AllocationHandler) Allocate(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        OrderIDs     []uint64 `json:"order_ids"`
        AutoSequence bool     `json:"auto_sequence"`
        Notes        *string  `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    orderIDs := dedupeIDs(body.OrderIDs)
    if len(orderIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_ids is required"})
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
    if trip.Status != model.TripStatusPlanned && trip.Status != model.TripStatusLoading {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "orders can only be allocated while the trip is planned or loading, not " + trip.Status,
        })
    }

    // Order existence and eligibility, all offenders reported together.
    orders, err := h.OrderRepo.GetByIDsTx(ctx, tx, orderIDs)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    var missing, notConfirmed []uint64
    for _, id := range orderIDs {
        o, ok := orders[id]
        switch {
        case !ok:
            missing = append(missing, id)
        case o.Status != model.OrderStatusConfirmed:
            notConfirmed = append(notConfirmed, id)
        }
    }
    if len(missing) > 0 || len(notConfirmed) > 0 {
        resp := echo.Map{"error": "some orders are not allocatable"}
        if len(missing) > 0 {
            resp["missing"] = missing
        }
        if len(notConfirmed) > 0 {
            resp["not_confirmed"] = notConfirmed
        }
        status := http.StatusBadRequest
        if len(missing) > 0 && len(notConfirmed) == 0 {
            status = http.StatusNotFound
        }
        return c.JSON(status, resp)
    }

    // Double-booking: an order participates in at most one active allocation.
    taken, err := h.AllocRepo.ActiveOrderIDsTx(ctx, tx, orderIDs)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing allocations"})
    }
    if len(taken) > 0 {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":             "some orders already have an active allocation",
            "already_allocated": taken,
        })
    }

    lines, err := h.OrderRepo.LinesByOrderIDsTx(ctx, tx, orderIDs)
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

    // Availability pre-check, aggregated per product; abort the whole
    // batch on any shortage.
    requested := make(map[uint64]int)
    for _, l := range lines {
        p, ok := products[l.ProductID]
        if !ok || !p.IsFullVariant() {
            continue
        }
        requested[l.ProductID] += l.QtyFull
    }
    var shortages []string
    for productID, qty := range requested {
        inv, err := h.TruckInvRepo.GetTx(ctx, tx, trip.TruckID, productID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check truck inventory"})
        }
        available := 0
        if inv != nil {
            available = inv.Available()
        }
        if available < qty {
            name := products[productID].Name
            shortages = append(shortages,
                fmt.Sprintf("%s: available %d < requested %d", name, available, qty))
        }
    }
    if len(shortages) > 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":     "insufficient truck inventory",
            "shortages": shortages,
        })
    }

    // Insert allocation rows.  Auto sequencing continues after the trip's
    // existing stops.
    offset := 0
    if body.AutoSequence {
        offset, err = h.AllocRepo.CountActiveByTripTx(ctx, tx, tripID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count allocations"})
        }
    }
    linesByOrder := make(map[uint64][]model.OrderLine)
    for _, l := range lines {
        linesByOrder[l.OrderID] = append(linesByOrder[l.OrderID], l)
    }
    allocs := make([]model.TripAllocation, 0, len(orderIDs))
    for i, orderID := range orderIDs {
        a := model.TripAllocation{
            TripID:      tripID,
            TruckID:     trip.TruckID,
            OrderID:     orderID,
            Status:      model.AllocationStatusPlanned,
            AllocatedBy: userID,
            Notes:       body.Notes,
        }
        if body.AutoSequence {
            seq := uint32(offset + i + 1)
            a.StopSequence = &seq
        }
        weight := 0.0
        for _, l := range linesByOrder[orderID] {
            w, _ := service.LineWeightKg(products[l.ProductID], l.QtyFull, l.QtyEmpty)
            weight += w
        }
        if weight > 0 {
            a.EstimatedWeight = &weight
        }
        allocs = append(allocs, a)
    }
    allocIDs, err := h.AllocRepo.CreateBulkTx(ctx, tx, allocs)
    if err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "an order was allocated concurrently"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create allocations"})
    }

    // Reserve the stock.  The guard re-verifies availability atomically;
    // any failure rolls the whole batch back, allocations included.
    for productID, qty := range requested {
        if qty == 0 {
            continue
        }
        if err := h.TruckInvRepo.ReserveTx(ctx, tx, trip.TruckID, productID, qty); err != nil {
            if errors.Is(err, repository.ErrInsufficientInventory) {
                return c.JSON(http.StatusBadRequest, echo.Map{
                    "error": fmt.Sprintf("insufficient truck inventory for product %d", productID),
                })
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve inventory"})
        }
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    // Best-effort follow-ups.  The allocation already stands; failures
    // here are logged and swallowed.
    if err := h.OrderRepo.UpdateStatusBulk(ctx, orderIDs, model.OrderStatusDispatched); err != nil {
        log.Printf("allocation: failed to mark orders dispatched for trip %d: %v", tripID, err)
    }
    h.seedEmptyReturns(c, orders, lines, products)

    return c.JSON(http.StatusCreated, echo.Map{
        "trip_id":        tripID,
        "allocation_ids": allocIDs,
        "allocated":      len(allocIDs),
    })
}

// seedEmptyReturns creates empty-return expectation records for exchange
// order lines, one per line, with the default return window.  The empty
// product is resolved from the full product's SKU naming convention;
// unresolvable SKUs leave the product reference null.  Everything here
// is best-effort.
func (h *AllocationHandler) seedEmptyReturns(c echo.Context, orders map[uint64]*model.Order, lines []model.OrderLine, products map[uint64]*model.Product) {
    ctx := c.Request().Context()
    due := time.Now().UTC().AddDate(0, 0, service.EmptyReturnWindowDays).Format("2006-01-02")
    var expectations []model.EmptyReturnExpectation
    for _, l := range lines {
        p, ok := products[l.ProductID]
        if !ok || p.Variant != model.VariantFullExchange || l.QtyEmpty == 0 {
            continue
        }
        o, ok := orders[l.OrderID]
        if !ok {
            continue
        }
        e := model.EmptyReturnExpectation{
            OrderID:       l.OrderID,
            CustomerID:    o.CustomerID,
            FullProductID: l.ProductID,
            QtyExpected:   l.QtyEmpty,
            DueDate:       due,
            Status:        model.EmptyReturnPending,
        }
        emptySKU := service.ResolveEmptyVariantSKU(p.SKU)
        if emptySKU != "" {
            emptyProduct, err := h.ProductRepo.GetBySKU(ctx, emptySKU)
            if err != nil {
                log.Printf("allocation: empty variant lookup for sku %q failed: %v", emptySKU, err)
            } else if emptyProduct != nil {
                e.EmptyProductID = &emptyProduct.ID
            } else {
                log.Printf("allocation: no empty variant product for sku %q (order %d)", emptySKU, l.OrderID)
            }
        }
        expectations = append(expectations, e)
    }
    if len(expectations) == 0 {
        return
    }
    if err := h.EmptyReturnRepo.CreateBulk(ctx, expectations); err != nil {
        log.Printf("allocation: failed to seed %d empty-return expectation(s): %v", len(expectations), err)
    }
}

// Remove handles DELETE /v1/trips/:id/allocations/:orderId.  It deletes
// the allocation, releases the order's inventory reservation, reverts
// the order to CONFIRMED, and reverts the trip to PLANNED when its last
// allocation is removed during loading.
func (h *AllocationHandler) Remove(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tripID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    orderID, ok := pathID(c, "orderId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
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
    if trip.Status != model.TripStatusPlanned && trip.Status != model.TripStatusLoading {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "orders can only be removed while the trip is planned or loading, not " + trip.Status,
        })
    }
    alloc, err := h.AllocRepo.GetActiveByTripAndOrderTx(ctx, tx, tripID, orderID)
    if err != nil {
        if errors.Is(err, repository.ErrOrderNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order is not allocated to this trip"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    lines, err := h.OrderRepo.LinesByOrderIDsTx(ctx, tx, []uint64{orderID})
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
    for _, l := range lines {
        p, ok := products[l.ProductID]
        if !ok || !p.IsFullVariant() || l.QtyFull == 0 {
            continue
        }
        if err := h.TruckInvRepo.ReleaseTx(ctx, tx, trip.TruckID, l.ProductID, l.QtyFull); err != nil {
            if errors.Is(err, repository.ErrInsufficientInventory) {
                log.Printf("allocation: release of %d x product %d on truck %d skipped: %v",
                    l.QtyFull, l.ProductID, trip.TruckID, err)
                continue
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release reservation"})
        }
    }

    if err := h.AllocRepo.DeleteTx(ctx, tx, alloc.ID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete allocation"})
    }
    if err := h.OrderRepo.UpdateStatusTx(ctx, tx, orderID, model.OrderStatusConfirmed); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revert order status"})
    }

    remaining, err := h.AllocRepo.CountActiveByTripTx(ctx, tx, tripID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count allocations"})
    }
    if remaining == 0 && trip.Status == model.TripStatusLoading {
        // Nothing left to load; the trip goes back to the drawing board.
        if err := h.TripRepo.UpdateStatusTx(ctx, tx, tripID, trip.Status, model.TripStatusPlanned, nil, time.Now().UTC(), nil); err != nil {
            return c.JSON(statusForError(err), echo.Map{"error": "failed to revert trip status"})
        }
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    // The order is no longer going out on this trip, so pending
    // empty-return expectations seeded at allocation time are stale.
    if err := h.EmptyReturnRepo.DeleteByOrder(ctx, orderID); err != nil {
        log.Printf("allocation: failed to clear empty-return expectations for order %d: %v", orderID, err)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":               tripID,
        "order_id":              orderID,
        "remaining_allocations": remaining,
    })
}

// EmptyReturns handles GET /v1/orders/:id/empty-returns, listing the
// empty-cylinder expectations seeded for an order's exchange lines.
func (h *AllocationHandler) EmptyReturns(c echo.Context) error {
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx := c.Request().Context()
    expectations, err := h.EmptyReturnRepo.ListByOrder(ctx, orderID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load empty returns"})
    }
    items := make([]echo.Map, 0, len(expectations))
    for i := range expectations {
        e := &expectations[i]
        items = append(items, echo.Map{
            "id":               e.ID,
            "order_id":         e.OrderID,
            "customer_id":      e.CustomerID,
            "full_product_id":  e.FullProductID,
            "empty_product_id": e.EmptyProductID,
            "qty_expected":     e.QtyExpected,
            "due_date":         e.DueDate,
            "status":           e.Status,
            "created_at":       e.CreatedAt.Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"order_id": orderID, "items": items})
}

// allocationView shapes a trip allocation for JSON responses.
func allocationView(a *model.TripAllocation) echo.Map {
    return echo.Map{
        "id":                  a.ID,
        "trip_id":             a.TripID,
        "truck_id":            a.TruckID,
        "order_id":            a.OrderID,
        "stop_sequence":       a.StopSequence,
        "status":              a.Status,
        "estimated_weight_kg": a.EstimatedWeight,
        "actual_weight_kg":    a.ActualWeight,
        "allocated_by":        a.AllocatedBy,
        "notes":               a.Notes,
        "created_at":          a.CreatedAt.Format(time.RFC3339),
    }
}
