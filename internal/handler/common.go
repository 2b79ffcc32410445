package handler // handler defines http handlers

import (
    "errors"   // errors provides sentinel values used in getUserID
    "net/http" // net/http provides status codes for error mapping
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/lpg-trip-dispatch/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// statusForError maps repository sentinel errors to HTTP status codes.
// Lifecycle violations and stock shortfalls are bad requests; only
// exclusivity clashes (double-booked truck or driver, already-allocated
// order) are conflicts.
func statusForError(err error) int {
    switch {
    case errors.Is(err, repository.ErrTripNotFound),
        errors.Is(err, repository.ErrTruckNotFound),
        errors.Is(err, repository.ErrDriverNotFound),
        errors.Is(err, repository.ErrWarehouseNotFound),
        errors.Is(err, repository.ErrProductNotFound),
        errors.Is(err, repository.ErrOrderNotFound),
        errors.Is(err, repository.ErrVarianceNotFound),
        errors.Is(err, repository.ErrDetailNotFound):
        return http.StatusNotFound
    case errors.Is(err, repository.ErrConflict):
        return http.StatusConflict
    case errors.Is(err, repository.ErrInvalidState),
        errors.Is(err, repository.ErrInsufficientInventory):
        return http.StatusBadRequest
    default:
        return http.StatusInternalServerError
    }
}

// dedupeIDs removes zero and duplicate ids while preserving order.
func dedupeIDs(ids []uint64) []uint64 {
    unique := make([]uint64, 0, len(ids))
    seen := make(map[uint64]struct{})
    for _, id := range ids {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            unique = append(unique, id)
        }
    }
    return unique
}
