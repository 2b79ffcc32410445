package handler

import (
    "errors"
    "net/http"
    "testing"

    "github.com/iliyamo/lpg-trip-dispatch/internal/repository"
)

func TestStatusForError(t *testing.T) {
    tests := []struct {
        name string
        err  error
        want int
    }{
        {"trip not found", repository.ErrTripNotFound, http.StatusNotFound},
        {"order not found", repository.ErrOrderNotFound, http.StatusNotFound},
        {"exclusivity conflict", repository.ErrConflict, http.StatusConflict},
        {"trip conflict error", &repository.TripConflictError{TripID: 1, Party: "truck"}, http.StatusConflict},
        {"wrong lifecycle state", repository.ErrInvalidState, http.StatusBadRequest},
        {"insufficient inventory", repository.ErrInsufficientInventory, http.StatusBadRequest},
        {"unclassified error", errors.New("boom"), http.StatusInternalServerError},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            if got := statusForError(tc.err); got != tc.want {
                t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
            }
        })
    }
}
