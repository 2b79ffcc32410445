package service

import (
    "time"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// tripTransitions lists the legal forward transitions of the trip state
// machine.  CANCELLED is handled separately: it is reachable from any
// non-terminal state as a manual override.
var tripTransitions = map[string][]string{
    model.TripStatusPlanned:   {model.TripStatusLoading},
    model.TripStatusLoading:   {model.TripStatusLoaded},
    model.TripStatusLoaded:    {model.TripStatusInTransit},
    model.TripStatusInTransit: {model.TripStatusCompleted},
}

// statusStampColumns maps a target status to the trip timestamp columns
// stamped when the trip enters that status.  Statuses absent from the
// table stamp nothing beyond updated_at.
var statusStampColumns = map[string][]string{
    model.TripStatusLoading:   {"load_started_at"},
    model.TripStatusLoaded:    {"load_completed_at"},
    model.TripStatusInTransit: {"delivery_started_at", "actual_start_time"},
    model.TripStatusCompleted: {"unload_completed_at", "actual_end_time"},
}

// KnownTripStatus reports whether s is one of the canonical trip
// statuses.
func KnownTripStatus(s string) bool {
    switch s {
    case model.TripStatusPlanned, model.TripStatusLoading, model.TripStatusLoaded,
        model.TripStatusInTransit, model.TripStatusCompleted, model.TripStatusCancelled:
        return true
    }
    return false
}

// TerminalTripStatus reports whether a trip in status s can no longer
// move.
func TerminalTripStatus(s string) bool {
    return s == model.TripStatusCompleted || s == model.TripStatusCancelled
}

// CanTransitionTrip reports whether a trip may move from one status to
// another.  Cancelling is always permitted from a non-terminal state.
func CanTransitionTrip(from, to string) bool {
    if from == to {
        return false
    }
    if to == model.TripStatusCancelled {
        return !TerminalTripStatus(from)
    }
    for _, next := range tripTransitions[from] {
        if next == to {
            return true
        }
    }
    return false
}

// StampColumns returns the trip timestamp columns to set when entering
// the given status.  The returned slice is never mutated by callers.
func StampColumns(status string) []string {
    return statusStampColumns[status]
}

// ResolveStatusTimestamp interprets an optional caller-supplied ISO-8601
// timestamp for a status update.  When raw is empty or unparseable the
// current time is substituted and ok is false so the caller can log a
// warning; a malformed timestamp deliberately never rejects the update.
func ResolveStatusTimestamp(raw string, now time.Time) (time.Time, bool) {
    if raw == "" {
        return now, true
    }
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        return t.UTC(), true
    }
    return now, false
}
