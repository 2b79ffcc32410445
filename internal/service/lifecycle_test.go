package service

import (
    "testing"
    "time"

    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

func TestCanTransitionTrip(t *testing.T) {
    tests := []struct {
        from, to string
        want     bool
    }{
        {model.TripStatusPlanned, model.TripStatusLoading, true},
        {model.TripStatusLoading, model.TripStatusLoaded, true},
        {model.TripStatusLoaded, model.TripStatusInTransit, true},
        {model.TripStatusInTransit, model.TripStatusCompleted, true},

        // no skipping ahead
        {model.TripStatusPlanned, model.TripStatusLoaded, false},
        {model.TripStatusPlanned, model.TripStatusInTransit, false},
        {model.TripStatusLoading, model.TripStatusInTransit, false},
        {model.TripStatusLoaded, model.TripStatusCompleted, false},

        // no going back
        {model.TripStatusLoaded, model.TripStatusLoading, false},
        {model.TripStatusInTransit, model.TripStatusPlanned, false},

        // self transitions are rejected
        {model.TripStatusPlanned, model.TripStatusPlanned, false},
        {model.TripStatusLoading, model.TripStatusLoading, false},

        // cancel from any non-terminal state
        {model.TripStatusPlanned, model.TripStatusCancelled, true},
        {model.TripStatusLoading, model.TripStatusCancelled, true},
        {model.TripStatusLoaded, model.TripStatusCancelled, true},
        {model.TripStatusInTransit, model.TripStatusCancelled, true},
        {model.TripStatusCompleted, model.TripStatusCancelled, false},
        {model.TripStatusCancelled, model.TripStatusCancelled, false},

        // terminal states are dead ends
        {model.TripStatusCompleted, model.TripStatusPlanned, false},
        {model.TripStatusCancelled, model.TripStatusLoading, false},
    }
    for _, tc := range tests {
        if got := CanTransitionTrip(tc.from, tc.to); got != tc.want {
            t.Errorf("CanTransitionTrip(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
        }
    }
}

func TestKnownTripStatus(t *testing.T) {
    for _, s := range []string{
        model.TripStatusPlanned, model.TripStatusLoading, model.TripStatusLoaded,
        model.TripStatusInTransit, model.TripStatusCompleted, model.TripStatusCancelled,
    } {
        if !KnownTripStatus(s) {
            t.Errorf("KnownTripStatus(%s) = false", s)
        }
    }
    for _, s := range []string{"", "SHIPPED", "planned", "DONE"} {
        if KnownTripStatus(s) {
            t.Errorf("KnownTripStatus(%q) = true", s)
        }
    }
}

func TestStampColumns(t *testing.T) {
    tests := []struct {
        status string
        want   []string
    }{
        {model.TripStatusLoading, []string{"load_started_at"}},
        {model.TripStatusLoaded, []string{"load_completed_at"}},
        {model.TripStatusInTransit, []string{"delivery_started_at", "actual_start_time"}},
        {model.TripStatusCompleted, []string{"unload_completed_at", "actual_end_time"}},
        {model.TripStatusPlanned, nil},
        {model.TripStatusCancelled, nil},
    }
    for _, tc := range tests {
        got := StampColumns(tc.status)
        if len(got) != len(tc.want) {
            t.Errorf("StampColumns(%s) = %v, want %v", tc.status, got, tc.want)
            continue
        }
        for i := range got {
            if got[i] != tc.want[i] {
                t.Errorf("StampColumns(%s)[%d] = %s, want %s", tc.status, i, got[i], tc.want[i])
            }
        }
    }
}

func TestResolveStatusTimestamp(t *testing.T) {
    now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

    got, ok := ResolveStatusTimestamp("", now)
    if !ok || !got.Equal(now) {
        t.Errorf("empty input: got (%v, %v), want (%v, true)", got, ok, now)
    }

    got, ok = ResolveStatusTimestamp("2026-03-14T07:15:00+02:00", now)
    if !ok {
        t.Fatalf("valid timestamp rejected")
    }
    want := time.Date(2026, 3, 14, 5, 15, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Errorf("parsed = %v, want %v", got, want)
    }

    // malformed input substitutes now but reports ok=false
    got, ok = ResolveStatusTimestamp("14/03/2026 09:30", now)
    if ok {
        t.Errorf("malformed timestamp reported ok")
    }
    if !got.Equal(now) {
        t.Errorf("malformed timestamp: got %v, want fallback %v", got, now)
    }
}
