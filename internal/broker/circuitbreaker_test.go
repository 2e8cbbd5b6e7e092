package broker

import (
	"testing"
	"time"
)

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, 10*time.Second, 1)
	now := time.Now()

	for i := 0; i < 2; i++ {
		if !cb.Allow(now) {
			t.Fatalf("call %d: should be allowed while closed", i)
		}
		cb.RecordFailure(now)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("want still closed after 2/3 failures, got %s", cb.State())
	}

	cb.RecordFailure(now)
	if cb.State() != CircuitOpen {
		t.Fatalf("want open after 3rd failure, got %s", cb.State())
	}
	if cb.Allow(now) {
		t.Fatal("should not allow calls while open and within cooldown")
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb := newCircuitBreaker(1, time.Minute, 5*time.Second, 1)
	now := time.Now()

	cb.RecordFailure(now)
	if cb.State() != CircuitOpen {
		t.Fatalf("want open, got %s", cb.State())
	}

	later := now.Add(6 * time.Second)
	if !cb.Allow(later) {
		t.Fatal("want one probe call allowed once cooldown elapses")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("want half_open, got %s", cb.State())
	}
	if cb.Allow(later) {
		t.Fatal("want second concurrent probe denied (halfOpenMaxCalls=1)")
	}
}

func TestCircuitBreaker_SuccessClosesFromHalfOpen(t *testing.T) {
	cb := newCircuitBreaker(1, time.Minute, 5*time.Second, 1)
	now := time.Now()
	cb.RecordFailure(now)
	later := now.Add(6 * time.Second)
	cb.Allow(later)
	cb.RecordSuccess(later)
	if cb.State() != CircuitClosed {
		t.Fatalf("want closed after half-open success, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailureInHalfOpenReopens(t *testing.T) {
	cb := newCircuitBreaker(1, time.Minute, 5*time.Second, 1)
	now := time.Now()
	cb.RecordFailure(now)
	later := now.Add(6 * time.Second)
	cb.Allow(later)
	cb.RecordFailure(later)
	if cb.State() != CircuitOpen {
		t.Fatalf("want open after half-open failure, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	cb := newCircuitBreaker(2, 10*time.Second, time.Minute, 1)
	now := time.Now()
	cb.RecordFailure(now)
	// Second failure well outside the 10s window: should not trip.
	cb.RecordFailure(now.Add(20 * time.Second))
	if cb.State() != CircuitClosed {
		t.Fatalf("want closed, stale failure should have been pruned, got %s", cb.State())
	}
}

func TestCircuitRegistry_IsolatesByWorkspaceAndTool(t *testing.T) {
	r := newCircuitRegistry(1, time.Minute, 5*time.Second, 1)
	now := time.Now()

	r.get("ws1", "book_appointment").RecordFailure(now)
	if r.get("ws1", "book_appointment").State() != CircuitOpen {
		t.Fatal("ws1/book_appointment should be open")
	}
	if r.get("ws1", "get_services").State() != CircuitClosed {
		t.Fatal("ws1/get_services should be unaffected")
	}
	if r.get("ws2", "book_appointment").State() != CircuitClosed {
		t.Fatal("ws2/book_appointment should be unaffected")
	}
}

func TestCircuitRegistry_ForceHalfOpen(t *testing.T) {
	r := newCircuitRegistry(1, time.Minute, time.Hour, 1)
	now := time.Now()
	r.get("ws1", "book_appointment").RecordFailure(now)
	if r.get("ws1", "book_appointment").State() != CircuitOpen {
		t.Fatal("want open")
	}
	r.ForceHalfOpen("ws1", "book_appointment")
	if r.get("ws1", "book_appointment").State() != CircuitHalfOpen {
		t.Fatal("want half_open after forcing, even though cooldown has not elapsed")
	}
}
