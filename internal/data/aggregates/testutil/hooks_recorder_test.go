package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestHooksRecorderStatusOfReturnsLatest(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Fleet.Triage.Create", "success", time.Millisecond)
	h.ObserveOperation("Fleet.Triage.Resolve", "not_found", time.Millisecond)
	h.ObserveOperation("Fleet.Triage.Create", "conflict", time.Millisecond)

	if got := h.StatusOf("Fleet.Triage.Create"); got != "conflict" {
		t.Fatalf("create status: want=conflict got=%s", got)
	}
	if got := h.StatusOf("Fleet.Triage.Resolve"); got != "not_found" {
		t.Fatalf("resolve status: want=not_found got=%s", got)
	}
	if got := h.StatusOf("Fleet.Release.Complete"); got != "" {
		t.Fatalf("unseen op: want empty got=%s", got)
	}
	if ops := h.Operations(); len(ops) != 3 || ops[0].Name != "Fleet.Triage.Create" {
		t.Fatalf("operations: %+v", ops)
	}
}

func TestHooksRecorderConcurrentSignals(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.IncConflict("Fleet.RiderCar.Transition")
			h.IncRetry("Fleet.RiderCar.Transition")
		}()
	}
	wg.Wait()

	const op = "Fleet.RiderCar.Transition"
	if h.Conflicts(op) != 16 || h.Retries(op) != 16 {
		t.Fatalf("signals: conflicts=%d retries=%d", h.Conflicts(op), h.Retries(op))
	}
	if h.Conflicts("Fleet.Triage.Create") != 0 {
		t.Fatalf("unrelated op should have no conflicts")
	}
}
