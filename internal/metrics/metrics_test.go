package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAllocationCounts(t *testing.T) {
	reg := New()
	reg.ObserveAllocation("SMALL", OutcomeSuccess, time.Millisecond)
	reg.ObserveAllocation("SMALL", OutcomeSuccess, time.Millisecond)
	reg.ObserveAllocation("BIG", OutcomeFailure, time.Millisecond)

	if got := testutil.ToFloat64(reg.allocations.WithLabelValues("SMALL", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful SMALL allocations, got %v", got)
	}
	if got := testutil.ToFloat64(reg.allocations.WithLabelValues("BIG", OutcomeFailure)); got != 1 {
		t.Fatalf("expected 1 failed BIG allocation, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := New()
	reg.ObserveAllocation("SMART", OutcomeSuccess, time.Microsecond)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"gem_allocations_total", "gem_allocation_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition output", name)
		}
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveAllocation("SMALL", OutcomeSuccess, time.Second)
}
