package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAndExpose(t *testing.T) {
	m := New("paie", func() float64 { return 3 })

	m.ObserveRequest(http.MethodGet, "GET /api/workers", 200, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)
	m.LedgerOp("create_worker", OutcomeSuccess)
	m.LedgerOp("create_worker", OutcomeSuccess)
	m.LedgerOp("delete_worker", OutcomeNotFound)
	m.RateLimited()

	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("create_worker", OutcomeSuccess)); got != 2 {
		t.Errorf("create_worker success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		"paie_http_requests_total",
		"paie_ledger_operations_total",
		"paie_rate_limit_hits_total 1",
		"paie_active_sessions 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.LedgerOp("x", OutcomeError)
	m.RateLimited()
	m.Suspicious()
}
