package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	total := 0.0
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecordClaimCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordClaimRequested()
	c.RecordClaimRequested()
	c.RecordClaimResolved("approved")
	c.RecordClaimResolved("rejected")
	c.RecordClaimResolved("rejected")

	if got := counterValue(t, reg, "campusfind_claims_requested_total"); got != 2 {
		t.Errorf("claims_requested_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "campusfind_claims_resolved_total"); got != 3 {
		t.Errorf("claims_resolved_total = %v, want 3", got)
	}
}

func TestRecordMessageAndRateLimitCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMessagePosted("item")
	c.RecordMessagePosted("direct")
	c.RecordRateLimited()

	if got := counterValue(t, reg, "campusfind_messages_posted_total"); got != 2 {
		t.Errorf("messages_posted_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "campusfind_rate_limited_total"); got != 1 {
		t.Errorf("rate_limited_total = %v, want 1", got)
	}
}

func TestHandlerServesHTTPRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/items", 200, 25*time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "campusfind_http_requests_total") {
		t.Error("scrape output missing campusfind_http_requests_total")
	}
	if !strings.Contains(string(body), "campusfind_http_request_duration_seconds") {
		t.Error("scrape output missing campusfind_http_request_duration_seconds")
	}
}
