package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                         "/",
		"/metrics":                 "/metrics",
		"/v1/customers/42":         "/v1/customers/:id",
		"/v1/customers/42/":        "/v1/customers/:id/",
		"/v1/order-items/batch":    "/v1/order-items/batch",
		"/v1/change-logs?limit=10": "/v1/change-logs",
		"/v1/customers/abc":        "/v1/customers/abc",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestMutationAndBuildMetrics(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("Customer", "create", "ok"))
	ObserveMutation("Customer", "create", "ok")
	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("Customer", "create", "ok")); got != before+1 {
		t.Fatalf("mutations counter = %v, want %v", got, before+1)
	}

	SetBuildInfo("1.0.0", "abc")
	SetBuildInfo("1.0.1", "def")
	if n := testutil.CollectAndCount(buildInfo); n != 1 {
		t.Fatalf("build_info series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("1.0.1", "def")); got != 1 {
		t.Fatalf("build_info = %v, want 1", got)
	}

	SetReady(false)
	if got := testutil.ToFloat64(readyGauge); got != 0 {
		t.Fatalf("ready = %v", got)
	}
	SetReady(true)
	if got := testutil.ToFloat64(readyGauge); got != 1 {
		t.Fatalf("ready = %v", got)
	}
}
