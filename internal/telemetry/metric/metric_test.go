package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

func TestRegistry_Observers(t *testing.T) {
	r := NewRegistry()

	r.Broadcast(domain.KindCore, 3)
	r.Broadcast(domain.KindCore, 2)
	r.Broadcast(domain.KindApp, 0)
	r.SendDropped()
	r.RelayLooped()
	r.RelayLooped()
	r.RemoteCallFailed("app.flush")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"core broadcasts", testutil.ToFloat64(r.Broadcasts.WithLabelValues("core")), 2},
		{"core deliveries", testutil.ToFloat64(r.Deliveries.WithLabelValues("core")), 5},
		{"app broadcasts", testutil.ToFloat64(r.Broadcasts.WithLabelValues("app")), 1},
		{"drops", testutil.ToFloat64(r.SendsDropped), 1},
		{"loops", testutil.ToFloat64(r.RelayLoops), 2},
		{"failures", testutil.ToFloat64(r.RemoteCallFails.WithLabelValues("app.flush")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRegistry_ObserveRequest(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest(http.MethodPost, "POST /section", 200, 5*time.Millisecond)
	r.ObserveRequest(http.MethodPost, "POST /section", 400, time.Millisecond)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("POST", "POST /section", "400")); got != 1 {
		t.Errorf("requests{code=400} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.RequestDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector(t *testing.T) {
	sections := 4
	c := NewCollector(CounterFunc(func() int { return sections }), CounterFunc(func() int { return 1 }), nil, nil)

	if got := testutil.CollectAndCount(c); got != 2 {
		t.Errorf("CollectAndCount() = %d, want 2", got)
	}

	expected := `
# HELP ovecore_registry_sections Live sections in the registry
# TYPE ovecore_registry_sections gauge
ovecore_registry_sections 4
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "ovecore_registry_sections"); err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewCollector(CounterFunc(func() int { return 7 }), nil, nil, nil))
	r.SendDropped()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"ovecore_registry_sections 7",
		"ovecore_hub_sends_dropped_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
