package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/drugs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/v1/drugs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	notFound := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/drugs/{id}", "404")
	ok := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/drugs", "200")
	beforeNotFound := testutil.ToFloat64(notFound)
	beforeOK := testutil.ToFloat64(ok)

	for _, path := range []string{"/v1/drugs/1", "/v1/drugs/2", "/v1/drugs"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(notFound) - beforeNotFound; got != 2 {
		t.Errorf("Expected 2 requests labelled by pattern, got %v", got)
	}
	if got := testutil.ToFloat64(ok) - beforeOK; got != 1 {
		t.Errorf("Expected implicit 200 to be recorded, got %v", got)
	}
	if got := testutil.ToFloat64(HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no requests in flight, got %v", got)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := HTTPRequestTotals.WithLabelValues(http.MethodPost, unmatchedRoute, "418")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/random/path", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("Expected request outside a router to use the unmatched label, got %v", got)
	}
}

func TestPipelineMetricsRegistered(t *testing.T) {
	DatasetLoads.WithLabelValues("drugs", "success")
	CachePersistFailures.WithLabelValues("drugs", "quota")

	if n := testutil.CollectAndCount(DatasetLoads); n == 0 {
		t.Error("Expected dataset load series to be collected")
	}
	if n := testutil.CollectAndCount(CachePersistFailures); n == 0 {
		t.Error("Expected persist failure series to be collected")
	}
}
