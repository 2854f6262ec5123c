package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/products/{id}", "404")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCatalogOperation("add_one", "ok")
		m.RecordStorageFailure("write")
		m.SetCatalogSize(3)
		m.RecordAdminLogin("ok")
		m.RecordExport("xlsx")
	})
}

func TestHandlerExposesCatalogCounters(t *testing.T) {
	m := New("test")
	m.RecordCatalogOperation("add_many", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_catalog_operations_total{operation="add_many",result="ok"} 1`)
}
