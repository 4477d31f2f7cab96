package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestImportMetrics_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImportMetrics(reg)

	run := models.NewImportRun(time.Now().Add(-time.Hour), time.Now())
	run.Fetched = 4
	run.Imported = 2
	run.Failed = 1
	run.SkipDuplicate("A3")
	run.UnresolvedItems = []models.UnresolvedItem{{ExternalOrderID: "A1", OfferID: "SKU-X", Quantity: 1}}
	run.Complete()

	m.ObserveRun(run)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersTotal.WithLabelValues("imported")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ordersTotal.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ordersTotal.WithLabelValues("duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.unresolvedTotal))
	assert.Equal(t, float64(run.FinishedAt.Unix()), testutil.ToFloat64(m.lastRunTime))

	failed := models.NewImportRun(time.Now().Add(-time.Hour), time.Now())
	failed.FailFetch(errors.New("boom"))
	m.ObserveRun(failed)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("fetch_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/orders/{number}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, number := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+number, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/orders/{number}", http.MethodGet, "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.activeRequests))
}

func TestWorkerMetrics_ObserveMessage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)

	m.ObserveMessage("commands", nil, 10*time.Millisecond)
	m.ObserveMessage("commands", errors.New("bad"), 10*time.Millisecond)
	m.ObserveMessage("commands", nil, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.processed.WithLabelValues("commands", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.processed.WithLabelValues("commands", "error")))
}
