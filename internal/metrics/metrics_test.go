package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/pickups/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/pickups/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/pickups/def", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `clothconnect_http_requests_total{method="GET",route="/api/pickups/{id}",status="404"} 2`)
	assert.NotContains(t, body, "abc")
	assert.Contains(t, body, "clothconnect_http_request_duration_seconds_bucket")
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.DonationEvent(EventCreated)
	m.DonationEvent(EventAccepted)
	m.DonationEvent(EventAccepted)
	m.ItemsCollected(10)
	m.ItemsDistributed(4)
	m.ItemsDistributed(0)

	body := scrape(t, m)
	assert.Contains(t, body, `clothconnect_donation_events_total{event="accepted"} 2`)
	assert.Contains(t, body, `clothconnect_donation_events_total{event="created"} 1`)
	assert.Contains(t, body, "clothconnect_items_collected_total 10")
	assert.Contains(t, body, "clothconnect_items_distributed_total 4")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DonationEvent(EventPicked)
		m.ItemsCollected(3)
		m.ItemsDistributed(3)
	})
}
