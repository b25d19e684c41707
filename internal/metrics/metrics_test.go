package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AuthEvent("login", OutcomeSuccess)
	m.requests.WithLabelValues("GET", "/", "200").Inc()
	m.duration.WithLabelValues("GET", "/").Observe(0.1)

	families, err := reg.Gather()
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, family := range families {
		registered[family.GetName()] = true
	}
	for _, name := range []string{
		"englix_http_requests_total",
		"englix_http_request_duration_seconds",
		"englix_auth_events_total",
	} {
		assert.True(t, registered[name], "metric %q should be registered", name)
	}
}

func TestMetrics_AuthEvent(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AuthEvent("login", OutcomeFailure)
	m.AuthEvent("login", OutcomeFailure)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeFailure)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeSuccess)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.AuthEvent("login", OutcomeSuccess) })

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/user/{id}/getUserByID", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/"+id+"/getUserByID", nil))
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/user/{id}/getUserByID", "404"))
	assert.Equal(t, float64(3), count)
}
