package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propoflash/internal/common/logger"
	"propoflash/internal/common/observability"
	"propoflash/pkg/registry"
)

type fakeStore struct {
	name string
	err  error
}

func (f fakeStore) Name() string                   { return f.name }
func (f fakeStore) Ping(ctx context.Context) error { return f.err }

func newTestHandler(t *testing.T, d Deps) http.Handler {
	t.Helper()
	d.Logger = logger.NewTestLogger(t)
	if d.Gatherer == nil {
		d.Gatherer = prometheus.NewRegistry()
	}
	return NewHandler(d)
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestIndex(t *testing.T) {
	h := newTestHandler(t, Deps{Registry: registry.Default()})

	for _, path := range []string{"/api", "/api/health"} {
		rec := serve(h, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code)

		var body indexResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.OK)
		assert.Equal(t, "PropoFlash API", body.Name)
		assert.Equal(t, []string{"/api/chat", "/api/style"}, body.Endpoints)
		assert.NotEmpty(t, body.Runtime)
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newTestHandler(t, Deps{Stores: []Pinger{fakeStore{name: "redis"}}})
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ready").Code)

	h = newTestHandler(t, Deps{Stores: []Pinger{
		fakeStore{name: "redis"},
		fakeStore{name: "postgres", err: errors.New("connection refused")},
	}})
	rec := serve(h, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "postgres")
	assert.NotContains(t, rec.Body.String(), "\"redis\"")
}

func TestRoutesReachHandlers(t *testing.T) {
	var gotID string
	chat := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = observability.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	h := newTestHandler(t, Deps{Chat: chat})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "abc", gotID)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/api/style").Code)
}

func TestRequestIDMinted(t *testing.T) {
	h := newTestHandler(t, Deps{})
	rec := serve(h, http.MethodGet, "/health")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, Deps{})
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://any.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Less(t, rec.Code, 300, "preflight answered by the CORS layer")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, rec.Body.String())

	h = newTestHandler(t, Deps{AllowedOrigins: []string{"https://app.example.com"}})
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Expose-Headers")), "x-propoflash-degraded")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := serve(newTestHandler(t, Deps{Gatherer: reg}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")
}
