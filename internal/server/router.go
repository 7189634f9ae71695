// internal/server/router.go
package server

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "propoflash/internal/common/errors"
	"propoflash/internal/common/logger"
	"propoflash/pkg/registry"
)

const (
	apiName      = "PropoFlash API"
	readyTimeout = 2 * time.Second
)

// Pinger is a backing store the readiness probe checks.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type Deps struct {
	Chat           http.Handler
	Style          http.Handler
	Registry       *registry.ActivityRegistry
	Stores         []Pinger
	AllowedOrigins []string
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

type indexResponse struct {
	OK        bool     `json:"ok"`
	Name      string   `json:"name"`
	Endpoints []string `json:"endpoints"`
	Runtime   string   `json:"runtime"`
}

func NewHandler(d Deps) http.Handler {
	if d.Registry == nil {
		d.Registry = registry.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(observeDuration)
	r.Use(accessLog(d.Logger))
	r.Use(corsHandler(d.AllowedOrigins))

	index := indexHandler(d.Registry)
	r.Get("/api", index)
	r.Get("/api/health", index)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", readyHandler(d.Stores))
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	if d.Chat != nil {
		r.Handle("/api/chat", d.Chat)
	}
	if d.Style != nil {
		r.Handle("/api/style", d.Style)
	}
	return r
}

func indexHandler(reg *registry.ActivityRegistry) http.HandlerFunc {
	body := indexResponse{
		OK:        true,
		Name:      apiName,
		Endpoints: reg.Endpoints(),
		Runtime:   runtime.Version(),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteJSON(w, http.StatusOK, body)
	}
}

func readyHandler(stores []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			failed = map[string]string{}
		)
		for _, s := range stores {
			wg.Add(1)
			go func(s Pinger) {
				defer wg.Done()
				if err := s.Ping(ctx); err != nil {
					mu.Lock()
					failed[s.Name()] = err.Error()
					mu.Unlock()
				}
			}(s)
		}
		wg.Wait()

		if len(failed) > 0 {
			apperrors.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not ready",
				"failed": failed,
			})
			return
		}
		apperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
