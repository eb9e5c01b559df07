package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seawatch/trackwatch/internal/alerts"
	"github.com/seawatch/trackwatch/internal/auth"
	"github.com/seawatch/trackwatch/internal/bus"
	"github.com/seawatch/trackwatch/internal/replay"
	"github.com/seawatch/trackwatch/internal/session"
	"github.com/seawatch/trackwatch/internal/transport/ws"
)

// NewServer assembles the full control-surface mux: replay control,
// alert review, live event subscription, and the Prometheus metrics
// endpoint, wrapped in request-id and API-key middleware in the
// teacher's Wrap-the-whole-mux style.
func NewServer(authr *auth.Authenticator, driver *replay.Driver, alertRepo *alerts.Repository, b *bus.Bus) http.Handler {
	handlers := NewHandlers(driver, alertRepo)
	hub := ws.NewHub(b)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /replay/start", handlers.StartReplay)
	mux.HandleFunc("POST /replay/stop", handlers.StopReplay)
	mux.HandleFunc("GET /replay/status", handlers.ReplayStatus)
	mux.HandleFunc("PATCH /alerts/{id}/status", handlers.UpdateAlertStatus)
	mux.HandleFunc("GET /events", hub.ServeHTTP)

	authMiddleware := NewAuthMiddleware(authr)

	top := http.NewServeMux()
	top.Handle("GET /metrics", promhttp.Handler()) // scraped by infra, not behind the operator API key
	top.Handle("/", authMiddleware.Wrap(mux))

	return session.Middleware(top)
}
