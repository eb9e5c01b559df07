package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seawatch/trackwatch/internal/alerts"
	"github.com/seawatch/trackwatch/internal/auth"
	"github.com/seawatch/trackwatch/internal/bus"
	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/cooldown"
	"github.com/seawatch/trackwatch/internal/replay"
	"github.com/seawatch/trackwatch/internal/rules"
	"github.com/seawatch/trackwatch/internal/storage"
	"github.com/seawatch/trackwatch/internal/testinfra"
)

func newTestServer(t *testing.T) http.Handler {
	db := testinfra.NewDB(t)
	cfg := &config.Config{
		TeleportSpeedKnotsShort:   60,
		TeleportSpeedKnotsMedium:  100,
		MaxTurnRateDegPerSec:      3,
		MinSpeedForTurnCheckKnots: 10,
		AlertCooldownSec:          300,
		ChunkSize:                 10000,
		TrackWindowSize:           5,
		StreamingThresholdMB:      50,
		OutOfOrderPolicy:          config.OutOfOrderSkipLatest,
		ValidAPIKeys:              []string{"test-key"},
	}
	gate := cooldown.New(db, nil, cfg.AlertCooldownSec)
	repo := storage.New(db, gate, cfg.OutOfOrderPolicy)
	b := bus.New(16)
	engine := rules.New(cfg)
	driver := replay.New(cfg, b, repo, gate, engine)
	alertRepo := alerts.New(db)
	authr := auth.New(cfg)

	return NewServer(authr, driver, alertRepo, b)
}

func TestServer_RejectsMissingAPIKey(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/replay/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ReplayStatus_WithValidKey(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/replay/status", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Running":false`)
}

func TestServer_StartReplay_RejectsMissingFile(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"path":"/nonexistent/file.csv","speedup":1000}`)
	req := httptest.NewRequest(http.MethodPost, "/replay/start", body)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusAccepted, rec.Code)
}

func TestServer_StartReplay_AcceptsValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(path, []byte("mmsi,timestamp,lat,lon\n"), 0o644))

	srv := newTestServer(t)
	body := strings.NewReader(`{"path":"` + path + `","speedup":1000}`)
	req := httptest.NewRequest(http.MethodPost, "/replay/start", body)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestServer_Metrics_DoesNotRequireAPIKey(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_UpdateAlertStatus_UnknownAlertFails(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"status":"reviewed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/alerts/999999/status", body)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
