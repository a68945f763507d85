package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) *Server {
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GracefulShutdownDuration: time.Second,
	}, pingHandler{})
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(&api.HTTPServerConfig{})
	require.Error(t, err)
}

func TestRegisteredRoutes(t *testing.T) {
	srv := newTestServer(t)

	code, body := get(t, srv.Handler(), "/api/ping")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body)

	code, _ = get(t, srv.Handler(), "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDrainUndrain(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	code, body := get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "alive")

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)

	_, body = get(t, h, "/drain")
	assert.Contains(t, body, `"draining"`)
	_, body = get(t, h, "/drain")
	assert.Contains(t, body, "already draining")

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	// liveness is unaffected by draining
	code, _ = get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)

	_, body = get(t, h, "/undrain")
	assert.Contains(t, body, `"ready"`)
	_, body = get(t, h, "/undrain")
	assert.Contains(t, body, "already ready")

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}
