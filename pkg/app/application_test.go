package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hallbook/pkg/client"
	"hallbook/pkg/config"
	"hallbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoHandler struct{}

func (echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Log:               logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
		Client:            client.NewClient(),
		RateLimitBackend:  config.BackendMemory,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		storage Pinger
		path    string
		want    int
	}{
		{"liveness ignores storage", pinger{err: errors.New("down")}, "/health", http.StatusOK},
		{"ready when storage answers", pinger{}, "/ready", http.StatusOK},
		{"not ready when storage fails", pinger{err: errors.New("down")}, "/ready", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewApplication(testConfig())
			a.SetApp(tt.storage)
			defer a.Shutdown()

			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(pinger{}, echoHandler{})
	closed := false
	a.OnShutdown("test-hook", func() error {
		closed = true
		return nil
	})

	send := func(contentType, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := send("application/json", `{"ok":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = send("text/plain", `{"ok":true}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = send("application/json", `{"ok":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, "rejected content types do not spend the budget")

	rec = send("application/json", `{"ok":true}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	a.Shutdown()
	assert.True(t, closed)
}
