package common

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hallbook/internal/bootstrap"
	"hallbook/internal/events"
	"hallbook/pkg/app"
	"hallbook/pkg/client"
	"hallbook/pkg/config"
	"hallbook/pkg/logger"

	"github.com/stretchr/testify/require"
)

const (
	AdminEmail    = "admin@campus.edu"
	AdminPassword = "admin123"
)

// IntegrationTestSuite talks to a hall booking server over HTTP. It targets
// TEST_SERVER_URL when set and otherwise boots the full stack in process on
// the memory backends.
type IntegrationTestSuite struct {
	Config    *config.Config
	ServerURL string

	server *httptest.Server
	app    *app.Application
}

func NewIntegrationTestSuite(t *testing.T, serviceName string) *IntegrationTestSuite {
	t.Helper()

	if url := os.Getenv("TEST_SERVER_URL"); url != "" {
		cfg := config.Load(serviceName)
		s := &IntegrationTestSuite{Config: cfg, ServerURL: url}
		require.NoError(t, client.NewHttpClient(url).WaitForHealthy(30*time.Second))
		t.Cleanup(s.Teardown)
		return s
	}

	cfg := inProcessConfig()
	svc, err := bootstrap.NewServices(cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Identity.EnsureAdmin(context.Background()))

	publisher, err := events.NewPublisher(cfg, svc.Notifier(cfg))
	require.NoError(t, err)

	a := app.NewApplication(cfg)
	a.OnShutdown("event publisher", publisher.Close)
	a.SetApp(svc.Store, svc.Handlers(cfg, publisher)...)

	server := httptest.NewServer(a.Handler())
	s := &IntegrationTestSuite{Config: cfg, ServerURL: server.URL, server: server, app: a}
	t.Cleanup(s.Teardown)
	return s
}

func inProcessConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.StoreBackend = config.BackendMemory
	cfg.LockBackend = config.BackendNone
	cfg.EventsBackend = config.EventsInProcess
	cfg.RateLimitBackend = config.BackendNone
	cfg.BcryptCost = 4
	cfg.AdminEmail = AdminEmail
	cfg.AdminPassword = AdminPassword
	cfg.Log = logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	cfg.Client = client.NewClient()
	return cfg
}

// NewClient returns a fresh, unauthenticated client for the server.
func (s *IntegrationTestSuite) NewClient() *client.HttpClient {
	return client.NewHttpClient(s.ServerURL)
}

func (s *IntegrationTestSuite) Teardown() {
	if s.server != nil {
		s.server.Close()
		s.app.Shutdown()
		return
	}
	s.Config.GracefulShutdown()
}
