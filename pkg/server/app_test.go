package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Veritas/internal/handler/api"
	"Veritas/internal/handler/realtime"
	"Veritas/internal/service/ratelimit"
	"Veritas/internal/services/predictor"
	"Veritas/internal/usecase"
	"Veritas/pkg/config"
	"Veritas/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{ calls int }

func (p *nopPublisher) PublishMessage(context.Context, string, interface{}) error {
	p.calls++
	return nil
}

func newTestApp(t *testing.T, mutate func(*Deps)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second

	static := predictor.NewStaticPredictor(0.5, 0.4, 0.8)
	svc := usecase.NewRiskService(cfg, static, static, nil, metrics.NewWithRegisterer(prometheus.NewRegistry()), nil)
	d := Deps{
		Config:      cfg,
		RiskHandler: api.NewRiskEchoHandler(nil, svc),
		Hub:         realtime.NewHub(nil, 4),
		Limiter:     ratelimit.New(1000, 1000, time.Minute),
	}
	if mutate != nil {
		mutate(&d)
	}
	return New(d)
}

func TestNewMountsRoutes(t *testing.T) {
	app := newTestApp(t, nil)
	e := app.HTTPServer().Echo()

	for _, path := range []string{"/health", "/api/v1/risk-assessment", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Path] = true
	}
	assert.True(t, routes["/ws/verdicts"])
}

func TestNewWithoutHub(t *testing.T) {
	app := newTestApp(t, func(d *Deps) {
		d.Hub = nil
		d.Limiter = nil
	})

	rec := httptest.NewRecorder()
	app.HTTPServer().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/verdicts", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunReturnsOnCancel(t *testing.T) {
	pub := &nopPublisher{}
	app := newTestApp(t, func(d *Deps) { d.LogPublisher = pub })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// nothing was logged at error level, so nothing was shipped
	assert.Equal(t, 0, pub.calls)
}
