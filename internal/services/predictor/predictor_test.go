package predictor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	"Veritas/pkg/cache"
	"Veritas/pkg/config"
	"Veritas/pkg/logger"
)

func newTestPredictor(t *testing.T, h http.HandlerFunc, tune func(*config.Config)) (*HTTPPredictor, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Predictor.URL = srv.URL
	cfg.Predictor.RetryAttempts = 3
	if tune != nil {
		tune(cfg)
	}
	p := NewHTTPPredictor(cfg, logger.Nop())
	p.base.backoff = time.Millisecond
	return p, &hits
}

func TestHTTPPredictorDecodesAssessment(t *testing.T) {
	p, hits := newTestPredictor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, riskAssessmentPath, r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"risk_score":0.42,"liquidity_score":0.77,"confidence":0.9,"model_version":"v1.2.0-lstm","timestamp":1700000000,"metadata":{"tvl":1500000,"avg_default_rate":0.03}}`))
	}, nil)

	m, err := p.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.42, m.RiskScore)
	assert.Equal(t, 0.77, m.LiquidityScore)
	assert.Equal(t, 0.9, m.Confidence)
	assert.Equal(t, "v1.2.0-lstm", m.ModelVersion)
	assert.Equal(t, int64(1700000000), m.Timestamp)
	assert.Equal(t, 1_500_000.0, m.Metadata["tvl"])
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestHTTPPredictorRetriesTransientFailures(t *testing.T) {
	var calls int32
	p, hits := newTestPredictor(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"risk_score":0.1,"liquidity_score":0.2,"confidence":0.3}`))
	}, nil)
	p.now = func() time.Time { return time.Unix(42, 0) }

	m, err := p.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.1, m.RiskScore)
	assert.Equal(t, int64(42), m.Timestamp, "missing timestamp is filled in")
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestHTTPPredictorDoesNotRetryClientErrors(t *testing.T) {
	p, hits := newTestPredictor(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad window"}`, http.StatusBadRequest)
	}, nil)

	_, err := p.Predict(context.Background())
	require.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestHTTPPredictorRejectsMalformedAssessment(t *testing.T) {
	p, _ := newTestPredictor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"risk_score":1.5,"liquidity_score":0.2,"confidence":0.3}`))
	}, nil)

	_, err := p.Predict(context.Background())
	require.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
	assert.Contains(t, err.Error(), "risk_score")

	p2, _ := newTestPredictor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}, nil)
	_, err = p2.Predict(context.Background())
	assert.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
}

func TestHTTPPredictorBreakerOpens(t *testing.T) {
	p, hits := newTestPredictor(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}, func(cfg *config.Config) {
		cfg.Predictor.RetryAttempts = 1
		cfg.Predictor.Breaker.ConsecutiveFailures = 2
		cfg.Predictor.Breaker.OpenTimeout = time.Minute
	})

	for i := 0; i < 2; i++ {
		_, err := p.Predict(context.Background())
		require.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
	}
	assert.Equal(t, gobreaker.StateOpen, p.BreakerState())

	_, err := p.Predict(context.Background())
	require.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestHTTPPredictorHealth(t *testing.T) {
	p, _ := newTestPredictor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","model_version":"v1.2.0-lstm","timestamp":"2024-01-01T00:00:00"}`))
	}, nil)
	p.now = func() time.Time { return time.Unix(7, 0) }

	h, err := p.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.HealthStatus{Status: "healthy", ModelVersion: "v1.2.0-lstm", Timestamp: 7}, h)
}

type slowPredictor struct {
	inFlight, maxInFlight int32
}

func (s *slowPredictor) Predict(ctx context.Context) (models.MarketAssessment, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxInFlight, m, n) {
			break
		}
	}
	time.Sleep(3 * time.Millisecond)
	return models.MarketAssessment{RiskScore: 0.5, LiquidityScore: 0.5, Confidence: 0.5}, nil
}

func TestSerializedPredictorAllowsOneInFlight(t *testing.T) {
	locks := cache.NewMemoryCache()
	defer locks.Close()
	inner := &slowPredictor{}
	sp := NewSerializedPredictor(inner, locks, time.Second, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sp.Predict(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.maxInFlight))
}

func TestSerializedPredictorTimesOutAsUpstreamError(t *testing.T) {
	locks := cache.NewMemoryCache()
	defer locks.Close()
	_, ok, err := locks.TryLock(context.Background(), lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	sp := NewSerializedPredictor(NewStaticPredictor(0.1, 0.2, 0.3), locks, time.Second, logger.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sp.Predict(ctx)
	assert.ErrorIs(t, err, domsvc.ErrUpstreamPredictor)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFactory(t *testing.T) {
	cfg := config.Default()
	cfg.Predictor.Mode = "static"
	cfg.Predictor.Static.RiskScore = 0.3
	cfg.Predictor.Static.LiquidityScore = 0.6
	cfg.Predictor.Static.Confidence = 0.8

	b, err := NewBackend(cfg, logger.Nop())
	require.NoError(t, err)
	m, err := b.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, m.LiquidityScore)
	assert.Equal(t, staticModelVersion, m.ModelVersion)

	locks := cache.NewMemoryCache()
	defer locks.Close()
	assert.IsType(t, &SerializedPredictor{}, Serialize(b, cfg, locks, logger.Nop()))

	cfg.Predictor.Serialize = "none"
	assert.Same(t, b, Serialize(b, cfg, locks, logger.Nop()))

	cfg.Predictor.Mode = "grpc"
	_, err = NewBackend(cfg, logger.Nop())
	assert.Error(t, err)
}
