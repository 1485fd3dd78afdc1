package predictor

import (
	"context"
	"fmt"
	"time"

	svcmetrics "Veritas/internal/service/metrics"
	xhttp "Veritas/pkg/http"
)

// HTTPServiceBase wraps the shared HTTP client for calls to the model service.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	backoff time.Duration
}

func NewHTTPServiceBase(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(opts...),
		backoff: 50 * time.Millisecond,
	}
}

// GetJSON issues a GET to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("predictor http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    b.baseURL + path,
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// GetJSONWithRetry retries transient failures up to attempts times with linear backoff.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.GetJSON(ctx, path, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.GetJSON(ctx, path, dest)
		if err == nil || !xhttp.IsTemporary(err) || i == attempts {
			return err
		}
		svcmetrics.PredictorRetries.Inc()
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
