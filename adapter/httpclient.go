package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/ratelimiter"
	"github.com/seatsniper/engine/resilience"
)

// newHTTPClient builds a shared transport tuned for many short-lived JSON
// calls to one upstream host: one client per adapter instance.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Second}
}

// guardedClient bundles the shared HTTP client with the rate limiter and
// resilience envelope every outbound call to one marketplace must pass
// through.
type guardedClient struct {
	http     *http.Client
	limiter  *ratelimiter.Limiter
	envelope *resilience.Envelope
}

// doJSON performs req (whatever its method) through the rate limiter and
// resilience envelope, decoding a successful JSON body into out.
func (g *guardedClient) doJSON(ctx context.Context, req *http.Request, out interface{}) error {
	return g.envelope.Do(ctx, func(ctx context.Context) error {
		if err := g.limiter.Acquire(ctx); err != nil {
			return err
		}

		attempt := req.WithContext(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return model.NewClassifiedError(model.CategoryServerError, "rebuilding request body for retry", err)
			}
			attempt.Body = body
		}

		resp, err := g.http.Do(attempt)
		if err != nil {
			return resilience.ClassifyHTTP(0, "", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 300 {
			return resilience.ClassifyHTTP(resp.StatusCode, string(body), nil)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return model.NewClassifiedError(model.CategoryServerError, "malformed response body", err)
		}
		return nil
	})
}

func newGetRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
