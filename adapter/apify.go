package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/ratelimiter"
	"github.com/seatsniper/engine/resilience"
)

const (
	apifyPollInterval    = 5 * time.Second
	apifyMaxPollAttempts = 24 // ~2 minutes at apifyPollInterval
)

// ApifyGoogleEventsAdapter is the Google-events fallback: it starts an
// Apify actor run, polls its status, then fetches the resulting dataset.
// It never serves individual listings — Google's event surface doesn't
// expose per-seat inventory — so GetEventListings always returns empty.
type ApifyGoogleEventsAdapter struct {
	token     string
	actorID   string
	baseURL   string
	client    *guardedClient
	disabledF func(reason string)

	healthMu sync.RWMutex
	health   HealthStatus
}

func NewApifyGoogleEventsAdapter(token, actorID, baseURL string, limiter *ratelimiter.Limiter, envCfg resilience.Config, logger zerolog.Logger, onDisable func(reason string)) *ApifyGoogleEventsAdapter {
	return &ApifyGoogleEventsAdapter{
		token:     token,
		actorID:   actorID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		disabledF: onDisable,
		client: &guardedClient{
			http:     newHTTPClient(),
			limiter:  limiter,
			envelope: resilience.New("apify-google-events", envCfg, logger),
		},
	}
}

func (a *ApifyGoogleEventsAdapter) Name() string { return "apify-google-events" }

func (a *ApifyGoogleEventsAdapter) Initialize(ctx context.Context) error {
	if a.token == "" || a.actorID == "" {
		return model.NewClassifiedError(model.CategoryAuthFailed, "apify token or actor id missing", model.ErrCredentialsInvalid)
	}
	return nil
}

type apifyRunResponse struct {
	Data struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		DefaultDsID string `json:"defaultDatasetId"`
	} `json:"data"`
}

type apifyEventItem struct {
	Title    string  `json:"title"`
	Venue    string  `json:"venue"`
	City     string  `json:"city"`
	DateText string  `json:"date"`
	Link     string  `json:"link"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

func (a *ApifyGoogleEventsAdapter) SearchEvents(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error) {
	start := time.Now()
	events, err := a.runAndFetch(ctx, params)
	a.recordHealth(start, err)

	if ce, ok := model.AsClassified(err); ok &&
		(ce.Category == model.CategoryAuthFailed || isCreditsExhausted(ce)) {
		if a.disabledF != nil {
			a.disabledF(ce.Error())
		}
	}
	return events, err
}

func isCreditsExhausted(ce *model.ClassifiedError) bool {
	return strings.Contains(strings.ToLower(ce.Message), "credit")
}

func (a *ApifyGoogleEventsAdapter) runAndFetch(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error) {
	runID, datasetID, err := a.startRun(ctx, params)
	if err != nil {
		return nil, err
	}

	datasetID, err = a.pollUntilDone(ctx, runID, datasetID)
	if err != nil {
		return nil, err
	}

	items, err := a.fetchDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	out := make([]model.NormalizedEvent, 0, len(items))
	for _, item := range items {
		ne, ok := a.normalizeEvent(item)
		if !ok {
			continue // no resolvable start time
		}
		out = append(out, ne)
	}
	return out, nil
}

func (a *ApifyGoogleEventsAdapter) startRun(ctx context.Context, params SearchParams) (runID, datasetID string, err error) {
	q := url.Values{}
	q.Set("token", a.token)

	body := fmt.Sprintf(`{"city":%q,"keyword":%q}`, params.City, params.Keyword)
	req, err := newGetRequest(ctx, fmt.Sprintf("%s/acts/%s/runs?%s", a.baseURL, a.actorID, q.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Method = "POST"
	req.Body = io.NopCloser(strings.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil }
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")

	var resp apifyRunResponse
	if err := a.client.doJSON(ctx, req, &resp); err != nil {
		return "", "", err
	}
	return resp.Data.ID, resp.Data.DefaultDsID, nil
}

func (a *ApifyGoogleEventsAdapter) pollUntilDone(ctx context.Context, runID, datasetID string) (string, error) {
	q := url.Values{}
	q.Set("token", a.token)

	for attempt := 0; attempt < apifyMaxPollAttempts; attempt++ {
		req, err := newGetRequest(ctx, fmt.Sprintf("%s/actor-runs/%s?%s", a.baseURL, runID, q.Encode()))
		if err != nil {
			return "", err
		}

		var resp apifyRunResponse
		if err := a.client.doJSON(ctx, req, &resp); err != nil {
			return "", err
		}

		switch resp.Data.Status {
		case "SUCCEEDED":
			if resp.Data.DefaultDsID != "" {
				return resp.Data.DefaultDsID, nil
			}
			return datasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", model.NewClassifiedError(model.CategoryServerError, "apify run ended in status "+resp.Data.Status, nil)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(apifyPollInterval):
		}
	}
	return "", model.NewClassifiedError(model.CategoryTimeout, "apify run did not finish within the poll budget", nil)
}

func (a *ApifyGoogleEventsAdapter) fetchDataset(ctx context.Context, datasetID string) ([]apifyEventItem, error) {
	q := url.Values{}
	q.Set("token", a.token)

	req, err := newGetRequest(ctx, fmt.Sprintf("%s/datasets/%s/items?%s", a.baseURL, datasetID, q.Encode()))
	if err != nil {
		return nil, err
	}

	var items []apifyEventItem
	if err := a.client.doJSON(ctx, req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *ApifyGoogleEventsAdapter) normalizeEvent(item apifyEventItem) (model.NormalizedEvent, bool) {
	dt, ok := ResolveDateTime("", "", "", item.DateText)
	if !ok {
		return model.NormalizedEvent{}, false
	}
	return model.NormalizedEvent{
		Platform:   a.Name(),
		PlatformID: hashLink(item.Link),
		Name:       item.Title,
		Venue:      model.Venue{Name: item.Venue, City: item.City},
		DateTime:   dt,
		Category:   InferCategory(item.Title),
		URL:        item.Link,
		PriceRange: PriceRangeFrom(item.MinPrice, item.MaxPrice, "USD"),
	}, true
}

// hashLink derives a stable platform id for an item the Google-events feed
// doesn't assign one to.
func hashLink(link string) string {
	h := sha256.Sum256([]byte(link))
	return hex.EncodeToString(h[:16])
}

// GetEventListings always returns empty: Google's event surface carries no
// per-seat inventory, only event-level metadata.
func (a *ApifyGoogleEventsAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	return nil, nil
}

func (a *ApifyGoogleEventsAdapter) recordHealth(start time.Time, err error) {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()
	a.health = HealthStatus{
		Healthy:     err == nil,
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: time.Now(),
	}
	if err != nil {
		a.health.ErrorMessage = err.Error()
	}
}

func (a *ApifyGoogleEventsAdapter) HealthStatus() HealthStatus {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	hs := a.health
	hs.CircuitState = string(a.client.envelope.CircuitState())
	return hs
}
