package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/ratelimiter"
	"github.com/seatsniper/engine/resilience"
)

// SeatGeekAdapter talks to the SeatGeek API v2, authenticating with
// client_id/client_secret query parameters on every request.
type SeatGeekAdapter struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *guardedClient

	healthMu sync.RWMutex
	health   HealthStatus
}

func NewSeatGeekAdapter(clientID, clientSecret, baseURL string, limiter *ratelimiter.Limiter, envCfg resilience.Config, logger zerolog.Logger) *SeatGeekAdapter {
	return &SeatGeekAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client: &guardedClient{
			http:     newHTTPClient(),
			limiter:  limiter,
			envelope: resilience.New("seatgeek", envCfg, logger),
		},
	}
}

func (a *SeatGeekAdapter) Name() string { return "seatgeek" }

func (a *SeatGeekAdapter) authParams() url.Values {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("client_secret", a.clientSecret)
	return q
}

func (a *SeatGeekAdapter) Initialize(ctx context.Context) error {
	if a.clientID == "" || a.clientSecret == "" {
		return model.NewClassifiedError(model.CategoryAuthFailed, "seatgeek credentials missing", model.ErrCredentialsInvalid)
	}
	_, err := a.SearchEvents(ctx, SearchParams{City: "New York", Limit: 1})
	if ce, ok := model.AsClassified(err); ok && ce.Category == model.CategoryAuthFailed {
		return model.NewClassifiedError(model.CategoryAuthFailed, "seatgeek credentials rejected", model.ErrCredentialsInvalid)
	}
	return nil
}

type seatgeekSearchResponse struct {
	Events []seatgeekEvent `json:"events"`
}

type seatgeekEvent struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	DatetimeL string `json:"datetime_local"`
	Type      string `json:"type"`
	Venue     struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		City      string `json:"city"`
		State     string `json:"state"`
	} `json:"venue"`
	Stats struct {
		LowestPrice  float64 `json:"lowest_price"`
		HighestPrice float64 `json:"highest_price"`
	} `json:"stats"`
}

func (a *SeatGeekAdapter) SearchEvents(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error) {
	start := time.Now()

	q := a.authParams()
	q.Set("venue.city", params.City)
	if params.Keyword != "" {
		q.Set("q", params.Keyword)
	}
	per := params.Limit
	if per <= 0 {
		per = 50
	}
	q.Set("per_page", strconv.Itoa(per))

	req, err := newGetRequest(ctx, a.baseURL+"/events?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp seatgeekSearchResponse
	err = a.client.doJSON(ctx, req, &resp)
	a.recordHealth(start, err)
	if err != nil {
		return nil, err
	}

	events := make([]model.NormalizedEvent, 0, len(resp.Events))
	for _, e := range resp.Events {
		ne, ok := a.normalizeEvent(e)
		if !ok {
			continue // no resolvable start time
		}
		events = append(events, ne)
	}
	return events, nil
}

func (a *SeatGeekAdapter) normalizeEvent(e seatgeekEvent) (model.NormalizedEvent, bool) {
	dt, _ := ResolveDateTime("", "", "", e.DatetimeL)
	if dt.IsZero() {
		if parsed, err := time.Parse("2006-01-02T15:04:05", e.DatetimeL); err == nil {
			dt = parsed.UTC()
		}
	}
	if dt.IsZero() {
		return model.NormalizedEvent{}, false
	}

	return model.NormalizedEvent{
		Platform:   a.Name(),
		PlatformID: strconv.FormatInt(e.ID, 10),
		Name:       e.Title,
		Venue: model.Venue{
			ID: strconv.FormatInt(e.Venue.ID, 10), Name: e.Venue.Name,
			City: e.Venue.City, State: e.Venue.State,
		},
		DateTime:   dt,
		Category:   InferCategory(e.Type),
		URL:        e.URL,
		PriceRange: PriceRangeFrom(e.Stats.LowestPrice, e.Stats.HighestPrice, "USD"),
	}, true
}

type seatgeekListingsResponse struct {
	Listings []seatgeekListing `json:"listings"`
}

type seatgeekListing struct {
	ID         int64   `json:"id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	DealScore  float64 `json:"deal_score"`
	Delivery   string  `json:"delivery_type"`
	DeepLink   string  `json:"deep_link"`
}

func (a *SeatGeekAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	start := time.Now()

	q := a.authParams()
	req, err := newGetRequest(ctx, fmt.Sprintf("%s/events/%s/listings?%s", a.baseURL, platformEventID, q.Encode()))
	if err != nil {
		return nil, err
	}

	var resp seatgeekListingsResponse
	err = a.client.doJSON(ctx, req, &resp)
	a.recordHealth(start, err)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listings := make([]model.NormalizedListing, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		listings = append(listings, model.NormalizedListing{
			Platform:          a.Name(),
			PlatformListingID: strconv.FormatInt(l.ID, 10),
			EventID:           platformEventID,
			Section:           l.Section,
			Row:               l.Row,
			Quantity:          l.Quantity,
			PricePerTicket:    l.Price,
			TotalPrice:        l.Price * float64(l.Quantity),
			DeliveryType:      InferDeliveryType(l.Delivery),
			DeepLink:          l.DeepLink,
			CapturedAt:        now,
		})
	}
	return listings, nil
}

func (a *SeatGeekAdapter) recordHealth(start time.Time, err error) {
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

func (a *SeatGeekAdapter) HealthStatus() HealthStatus {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	hs := a.health
	hs.CircuitState = string(a.client.envelope.CircuitState())
	return hs
}
