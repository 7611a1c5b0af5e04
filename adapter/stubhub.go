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
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/ratelimiter"
	"github.com/seatsniper/engine/resilience"
)

// StubHubAdapter talks to the StubHub Catalog API using OAuth2
// client-credentials, scope "read:events". Every call attaches a bearer
// token managed by a TokenManager.
type StubHubAdapter struct {
	clientID     string
	clientSecret string
	authURL      string
	baseURL      string
	client       *guardedClient
	tokens       *TokenManager

	healthMu sync.RWMutex
	health   HealthStatus
}

// NewStubHubAdapter builds a StubHub adapter. authURL is the full OAuth2
// token endpoint URL.
func NewStubHubAdapter(clientID, clientSecret, authURL, baseURL string, limiter *ratelimiter.Limiter, envCfg resilience.Config, logger zerolog.Logger) *StubHubAdapter {
	a := &StubHubAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      strings.TrimRight(authURL, "/"),
		baseURL:      strings.TrimRight(baseURL, "/"),
		client: &guardedClient{
			http:     newHTTPClient(),
			limiter:  limiter,
			envelope: resilience.New("stubhub", envCfg, logger),
		},
	}
	a.tokens = NewTokenManager(a.fetchToken)
	return a
}

func (a *StubHubAdapter) Name() string { return "stubhub" }

// fetchToken performs the client-credentials exchange via
// oauth2/clientcredentials, behind the adapter's rate limiter and on its
// pooled HTTP client. The TokenManager above it owns the refresh margin,
// single-flight coalescing, and invalidate-on-401 behavior.
func (a *StubHubAdapter) fetchToken(ctx context.Context) (string, time.Duration, error) {
	if err := a.client.limiter.Acquire(ctx); err != nil {
		return "", 0, err
	}

	cc := clientcredentials.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		TokenURL:     a.authURL,
		Scopes:       []string{"read:events"},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client.http)
	tok, err := cc.Token(ctx)
	if err != nil {
		return "", 0, model.NewClassifiedError(model.CategoryAuthFailed, "stubhub token exchange failed", err)
	}
	return tok.AccessToken, time.Until(tok.Expiry), nil
}

func (a *StubHubAdapter) Initialize(ctx context.Context) error {
	if a.clientID == "" || a.clientSecret == "" {
		return model.NewClassifiedError(model.CategoryAuthFailed, "stubhub credentials missing", model.ErrCredentialsInvalid)
	}
	if _, err := a.tokens.EnsureValid(ctx); err != nil {
		return model.NewClassifiedError(model.CategoryAuthFailed, "stubhub credentials rejected", model.ErrCredentialsInvalid)
	}
	return nil
}

type stubhubSearchResponse struct {
	Events []stubhubEvent `json:"events"`
}

type stubhubEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"webURL"`
	EventDate string `json:"eventDateUTC"`
	Category  string `json:"categoryName"`
	Venue     struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"venue"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// authorizedGet runs req through the rate limiter + envelope with a bearer
// token attached. On an auth failure it invalidates the token and returns
// the error without retrying; the next call fetches a fresh token.
func (a *StubHubAdapter) authorizedGet(ctx context.Context, requestURL string, out interface{}) error {
	token, err := a.tokens.EnsureValid(ctx)
	if err != nil {
		return err
	}

	req, err := newGetRequest(ctx, requestURL)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	err = a.client.doJSON(ctx, req, out)
	if ce, ok := model.AsClassified(err); ok && ce.Category == model.CategoryAuthFailed {
		a.tokens.Invalidate()
	}
	return err
}

func (a *StubHubAdapter) SearchEvents(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("city", params.City)
	if params.Keyword != "" {
		q.Set("q", params.Keyword)
	}
	size := params.Limit
	if size <= 0 {
		size = 50
	}
	q.Set("rows", strconv.Itoa(size))

	var resp stubhubSearchResponse
	err := a.authorizedGet(ctx, a.baseURL+"/search/catalog/events/v3?"+q.Encode(), &resp)
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

func (a *StubHubAdapter) normalizeEvent(e stubhubEvent) (model.NormalizedEvent, bool) {
	dt, ok := ResolveDateTime(e.EventDate, "", "", "")
	if !ok {
		return model.NormalizedEvent{}, false
	}
	return model.NormalizedEvent{
		Platform:   a.Name(),
		PlatformID: e.ID,
		Name:       e.Name,
		Venue: model.Venue{
			ID: e.Venue.ID, Name: e.Venue.Name, City: e.Venue.City, State: e.Venue.State,
		},
		DateTime:   dt,
		Category:   InferCategory(e.Category),
		URL:        e.URL,
		PriceRange: PriceRangeFrom(e.MinPrice, e.MaxPrice, "USD"),
	}, true
}

type stubhubListingsResponse struct {
	Listings []stubhubListing `json:"listings"`
}

type stubhubListing struct {
	ID           string  `json:"listingId"`
	SectionName  string  `json:"sectionName"`
	Row          string  `json:"row"`
	Quantity     int     `json:"quantity"`
	CurrentPrice float64 `json:"currentPrice"`
	TotalPrice   float64 `json:"totalListingPrice"`
	DeliveryType string  `json:"deliveryType"`
	SellerRating float64 `json:"sellerRating"`
}

func (a *StubHubAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	start := time.Now()

	var resp stubhubListingsResponse
	requestURL := fmt.Sprintf("%s/search/inventory/v2?eventId=%s", a.baseURL, platformEventID)
	err := a.authorizedGet(ctx, requestURL, &resp)
	a.recordHealth(start, err)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listings := make([]model.NormalizedListing, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		rating := l.SellerRating
		listings = append(listings, model.NormalizedListing{
			Platform:          a.Name(),
			PlatformListingID: l.ID,
			EventID:           platformEventID,
			Section:           l.SectionName,
			Row:               l.Row,
			Quantity:          l.Quantity,
			PricePerTicket:    l.CurrentPrice,
			TotalPrice:        l.TotalPrice,
			DeliveryType:      InferDeliveryType(l.DeliveryType),
			SellerRating:      &rating,
			CapturedAt:        now,
		})
	}
	return listings, nil
}

func (a *StubHubAdapter) recordHealth(start time.Time, err error) {
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

func (a *StubHubAdapter) HealthStatus() HealthStatus {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	hs := a.health
	hs.CircuitState = string(a.client.envelope.CircuitState())
	return hs
}
