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

// ticketmasterFeed distinguishes the two Ticketmaster endpoints this
// adapter can be pointed at; both share auth and response shape.
type ticketmasterFeed string

const (
	FeedDiscovery ticketmasterFeed = "discovery"
	FeedTopPicks  ticketmasterFeed = "toppicks"
)

// TicketmasterAdapter talks to the Ticketmaster Discovery API v2 (or its
// Top Picks variant), authenticating with an apikey query parameter on
// every request.
type TicketmasterAdapter struct {
	feed    ticketmasterFeed
	apiKey  string
	baseURL string
	client  *guardedClient

	healthMu sync.RWMutex
	health   HealthStatus
}

// NewTicketmasterAdapter builds an adapter for the given feed.
func NewTicketmasterAdapter(feed ticketmasterFeed, apiKey, baseURL string, limiter *ratelimiter.Limiter, envCfg resilience.Config, logger zerolog.Logger) *TicketmasterAdapter {
	return &TicketmasterAdapter{
		feed:    feed,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &guardedClient{
			http:     newHTTPClient(),
			limiter:  limiter,
			envelope: resilience.New("ticketmaster-"+string(feed), envCfg, logger),
		},
	}
}

func (a *TicketmasterAdapter) Name() string {
	return "ticketmaster-" + string(a.feed)
}

// Initialize validates the API key with a minimal, cheap search call.
func (a *TicketmasterAdapter) Initialize(ctx context.Context) error {
	if a.apiKey == "" {
		return model.NewClassifiedError(model.CategoryAuthFailed, "ticketmaster api key missing", model.ErrCredentialsInvalid)
	}
	_, err := a.SearchEvents(ctx, SearchParams{City: "New York", Limit: 1})
	if err != nil {
		if ce, ok := model.AsClassified(err); ok && ce.Category == model.CategoryAuthFailed {
			return model.NewClassifiedError(model.CategoryAuthFailed, "ticketmaster credentials rejected", model.ErrCredentialsInvalid)
		}
	}
	return nil
}

type tmSearchResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Embedded struct {
		Venues []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			State struct {
				StateCode string `json:"stateCode"`
			} `json:"state"`
		} `json:"venues"`
	} `json:"_embedded"`
}

func (a *TicketmasterAdapter) SearchEvents(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("apikey", a.apiKey)
	q.Set("city", params.City)
	if params.Keyword != "" {
		q.Set("keyword", params.Keyword)
	}
	if !params.StartDate.IsZero() {
		q.Set("startDateTime", params.StartDate.UTC().Format("2006-01-02T15:04:05Z"))
	}
	if !params.EndDate.IsZero() {
		q.Set("endDateTime", params.EndDate.UTC().Format("2006-01-02T15:04:05Z"))
	}
	size := params.Limit
	if size <= 0 {
		size = 50
	}
	q.Set("size", strconv.Itoa(size))

	req, err := newGetRequest(ctx, a.baseURL+"/events.json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp tmSearchResponse
	err = a.client.doJSON(ctx, req, &resp)
	a.recordHealth(start, err)
	if err != nil {
		return nil, err
	}

	events := make([]model.NormalizedEvent, 0, len(resp.Embedded.Events))
	for _, e := range resp.Embedded.Events {
		ne, ok := a.normalizeEvent(e)
		if !ok {
			continue // no resolvable start time
		}
		events = append(events, ne)
	}
	return events, nil
}

func (a *TicketmasterAdapter) normalizeEvent(e tmEvent) (model.NormalizedEvent, bool) {
	dt, ok := ResolveDateTime(e.Dates.Start.DateTime, e.Dates.Start.LocalDate, e.Dates.Start.LocalTime, "")
	if !ok {
		return model.NormalizedEvent{}, false
	}

	classification := ""
	if len(e.Classifications) > 0 {
		classification = e.Classifications[0].Segment.Name + " " + e.Classifications[0].Genre.Name
	}

	var venue model.Venue
	if len(e.Embedded.Venues) > 0 {
		v := e.Embedded.Venues[0]
		venue = model.Venue{ID: v.ID, Name: v.Name, City: v.City.Name, State: v.State.StateCode}
	}

	var priceRange *model.PriceRange
	if len(e.PriceRanges) > 0 {
		pr := e.PriceRanges[0]
		priceRange = PriceRangeFrom(pr.Min, pr.Max, pr.Currency)
	}

	imageURL := ""
	if len(e.Images) > 0 {
		imageURL = e.Images[0].URL
	}

	return model.NormalizedEvent{
		Platform:   a.Name(),
		PlatformID: e.ID,
		Name:       e.Name,
		Venue:      venue,
		DateTime:   dt,
		Category:   InferCategory(classification),
		URL:        e.URL,
		ImageURL:   imageURL,
		PriceRange: priceRange,
	}, true
}

type tmListingsResponse struct {
	Embedded struct {
		Offers []tmOffer `json:"offers"`
	} `json:"_embedded"`
}

type tmOffer struct {
	ID         string  `json:"id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Fees       float64 `json:"fees"`
	DeliveryBy string  `json:"deliveryMethod"`
	URL        string  `json:"url"`
}

func (a *TicketmasterAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("apikey", a.apiKey)

	req, err := newGetRequest(ctx, fmt.Sprintf("%s/events/%s/offers.json?%s", a.baseURL, platformEventID, q.Encode()))
	if err != nil {
		return nil, err
	}

	var resp tmListingsResponse
	err = a.client.doJSON(ctx, req, &resp)
	a.recordHealth(start, err)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listings := make([]model.NormalizedListing, 0, len(resp.Embedded.Offers))
	for _, o := range resp.Embedded.Offers {
		listings = append(listings, model.NormalizedListing{
			Platform:          a.Name(),
			PlatformListingID: o.ID,
			EventID:           platformEventID,
			Section:           o.Section,
			Row:               o.Row,
			Quantity:          o.Quantity,
			PricePerTicket:    o.Price,
			TotalPrice:        o.Price*float64(o.Quantity) + o.Fees,
			Fees:              o.Fees,
			DeliveryType:      InferDeliveryType(o.DeliveryBy),
			DeepLink:          o.URL,
			CapturedAt:        now,
		})
	}
	return listings, nil
}

func (a *TicketmasterAdapter) recordHealth(start time.Time, err error) {
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

func (a *TicketmasterAdapter) HealthStatus() HealthStatus {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	hs := a.health
	hs.CircuitState = string(a.client.envelope.CircuitState())
	return hs
}
