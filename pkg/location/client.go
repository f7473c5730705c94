// Package location is a client for the Nominatim search API.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mapagent/internal/metrics"
	"mapagent/pkg/upstream"
)

const providerName = "nominatim"

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Params selects one of the search forms: free text (Query), structured
// (Amenity + City), bounding box (Amenity + Viewbox + Bounded) or a plain
// geocode (Query + Limit=1 without Details).
type Params struct {
	Query   string
	Amenity string
	City    string
	Viewbox string
	Bounded bool
	Limit   int
	// Details adds addressdetails=1 and namedetails=1.
	Details bool
}

// Values encodes the params as a Nominatim query string.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("format", "json")
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Amenity != "" {
		v.Set("amenity", p.Amenity)
	}
	if p.City != "" {
		v.Set("city", p.City)
	}
	if p.Viewbox != "" {
		v.Set("viewbox", p.Viewbox)
	}
	if p.Bounded {
		v.Set("bounded", "1")
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Details {
		v.Set("addressdetails", "1")
		v.Set("namedetails", "1")
	}
	return v
}

// Viewbox formats a square box of halfWidth degrees around a point, in the
// "left,top,right,bottom" order Nominatim expects.
func Viewbox(lat, lon, halfWidth float64) string {
	return fmt.Sprintf("%v,%v,%v,%v", lon-halfWidth, lat+halfWidth, lon+halfWidth, lat-halfWidth)
}

// Config identifies the instance and how we present ourselves to it.
type Config struct {
	BaseURL   string
	UserAgent string
	// Email is appended to every request when set, per the usage policy.
	Email   string
	Timeout time.Duration
}

// Client performs Nominatim searches.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: upstream.NewHTTPClient(cfg.UserAgent, timeout),
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      cfg.Email,
	}
}

// Search runs a /search request. Any transport failure or non-2xx status is
// returned as an *upstream.ProviderError.
func (c *Client) Search(ctx context.Context, p Params) ([]Hit, error) {
	hits, err := c.search(ctx, p)
	metrics.RecordProviderRequest(providerName, err)
	return hits, err
}

func (c *Client) search(ctx context.Context, p Params) ([]Hit, error) {
	params := p.Values()
	if c.email != "" {
		params.Set("email", c.email)
	}
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: "/search", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: "/search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: "/search", StatusCode: resp.StatusCode}
	}

	var hits []Hit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: "/search", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return hits, nil
}
