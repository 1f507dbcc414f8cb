// Package geocode resolves free-text addresses to coordinates via the
// Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client geocodes a single free-text address. A provider "zero results"
// response is not an error; it yields ConfidenceNone.
type Client interface {
	Geocode(ctx context.Context, address string) (model.GeocodeResult, error)
}

// Option configures the geocoder.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the provider endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithRateLimit sets the requests-per-second limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a geocoding Client with the given API key and options.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// geocodeResponse is the JSON response from the Google Geocoding API.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// Geocode implements Client.
func (c *client) Geocode(ctx context.Context, address string) (model.GeocodeResult, error) {
	none := model.GeocodeResult{Confidence: model.ConfidenceNone}

	address = strings.TrimSpace(address)
	if address == "" {
		return none, eris.New("geocode: empty address")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return none, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return none, eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return none, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: provider returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return none, resilience.NewTransientError(err, resp.StatusCode)
		}
		return none, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return none, eris.Wrap(err, "geocode: read body")
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return none, eris.Wrap(err, "geocode: parse response")
	}

	if parsed.Status == "ZERO_RESULTS" {
		zap.L().Debug("geocode: no match", zap.String("address", address))
		return none, nil
	}
	if parsed.Status != "OK" {
		return none, eris.Errorf("geocode: provider status %q", parsed.Status)
	}
	if len(parsed.Results) == 0 {
		zap.L().Debug("geocode: no match", zap.String("address", address))
		return none, nil
	}

	first := parsed.Results[0]
	return model.GeocodeResult{
		Lat:              first.Geometry.Location.Lat,
		Lon:              first.Geometry.Location.Lng,
		Confidence:       locationTypeConfidence(first.Geometry.LocationType),
		FormattedAddress: first.FormattedAddress,
	}, nil
}

// locationTypeConfidence maps the provider's location_type to our taxonomy.
func locationTypeConfidence(locType string) model.GeocodeConfidence {
	if strings.EqualFold(locType, "ROOFTOP") {
		return model.ConfidenceExact
	}
	return model.ConfidenceApproximate
}
