// Package censusgeo resolves a coordinate to its administrative-geography
// hierarchy via the Census geocoder's geographies endpoint.
package censusgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://geocoding.geo.census.gov/geocoder/geographies/coordinates"
	defaultBenchmark = "Public_AR_Current"
	defaultVintage   = "Current_Current"
)

// Geography group names in the census response.
const (
	groupStates       = "States"
	groupCounties     = "Counties"
	groupSubdivisions = "County Subdivisions"
	groupIncorporated = "Incorporated Places"
	groupCDPs         = "Census Designated Places"
	groupTracts       = "Census Tracts"
)

// Client resolves the administrative hierarchy for a coordinate. Missing
// geography levels yield empty fields, never an error.
type Client interface {
	ResolveHierarchy(ctx context.Context, lat, lon float64) (model.Hierarchy, error)
}

// Option configures the census client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithBenchmark sets the benchmark and vintage query parameters.
func WithBenchmark(benchmark, vintage string) Option {
	return func(c *client) {
		c.benchmark = benchmark
		c.vintage = vintage
	}
}

// WithRateLimit sets the requests-per-second limit for service calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type client struct {
	baseURL    string
	benchmark  string
	vintage    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a census geography Client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    defaultBaseURL,
		benchmark:  defaultBenchmark,
		vintage:    defaultVintage,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// geoFeature is one feature in a geography group. Only the identifying
// fields are extracted; the service returns many more.
type geoFeature struct {
	GEOID    string `json:"GEOID"`
	Name     string `json:"NAME"`
	BaseName string `json:"BASENAME"`
	State    string `json:"STATE"`
	County   string `json:"COUNTY"`
}

// geographiesResponse is the census geographies JSON envelope.
type geographiesResponse struct {
	Result struct {
		Geographies map[string][]geoFeature `json:"geographies"`
	} `json:"result"`
}

// ResolveHierarchy implements Client with a single reverse-geography query.
// Per-level extraction: first feature for state, county, subdivision, and
// tract; incorporated places preferred over CDPs.
func (c *client) ResolveHierarchy(ctx context.Context, lat, lon float64) (model.Hierarchy, error) {
	var h model.Hierarchy

	if err := c.limiter.Wait(ctx); err != nil {
		return h, eris.Wrap(err, "censusgeo: rate limit")
	}

	params := url.Values{
		"x":         {fmt.Sprintf("%f", lon)},
		"y":         {fmt.Sprintf("%f", lat)},
		"benchmark": {c.benchmark},
		"vintage":   {c.vintage},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return h, eris.Wrap(err, "censusgeo: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return h, resilience.NewTransientError(eris.Wrap(err, "censusgeo: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("censusgeo: service returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return h, resilience.NewTransientError(err, resp.StatusCode)
		}
		return h, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return h, eris.Wrap(err, "censusgeo: read body")
	}

	var parsed geographiesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return h, eris.Wrap(err, "censusgeo: parse response")
	}

	h = extractHierarchy(parsed.Result.Geographies)
	if h.Empty() {
		zap.L().Debug("censusgeo: no geography levels returned",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
	}
	return h, nil
}

// extractHierarchy applies the per-level extraction policy to the raw
// geography groups.
func extractHierarchy(groups map[string][]geoFeature) model.Hierarchy {
	var h model.Hierarchy

	if state, ok := first(groups, groupStates); ok {
		h.StateFIPS = state.State
		h.StateName = state.Name
	}
	if county, ok := first(groups, groupCounties); ok {
		h.CountyFIPS = county.County
		h.CountyGEOID = county.GEOID
		h.CountyName = county.BaseName
	}
	if cousub, ok := first(groups, groupSubdivisions); ok {
		h.SubdivisionGEOID = cousub.GEOID
		h.SubdivisionName = cousub.BaseName
	}
	if place, ok := first(groups, groupIncorporated); ok {
		h.PlaceGEOID = place.GEOID
		h.PlaceName = place.Name
		h.PlaceClass = model.PlaceIncorporated
	} else if cdp, ok := first(groups, groupCDPs); ok {
		h.PlaceGEOID = cdp.GEOID
		h.PlaceName = cdp.Name
		h.PlaceClass = model.PlaceCDP
	}
	if tract, ok := first(groups, groupTracts); ok {
		h.TractGEOID = tract.GEOID
	}

	return h
}

func first(groups map[string][]geoFeature, name string) (geoFeature, bool) {
	features := groups[name]
	if len(features) == 0 {
		return geoFeature{}, false
	}
	return features[0], true
}
