// Package parcels queries an ArcGIS FeatureServer parcel registry for the
// parcels intersecting a small envelope around a coordinate.
package parcels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
)

// DefaultBufferDegrees is the half-width of the query envelope. Roughly 30m
// at mid latitudes: wide enough to capture the parcel under a rooftop-level
// geocode, narrow enough to avoid neighbors in dense blocks. Tuned against
// single-family parcel fabric; treat as a starting point elsewhere.
const DefaultBufferDegrees = 0.0003

// Client fetches candidate parcels around a coordinate.
type Client interface {
	FindCandidates(ctx context.Context, lat, lon float64) ([]model.ParcelCandidate, error)
}

// Option configures the parcel client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBufferDegrees overrides the envelope half-width.
func WithBufferDegrees(buf float64) Option {
	return func(c *client) {
		if buf > 0 {
			c.buffer = buf
		}
	}
}

// WithRateLimit sets the requests-per-second limit for registry calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type client struct {
	queryURL   string
	buffer     float64
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a parcel registry Client for the given FeatureServer
// query URL.
func NewClient(queryURL string, opts ...Option) Client {
	c := &client{
		queryURL:   queryURL,
		buffer:     DefaultBufferDegrees,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Envelope returns the axis-aligned bounds queried for a point with the
// given buffer, in lon/lat order.
func Envelope(lat, lon, buffer float64) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	b.SetCoords(geom.Coord{lon - buffer, lat - buffer}, geom.Coord{lon + buffer, lat + buffer})
	return b
}

// featureResponse is the FeatureServer query response. ArcGIS reports
// errors in-band with HTTP 200.
type featureResponse struct {
	Features []struct {
		Attributes parcelAttributes `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FindCandidates implements Client with a single spatial-intersects envelope
// query. An empty candidate list is a normal outcome, not an error.
func (c *client) FindCandidates(ctx context.Context, lat, lon float64) ([]model.ParcelCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "parcels: rate limit")
	}

	b := Envelope(lat, lon, c.buffer)
	envelope := fmt.Sprintf("%f,%f,%f,%f", b.Min(0), b.Min(1), b.Max(0), b.Max(1))

	params := url.Values{
		"geometry":       {envelope},
		"geometryType":   {"esriGeometryEnvelope"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"outFields":      {"*"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "parcels: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "parcels: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("parcels: registry returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parcels: read body")
	}

	var parsed featureResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "parcels: parse response")
	}
	if parsed.Error != nil {
		return nil, eris.Errorf("parcels: registry error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	candidates := make([]model.ParcelCandidate, 0, len(parsed.Features))
	for _, f := range parsed.Features {
		candidates = append(candidates, f.Attributes.toCandidate())
	}

	zap.L().Debug("parcels: envelope query",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("buffer", c.buffer),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}
