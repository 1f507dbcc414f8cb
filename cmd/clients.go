package main

import (
	"net/http"

	"github.com/sells-group/parcel-cli/internal/config"
	"github.com/sells-group/parcel-cli/internal/resolve"
	"github.com/sells-group/parcel-cli/pkg/censusgeo"
	"github.com/sells-group/parcel-cli/pkg/geocode"
	"github.com/sells-group/parcel-cli/pkg/parcels"
)

// newResolver wires the three provider clients from config. Each provider
// gets its own rate limiter and timeout.
func newResolver(c *config.Config) *resolve.Resolver {
	gc := geocode.NewClient(c.Geocode.APIKey,
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithRateLimit(c.Geocode.RateRPS),
		geocode.WithHTTPClient(&http.Client{Timeout: c.Geocode.Timeout()}),
	)

	pc := parcels.NewClient(c.Parcels.BaseURL,
		parcels.WithBufferDegrees(c.Parcels.BufferDegrees),
		parcels.WithRateLimit(c.Parcels.RateRPS),
		parcels.WithHTTPClient(&http.Client{Timeout: c.Parcels.Timeout()}),
	)

	cc := censusgeo.NewClient(
		censusgeo.WithBaseURL(c.Census.BaseURL),
		censusgeo.WithBenchmark(c.Census.Benchmark, c.Census.Vintage),
		censusgeo.WithRateLimit(c.Census.RateRPS),
		censusgeo.WithHTTPClient(&http.Client{Timeout: c.Census.Timeout()}),
	)

	return resolve.New(gc, pc, cc, resolve.Options{
		CountyGEOID: c.Resolve.CountyGEOID,
		Weights: resolve.ScoreWeights{
			HouseNumber: c.Resolve.HouseNumberScore,
			StreetWord:  c.Resolve.StreetWordScore,
			Suffix:      c.Resolve.SuffixScore,
		},
	})
}
