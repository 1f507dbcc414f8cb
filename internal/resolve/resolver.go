package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/pkg/censusgeo"
	"github.com/sells-group/parcel-cli/pkg/geocode"
	"github.com/sells-group/parcel-cli/pkg/parcels"
)

// Options configures a Resolver.
type Options struct {
	// CountyGEOID scopes resolution to one county. A query whose
	// jurisdiction hint names a different county short-circuits to
	// OUT_OF_SCOPE without any provider call. Empty disables the check.
	CountyGEOID string

	// Weights are the disambiguation score weights. Zero value means the
	// 10/5/2 defaults.
	Weights ScoreWeights
}

// Resolver composes the geocode, parcel, and census clients into a single
// resolve operation. It performs no retries; retry policy belongs to the
// batch driver.
type Resolver struct {
	geocoder geocode.Client
	parcels  parcels.Client
	census   censusgeo.Client
	opts     Options
}

// New creates a Resolver over the three provider clients.
func New(gc geocode.Client, pc parcels.Client, cc censusgeo.Client, opts Options) *Resolver {
	return &Resolver{geocoder: gc, parcels: pc, census: cc, opts: opts}
}

// Resolve runs one query through the resolution state machine. It always
// returns a terminal EnrichedLocation; errors mid-flight yield StatusError
// carrying whatever partial result was accumulated.
func (r *Resolver) Resolve(ctx context.Context, q model.LocationQuery) (model.EnrichedLocation, error) {
	loc := model.EnrichedLocation{}

	if err := q.Validate(); err != nil {
		loc.Status = model.StatusError
		loc.FailedStage = "input"
		return loc, err
	}

	log := zap.L().With(zap.String("address", q.RawAddress))

	// Establish a coordinate: take the query's, or geocode the address.
	if q.HasCoordinate {
		loc.Lat, loc.Lon = q.Lat, q.Lon
	} else {
		result, err := r.geocoder.Geocode(ctx, q.RawAddress)
		if err != nil {
			log.Warn("resolve: geocode failed", zap.Error(err))
			loc.Status = model.StatusError
			loc.FailedStage = "geocode"
			return loc, err
		}
		if !result.Matched() {
			loc.Status = model.StatusNoGeocode
			return loc, nil
		}
		loc.Lat, loc.Lon = result.Lat, result.Lon
	}

	// Jurisdiction pre-check: a hint naming another county means no
	// provider in this pipeline can say anything useful about the point.
	if r.opts.CountyGEOID != "" && q.JurisdictionHint != "" && q.JurisdictionHint != r.opts.CountyGEOID {
		loc.Status = model.StatusOutOfScope
		return loc, nil
	}

	candidates, err := r.parcels.FindCandidates(ctx, loc.Lat, loc.Lon)
	if err != nil {
		log.Warn("resolve: parcel query failed", zap.Error(err))
		loc.Status = model.StatusError
		loc.FailedStage = "parcels"
		return loc, err
	}

	if best := SelectBest(candidates, q.RawAddress, r.opts.Weights); best != nil {
		loc.BestParcel = &best.Candidate
		loc.Score = best.Score
		loc.Status = model.StatusResolved
	} else {
		loc.Status = model.StatusNoParcel
	}

	// The hierarchy is resolved even without a parcel: a coordinate has a
	// geography regardless. Its failure degrades, never aborts.
	hierarchy, err := r.census.ResolveHierarchy(ctx, loc.Lat, loc.Lon)
	if err != nil {
		log.Warn("resolve: hierarchy lookup failed",
			zap.Float64("lat", loc.Lat),
			zap.Float64("lon", loc.Lon),
			zap.Error(err),
		)
	} else {
		loc.Hierarchy = hierarchy
	}

	return loc, nil
}
