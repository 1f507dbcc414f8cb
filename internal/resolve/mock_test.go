package resolve

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
)

// fakeGeocoder returns a fixed result and counts invocations.
type fakeGeocoder struct {
	calls  atomic.Int64
	result model.GeocodeResult
	err    error
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (model.GeocodeResult, error) {
	f.calls.Add(1)
	return f.result, f.err
}

// fakeParcels returns a fixed candidate list and counts invocations.
type fakeParcels struct {
	calls      atomic.Int64
	candidates []model.ParcelCandidate
	err        error
}

func (f *fakeParcels) FindCandidates(_ context.Context, _, _ float64) ([]model.ParcelCandidate, error) {
	f.calls.Add(1)
	return f.candidates, f.err
}

// fakeCensus returns a fixed hierarchy and counts invocations.
type fakeCensus struct {
	calls     atomic.Int64
	hierarchy model.Hierarchy
	err       error
}

func (f *fakeCensus) ResolveHierarchy(_ context.Context, _, _ float64) (model.Hierarchy, error) {
	f.calls.Add(1)
	return f.hierarchy, f.err
}

var errUpstream = eris.New("upstream unavailable")

func sanDiegoHierarchy() model.Hierarchy {
	return model.Hierarchy{
		StateFIPS:   "06",
		StateName:   "California",
		CountyFIPS:  "073",
		CountyGEOID: "06073",
		CountyName:  "San Diego",
		PlaceGEOID:  "0666000",
		PlaceName:   "San Diego city",
		PlaceClass:  model.PlaceIncorporated,
		TractGEOID:  "06073008324",
	}
}
