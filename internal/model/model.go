// Package model defines the canonical data types shared across the parcel
// resolution pipeline: input queries, parcel candidates, the census
// administrative hierarchy, and the merged enrichment result.
package model

import "github.com/rotisserie/eris"

// ErrInvalidQuery is returned when a LocationQuery carries neither an
// address nor a coordinate. Rejected before any provider call.
var ErrInvalidQuery = eris.New("model: query has neither address nor coordinate")

// GeocodeConfidence classifies the quality of a geocode match.
type GeocodeConfidence string

const (
	ConfidenceExact       GeocodeConfidence = "EXACT"
	ConfidenceApproximate GeocodeConfidence = "APPROXIMATE"
	ConfidenceNone        GeocodeConfidence = "NONE"
)

// GeocodeResult holds the output of a forward geocode.
type GeocodeResult struct {
	Lat              float64
	Lon              float64
	Confidence       GeocodeConfidence
	FormattedAddress string
}

// Matched reports whether the provider returned a usable coordinate.
func (r GeocodeResult) Matched() bool {
	return r.Confidence != ConfidenceNone && r.Confidence != ""
}

// LocationQuery is the per-row input to resolution. At least one of
// RawAddress or the coordinate must be present.
type LocationQuery struct {
	RawAddress       string
	Lat              float64
	Lon              float64
	HasCoordinate    bool
	JurisdictionHint string // county GEOID used for the out-of-scope pre-check
}

// Validate rejects empty queries before any network call is made.
func (q LocationQuery) Validate() error {
	if q.RawAddress == "" && !q.HasCoordinate {
		return ErrInvalidQuery
	}
	return nil
}

// ParcelCandidate is one parcel returned by the spatial registry, mapped
// from the registry's attribute names into the canonical model. All fields
// are best-effort; the registry returns nulls freely.
type ParcelCandidate struct {
	APN                  string
	OwnerName            string
	SitusHouseNumber     string
	SitusStreetName      string
	SitusStreetSuffix    string
	SitusCommunity       string
	SitusZip             string
	AssessedTotal        int64
	AssessedLand         int64
	AssessedImprovements int64
	LivingAreaSqft       float64
	LotSqft              float64
	Beds                 int
	Baths                float64
}

// ScoredCandidate pairs a candidate with its disambiguation score.
type ScoredCandidate struct {
	Candidate ParcelCandidate
	Score     int
}

// PlaceClass classifies the census place level of a hierarchy.
type PlaceClass string

const (
	PlaceIncorporated PlaceClass = "incorporated"
	PlaceCDP          PlaceClass = "cdp"
	PlaceNone         PlaceClass = ""
)

// Hierarchy is the administrative-geography hierarchy for a coordinate.
// Every field is best-effort: a level the census service did not return
// stays empty. A partially-filled hierarchy is a normal outcome.
type Hierarchy struct {
	StateFIPS        string
	StateName        string
	CountyFIPS       string
	CountyGEOID      string
	CountyName       string
	SubdivisionGEOID string
	SubdivisionName  string
	PlaceGEOID       string
	PlaceName        string
	PlaceClass       PlaceClass
	TractGEOID       string
}

// Empty reports whether no geography level was resolved at all.
func (h Hierarchy) Empty() bool {
	return h == Hierarchy{}
}

// ResolutionStatus is the terminal state of one query's resolution.
type ResolutionStatus string

const (
	StatusResolved   ResolutionStatus = "RESOLVED"
	StatusNoParcel   ResolutionStatus = "NO_PARCEL"
	StatusNoGeocode  ResolutionStatus = "NO_GEOCODE"
	StatusOutOfScope ResolutionStatus = "OUT_OF_SCOPE"
	StatusError      ResolutionStatus = "ERROR"
)

// Terminal reports whether the status marks a completed resolution attempt
// that a re-run should not repeat.
func (s ResolutionStatus) Terminal() bool {
	switch s {
	case StatusResolved, StatusNoParcel, StatusNoGeocode, StatusOutOfScope:
		return true
	}
	return false
}

// EnrichedLocation is the merged output of one resolution. Owned by the
// Resolve call that produced it; the batch driver only copies it into a row.
type EnrichedLocation struct {
	Lat        float64
	Lon        float64
	BestParcel *ParcelCandidate
	Score      int
	Hierarchy  Hierarchy
	Status     ResolutionStatus

	// FailedStage names the pipeline stage that produced a StatusError
	// ("geocode", "parcels", "hierarchy"). Empty otherwise.
	FailedStage string
}
