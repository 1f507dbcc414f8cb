package model

import (
	"strconv"
	"strings"
)

// DealRow is one row of the deals export. Coordinate and numeric columns
// stay strings so that rows we never touch round-trip byte-for-byte.
type DealRow struct {
	ID          string `csv:"id"`
	DisplayName string `csv:"display_name"`
	Address     string `csv:"address"`
	Latitude    string `csv:"latitude"`
	Longitude   string `csv:"longitude"`
	CountyGEOID string `csv:"county_geoid"`

	ParcelAPN           string `csv:"parcel_apn"`
	ParcelOwner         string `csv:"parcel_owner"`
	ParcelAssessedTotal string `csv:"parcel_assessed_total"`
	ParcelAssessedLand  string `csv:"parcel_assessed_land"`
	ParcelAssessedImpr  string `csv:"parcel_assessed_impr"`
	ParcelSqftLiving    string `csv:"parcel_sqft_living"`
	ParcelSqftLot       string `csv:"parcel_sqft_lot"`
	ParcelBeds          string `csv:"parcel_beds"`
	ParcelBaths         string `csv:"parcel_baths"`
	ParcelCommunity     string `csv:"parcel_community"`
	ParcelZip           string `csv:"parcel_zip"`

	CensusStateFIPS   string `csv:"census_state_fips"`
	CensusStateName   string `csv:"census_state_name"`
	CensusCountyFIPS  string `csv:"census_county_fips"`
	CensusCountyGEOID string `csv:"census_county_geoid"`
	CensusCountyName  string `csv:"census_county_name"`
	CensusCousubGEOID string `csv:"census_cousub_geoid"`
	CensusCousubName  string `csv:"census_cousub_name"`
	CensusPlaceGEOID  string `csv:"census_place_geoid"`
	CensusPlaceName   string `csv:"census_place_name"`
	CensusPlaceClass  string `csv:"census_place_class"`
	CensusTractGEOID  string `csv:"census_tract_geoid"`

	ResolutionStatus string `csv:"resolution_status"`
}

// Query builds the LocationQuery for this row. Coordinates that fail to
// parse are treated as absent so the address fallback can still run.
func (r DealRow) Query() LocationQuery {
	q := LocationQuery{
		RawAddress:       strings.TrimSpace(r.Address),
		JurisdictionHint: strings.TrimSpace(r.CountyGEOID),
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)
	if latErr == nil && lonErr == nil {
		q.Lat = lat
		q.Lon = lon
		q.HasCoordinate = true
	}
	return q
}

// Resolved reports whether this row already carries a terminal result and
// must be passed through untouched on a re-run.
func (r DealRow) Resolved() bool {
	if r.ParcelAPN != "" {
		return true
	}
	return ResolutionStatus(r.ResolutionStatus).Terminal()
}

// ApplyEnrichment flattens an EnrichedLocation into the row's output columns.
func (r *DealRow) ApplyEnrichment(loc *EnrichedLocation) {
	r.ResolutionStatus = string(loc.Status)

	if p := loc.BestParcel; p != nil {
		r.ParcelAPN = p.APN
		r.ParcelOwner = p.OwnerName
		r.ParcelAssessedTotal = formatInt(p.AssessedTotal)
		r.ParcelAssessedLand = formatInt(p.AssessedLand)
		r.ParcelAssessedImpr = formatInt(p.AssessedImprovements)
		r.ParcelSqftLiving = formatFloat(p.LivingAreaSqft)
		r.ParcelSqftLot = formatFloat(p.LotSqft)
		r.ParcelBeds = formatInt(int64(p.Beds))
		r.ParcelBaths = formatFloat(p.Baths)
		r.ParcelCommunity = p.SitusCommunity
		r.ParcelZip = truncateZip(p.SitusZip)
	}

	h := loc.Hierarchy
	r.CensusStateFIPS = h.StateFIPS
	r.CensusStateName = h.StateName
	r.CensusCountyFIPS = h.CountyFIPS
	r.CensusCountyGEOID = h.CountyGEOID
	r.CensusCountyName = h.CountyName
	r.CensusCousubGEOID = h.SubdivisionGEOID
	r.CensusCousubName = h.SubdivisionName
	r.CensusPlaceGEOID = h.PlaceGEOID
	r.CensusPlaceName = h.PlaceName
	r.CensusPlaceClass = string(h.PlaceClass)
	r.CensusTractGEOID = h.TractGEOID

	if loc.Status != StatusOutOfScope && h.CountyGEOID != "" && r.CountyGEOID == "" {
		r.CountyGEOID = h.CountyGEOID
	}
}

func formatInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncateZip keeps the 5-digit ZIP prefix; the registry pads with ZIP+4.
func truncateZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}
