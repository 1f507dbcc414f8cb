package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
)

// Execer is the slice of pgxpool.Pool the Postgres sink needs. pgxmock
// satisfies it in tests.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink upserts enriched rows into a deals table. Each Write is one
// statement, so partial progress is durable exactly like the CSV sink.
type PostgresSink struct {
	pool  Execer
	table string
}

// NewPostgresSink creates a sink writing to the given table.
func NewPostgresSink(pool Execer, table string) *PostgresSink {
	if table == "" {
		table = "deals"
	}
	return &PostgresSink{pool: pool, table: table}
}

// Write implements RowSink with an insert-or-update keyed on the row id.
func (s *PostgresSink) Write(ctx context.Context, row model.DealRow) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, display_name, address, latitude, longitude, county_geoid,
			parcel_apn, parcel_owner, parcel_assessed_total, parcel_assessed_land,
			parcel_assessed_impr, parcel_sqft_living, parcel_sqft_lot,
			parcel_beds, parcel_baths, parcel_community, parcel_zip,
			census_state_fips, census_state_name, census_county_fips,
			census_county_geoid, census_county_name, census_cousub_geoid,
			census_cousub_name, census_place_geoid, census_place_name,
			census_place_class, census_tract_geoid, resolution_status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)
		ON CONFLICT (id) DO UPDATE SET
			county_geoid = EXCLUDED.county_geoid,
			parcel_apn = EXCLUDED.parcel_apn,
			parcel_owner = EXCLUDED.parcel_owner,
			parcel_assessed_total = EXCLUDED.parcel_assessed_total,
			parcel_assessed_land = EXCLUDED.parcel_assessed_land,
			parcel_assessed_impr = EXCLUDED.parcel_assessed_impr,
			parcel_sqft_living = EXCLUDED.parcel_sqft_living,
			parcel_sqft_lot = EXCLUDED.parcel_sqft_lot,
			parcel_beds = EXCLUDED.parcel_beds,
			parcel_baths = EXCLUDED.parcel_baths,
			parcel_community = EXCLUDED.parcel_community,
			parcel_zip = EXCLUDED.parcel_zip,
			census_state_fips = EXCLUDED.census_state_fips,
			census_state_name = EXCLUDED.census_state_name,
			census_county_fips = EXCLUDED.census_county_fips,
			census_county_geoid = EXCLUDED.census_county_geoid,
			census_county_name = EXCLUDED.census_county_name,
			census_cousub_geoid = EXCLUDED.census_cousub_geoid,
			census_cousub_name = EXCLUDED.census_cousub_name,
			census_place_geoid = EXCLUDED.census_place_geoid,
			census_place_name = EXCLUDED.census_place_name,
			census_place_class = EXCLUDED.census_place_class,
			census_tract_geoid = EXCLUDED.census_tract_geoid,
			resolution_status = EXCLUDED.resolution_status`, s.table)

	_, err := s.pool.Exec(ctx, query,
		row.ID, row.DisplayName, row.Address, row.Latitude, row.Longitude, row.CountyGEOID,
		row.ParcelAPN, row.ParcelOwner, row.ParcelAssessedTotal, row.ParcelAssessedLand,
		row.ParcelAssessedImpr, row.ParcelSqftLiving, row.ParcelSqftLot,
		row.ParcelBeds, row.ParcelBaths, row.ParcelCommunity, row.ParcelZip,
		row.CensusStateFIPS, row.CensusStateName, row.CensusCountyFIPS,
		row.CensusCountyGEOID, row.CensusCountyName, row.CensusCousubGEOID,
		row.CensusCousubName, row.CensusPlaceGEOID, row.CensusPlaceName,
		row.CensusPlaceClass, row.CensusTractGEOID, row.ResolutionStatus,
	)
	return eris.Wrapf(err, "sink: upsert row %s", row.ID)
}

// Close implements RowSink. The pool is owned by the caller.
func (s *PostgresSink) Close() error { return nil }
