package censusgeo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
)

func newTestClient(srvURL string) Client {
	return NewClient(WithBaseURL(srvURL), WithRateLimit(1000))
}

func TestResolveHierarchy_FullResponse(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = io.WriteString(w, `{
			"result": {
				"geographies": {
					"States": [{"STATE": "06", "NAME": "California", "BASENAME": "California"}],
					"Counties": [{"COUNTY": "073", "GEOID": "06073", "NAME": "San Diego County", "BASENAME": "San Diego"}],
					"County Subdivisions": [{"GEOID": "0607391500", "BASENAME": "Coronado"}],
					"Incorporated Places": [{"GEOID": "0666000", "NAME": "San Diego city"}],
					"Census Designated Places": [{"GEOID": "0611111", "NAME": "Some CDP"}],
					"Census Tracts": [{"GEOID": "06073008324"}]
				}
			}
		}`)
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 32.8453, -117.2653)
	require.NoError(t, err)

	assert.Equal(t, "06", h.StateFIPS)
	assert.Equal(t, "California", h.StateName)
	assert.Equal(t, "073", h.CountyFIPS)
	assert.Equal(t, "06073", h.CountyGEOID)
	assert.Equal(t, "San Diego", h.CountyName)
	assert.Equal(t, "0607391500", h.SubdivisionGEOID)
	assert.Equal(t, "Coronado", h.SubdivisionName)
	// Incorporated place wins over the CDP.
	assert.Equal(t, "0666000", h.PlaceGEOID)
	assert.Equal(t, "San Diego city", h.PlaceName)
	assert.Equal(t, model.PlaceIncorporated, h.PlaceClass)
	assert.Equal(t, "06073008324", h.TractGEOID)

	assert.Equal(t, "Public_AR_Current", gotQuery["benchmark"])
	assert.Equal(t, "Current_Current", gotQuery["vintage"])
	assert.Equal(t, "json", gotQuery["format"])
}

func TestResolveHierarchy_CDPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"result": {
				"geographies": {
					"Counties": [{"COUNTY": "073", "GEOID": "06073", "BASENAME": "San Diego"}],
					"Census Designated Places": [{"GEOID": "0639220", "NAME": "La Presa CDP"}]
				}
			}
		}`)
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 32.7, -117.0)
	require.NoError(t, err)

	assert.Equal(t, "0639220", h.PlaceGEOID)
	assert.Equal(t, "La Presa CDP", h.PlaceName)
	assert.Equal(t, model.PlaceCDP, h.PlaceClass)
}

func TestResolveHierarchy_PartialHierarchy(t *testing.T) {
	// County but no place: place fields stay empty, everything else fills.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"result": {
				"geographies": {
					"States": [{"STATE": "06", "NAME": "California"}],
					"Counties": [{"COUNTY": "073", "GEOID": "06073", "BASENAME": "San Diego"}],
					"Census Tracts": [{"GEOID": "06073017008"}]
				}
			}
		}`)
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 33.0, -116.5)
	require.NoError(t, err)

	assert.Equal(t, "06073", h.CountyGEOID)
	assert.Equal(t, "06073017008", h.TractGEOID)
	assert.Empty(t, h.PlaceGEOID)
	assert.Empty(t, h.PlaceName)
	assert.Equal(t, model.PlaceNone, h.PlaceClass)
	assert.Empty(t, h.SubdivisionGEOID)
}

func TestResolveHierarchy_NoGroupsAtAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"result": {"geographies": {}}}`)
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.True(t, h.Empty())
}

func TestResolveHierarchy_EmptyGroupsTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"result": {
				"geographies": {
					"States": [],
					"Counties": [{"COUNTY": "073", "GEOID": "06073", "BASENAME": "San Diego"}]
				}
			}
		}`)
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 32.8, -117.1)
	require.NoError(t, err)
	assert.Empty(t, h.StateFIPS)
	assert.Equal(t, "San Diego", h.CountyName)
}

func TestResolveHierarchy_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 32.8, -117.1)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestResolveHierarchy_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `oops`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ResolveHierarchy(context.Background(), 32.8, -117.1)
	require.Error(t, err)
}
