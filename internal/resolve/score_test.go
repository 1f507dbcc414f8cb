package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
)

func TestSelectBest_EmptyCandidates(t *testing.T) {
	assert.Nil(t, SelectBest(nil, "2260 CALLE FRESCOTA", DefaultScoreWeights()))
	assert.Nil(t, SelectBest([]model.ParcelCandidate{}, "anything", DefaultScoreWeights()))
}

func TestSelectBest_SingleCandidatePassesThrough(t *testing.T) {
	candidates := []model.ParcelCandidate{{APN: "350-010-01"}}

	best := SelectBest(candidates, "totally unrelated address", DefaultScoreWeights())
	require.NotNil(t, best)
	assert.Equal(t, "350-010-01", best.Candidate.APN)
	assert.Equal(t, 0, best.Score)
}

func TestSelectBest_EmptyInputAddress(t *testing.T) {
	candidates := []model.ParcelCandidate{
		{APN: "first"},
		{APN: "second"},
	}

	best := SelectBest(candidates, "", DefaultScoreWeights())
	require.NotNil(t, best)
	assert.Equal(t, "first", best.Candidate.APN)
	assert.Equal(t, 0, best.Score)
}

func TestSelectBest_ExactMatchScenario(t *testing.T) {
	// Two candidates in one envelope: the real parcel and a neighbor.
	candidates := []model.ParcelCandidate{
		{
			APN:               "999-999-99",
			SitusHouseNumber:  "48",
			SitusStreetName:   "VIA DEL NORTE",
			SitusStreetSuffix: "LN",
		},
		{
			APN:               "350-010-01",
			SitusHouseNumber:  "2260",
			SitusStreetName:   "CALLE FRESCOTA",
			SitusStreetSuffix: "",
		},
	}

	best := SelectBest(candidates, "2260 CALLE FRESCOTA", DefaultScoreWeights())
	require.NotNil(t, best)
	assert.Equal(t, "350-010-01", best.Candidate.APN)
	assert.Equal(t, 20, best.Score) // 10 house number + 5+5 street words
}

func TestSelectBest_Deterministic(t *testing.T) {
	candidates := []model.ParcelCandidate{
		{APN: "a", SitusHouseNumber: "100", SitusStreetName: "MAIN", SitusStreetSuffix: "ST"},
		{APN: "b", SitusHouseNumber: "102", SitusStreetName: "MAIN", SitusStreetSuffix: "ST"},
	}
	addr := "100 Main St, San Diego, CA"

	first := SelectBest(candidates, addr, DefaultScoreWeights())
	require.NotNil(t, first)
	for i := 0; i < 50; i++ {
		again := SelectBest(candidates, addr, DefaultScoreWeights())
		require.NotNil(t, again)
		assert.Equal(t, first.Candidate.APN, again.Candidate.APN)
		assert.Equal(t, first.Score, again.Score)
	}
	assert.Equal(t, "a", first.Candidate.APN)
	assert.Equal(t, 17, first.Score) // 10 + 5 + 2
}

func TestSelectBest_TieBreakFirstWins(t *testing.T) {
	// Identical situs fields: equal scores, upstream order decides.
	candidates := []model.ParcelCandidate{
		{APN: "earlier", SitusStreetName: "MAIN"},
		{APN: "later", SitusStreetName: "MAIN"},
	}

	best := SelectBest(candidates, "404 MAIN ST", DefaultScoreWeights())
	require.NotNil(t, best)
	assert.Equal(t, "earlier", best.Candidate.APN)
	assert.Equal(t, 5, best.Score)
}

func TestSelectBest_CaseAndCommaInsensitive(t *testing.T) {
	candidates := []model.ParcelCandidate{
		{APN: "no-match", SitusStreetName: "ELSEWHERE"},
		{APN: "match", SitusHouseNumber: "1547", SitusStreetName: "CAMINITO SOLIDAGO"},
	}

	best := SelectBest(candidates, "1547 caminito solidago, La Jolla, CA 92037", DefaultScoreWeights())
	require.NotNil(t, best)
	assert.Equal(t, "match", best.Candidate.APN)
	assert.Equal(t, 20, best.Score)
}

func TestSelectBest_CustomWeights(t *testing.T) {
	candidates := []model.ParcelCandidate{
		{APN: "street-only", SitusStreetName: "CALLE FRESCOTA"},
		{APN: "number-only", SitusHouseNumber: "2260"},
	}

	// Weight the house number below a single street word.
	w := ScoreWeights{HouseNumber: 1, StreetWord: 5, Suffix: 2}
	best := SelectBest(candidates, "2260 CALLE FRESCOTA", w)
	require.NotNil(t, best)
	assert.Equal(t, "street-only", best.Candidate.APN)
	assert.Equal(t, 10, best.Score)
}

func TestScoreCandidate_UnmatchedFieldsContributeZero(t *testing.T) {
	tokens := tokenize("2260 CALLE FRESCOTA")

	tests := []struct {
		name      string
		candidate model.ParcelCandidate
		want      int
	}{
		{"all empty", model.ParcelCandidate{}, 0},
		{"no overlap", model.ParcelCandidate{SitusHouseNumber: "9", SitusStreetName: "OTHER", SitusStreetSuffix: "AVE"}, 0},
		{"number only", model.ParcelCandidate{SitusHouseNumber: "2260"}, 10},
		{"one street word", model.ParcelCandidate{SitusStreetName: "CALLE NONEXISTENT"}, 5},
		{"suffix as street token", model.ParcelCandidate{SitusStreetSuffix: "FRESCOTA"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreCandidate(tt.candidate, tokens, DefaultScoreWeights()))
		})
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("2260 Calle Frescota, La Jolla,CA 92037")
	for _, want := range []string{"2260", "CALLE", "FRESCOTA", "LA", "JOLLA", "CA", "92037"} {
		assert.True(t, tokens[want], "missing token %s", want)
	}
	assert.False(t, tokens[""])
}
