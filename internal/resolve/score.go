// Package resolve turns a location query into an enriched parcel and
// administrative-geography result: disambiguation scoring plus the
// orchestration state machine over the three provider clients.
package resolve

import (
	"strings"

	"github.com/sells-group/parcel-cli/internal/model"
)

// ScoreWeights are the per-field weights for disambiguation scoring. The
// defaults were tuned against dense single-family parcel fabric; there is
// no deeper derivation behind them.
type ScoreWeights struct {
	HouseNumber int
	StreetWord  int
	Suffix      int
}

// DefaultScoreWeights returns the standard 10/5/2 weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{HouseNumber: 10, StreetWord: 5, Suffix: 2}
}

func (w ScoreWeights) orDefaults() ScoreWeights {
	if w == (ScoreWeights{}) {
		return DefaultScoreWeights()
	}
	return w
}

// tokenize uppercases the input and splits on whitespace and commas into a
// token set.
func tokenize(address string) map[string]bool {
	cleaned := strings.ReplaceAll(strings.ToUpper(address), ",", " ")
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(cleaned) {
		tokens[t] = true
	}
	return tokens
}

// scoreCandidate computes the textual-agreement score between a candidate's
// situs fields and the input token set. Deterministic for a fixed pair;
// unmatched fields contribute nothing.
func scoreCandidate(c model.ParcelCandidate, tokens map[string]bool, w ScoreWeights) int {
	score := 0
	if num := strings.TrimSpace(c.SitusHouseNumber); num != "" && tokens[num] {
		score += w.HouseNumber
	}
	for _, word := range strings.Fields(strings.ToUpper(c.SitusStreetName)) {
		if tokens[word] {
			score += w.StreetWord
		}
	}
	if suffix := strings.ToUpper(strings.TrimSpace(c.SitusStreetSuffix)); suffix != "" && tokens[suffix] {
		score += w.Suffix
	}
	return score
}

// SelectBest picks the candidate that best matches the input address.
// A single candidate, or an empty input address, passes through with score
// 0 since there is nothing to disambiguate against. Ties go to the first
// candidate in upstream order; that keeps the choice reproducible, it is
// not a claim of semantic correctness.
func SelectBest(candidates []model.ParcelCandidate, inputAddress string, weights ScoreWeights) *model.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 || strings.TrimSpace(inputAddress) == "" {
		return &model.ScoredCandidate{Candidate: candidates[0]}
	}

	w := weights.orDefaults()
	tokens := tokenize(inputAddress)

	best := model.ScoredCandidate{
		Candidate: candidates[0],
		Score:     scoreCandidate(candidates[0], tokens, w),
	}
	for _, c := range candidates[1:] {
		if s := scoreCandidate(c, tokens, w); s > best.Score {
			best = model.ScoredCandidate{Candidate: c, Score: s}
		}
	}
	return &best
}
