package match

import (
	"fmt"
	"math"
	"sort"

	"github.com/nova-social/nova-faces/internal/models"
)

// DefaultThreshold is the maximum Euclidean distance (strict) for a
// gallery candidate to qualify as a match.
const DefaultThreshold = 0.6

// DefaultTopK caps how many matches are attached to a detection during
// interactive recognition.
const DefaultTopK = 3

// DimensionError reports a length mismatch between the query embedding and
// a stored candidate. It indicates a schema inconsistency in the gallery
// rather than a bad user input.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: query has %d values, candidate has %d", e.Want, e.Got)
}

// Distance returns the Euclidean distance between two equal-length
// embedding vectors.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Want: len(a), Got: len(b)}
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Similarity converts a distance into the display percentage used by the
// API. Distances above 1 produce negative values; the raw number is kept
// as-is since it is presentation-only and never used for ranking.
func Similarity(distance float64) float64 {
	return (1 - distance) * 100
}

// Find ranks gallery candidates against a query embedding. Candidates at
// distance >= threshold are dropped; survivors are sorted ascending by
// distance with ties kept in input order. The full qualifying list is
// returned — callers that need a cap apply Top.
func Find(query []float32, candidates []models.FaceEmbeddingRecord, threshold float64) ([]models.Match, error) {
	matches := make([]models.Match, 0, len(candidates))

	for _, c := range candidates {
		d, err := Distance(query, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		if d >= threshold {
			continue
		}
		matches = append(matches, models.Match{
			OwnerID:    c.OwnerID,
			Label:      c.Label,
			Distance:   d,
			Similarity: Similarity(d),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	return matches, nil
}

// Top truncates a ranked match list to at most k entries. k <= 0 leaves
// the list untouched.
func Top(matches []models.Match, k int) []models.Match {
	if k <= 0 || len(matches) <= k {
		return matches
	}
	return matches[:k]
}
