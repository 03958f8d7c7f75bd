package match

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/models"
)

// vec pads a few leading values out to a fixed test dimension so distances
// stay easy to reason about.
func vec(values ...float32) []float32 {
	v := make([]float32, 8)
	copy(v, values)
	return v
}

func record(owner uuid.UUID, label string, embedding []float32) models.FaceEmbeddingRecord {
	return models.FaceEmbeddingRecord{
		ID:        uuid.New(),
		OwnerID:   owner,
		Label:     label,
		Embedding: embedding,
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := vec(0.1, 0.5, -0.3)
	b := vec(0.7, -0.2, 0.4)

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance(a, b): %v", err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatalf("Distance(b, a): %v", err)
	}
	if ab != ba {
		t.Errorf("Distance(a,b) = %v, Distance(b,a) = %v; want equal", ab, ba)
	}
}

func TestDistanceSelf(t *testing.T) {
	a := vec(0.3, -0.9, 0.12, 0.04)
	d, err := Distance(a, a)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d != 0 {
		t.Errorf("Distance(a,a) = %v; want 0", d)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	a := vec(0, 0)
	b := vec(3, 4)
	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("Distance = %v; want 5", d)
	}
}

func TestDistanceDimensionMismatch(t *testing.T) {
	_, err := Distance([]float32{1, 2, 3}, []float32{1, 2})
	if err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error type = %T; want *DimensionError", err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("DimensionError = %+v; want Want=3 Got=2", dimErr)
	}
}

func TestFindThresholdFiltering(t *testing.T) {
	owner := uuid.New()
	query := vec(0)
	candidates := []models.FaceEmbeddingRecord{
		record(owner, "near", vec(0.3)),    // distance 0.3
		record(owner, "edge", vec(0.6)),    // distance 0.6, excluded (strict <)
		record(owner, "far", vec(1.2)),     // distance 1.2
		record(owner, "closest", vec(0.1)), // distance 0.1
	}

	matches, err := Find(query, candidates, 0.6)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d; want 2", len(matches))
	}
	for _, m := range matches {
		if m.Distance >= 0.6 {
			t.Errorf("match %q has distance %v >= threshold", m.Label, m.Distance)
		}
	}
	if matches[0].Label != "closest" || matches[1].Label != "near" {
		t.Errorf("order = [%s, %s]; want [closest, near]", matches[0].Label, matches[1].Label)
	}
}

func TestFindRankingOrder(t *testing.T) {
	owner := uuid.New()
	query := vec(0)
	candidates := []models.FaceEmbeddingRecord{
		record(owner, "c", vec(0.5)),
		record(owner, "a", vec(0.1)),
		record(owner, "b", vec(0.3)),
		record(owner, "d", vec(0.55)),
	}

	matches, err := Find(query, candidates, 1.0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	for i := 1; i < len(matches); i++ {
		if matches[i-1].Distance > matches[i].Distance {
			t.Errorf("matches not sorted: [%d]=%v > [%d]=%v",
				i-1, matches[i-1].Distance, i, matches[i].Distance)
		}
	}
}

func TestFindStableTies(t *testing.T) {
	owner := uuid.New()
	query := vec(0)
	candidates := []models.FaceEmbeddingRecord{
		record(owner, "first", vec(0.2)),
		record(owner, "second", vec(0.2)),
		record(owner, "third", vec(0.2)),
	}

	matches, err := Find(query, candidates, 0.6)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := []string{matches[0].Label, matches[1].Label, matches[2].Label}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tie order[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestFindEmptyAndNoQualifiers(t *testing.T) {
	query := vec(0)

	matches, err := Find(query, nil, 0.6)
	if err != nil {
		t.Fatalf("Find(empty): %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d for empty candidates; want 0", len(matches))
	}

	owner := uuid.New()
	matches, err = Find(query, []models.FaceEmbeddingRecord{
		record(owner, "Ana", vec(0.3)),
	}, 0.2)
	if err != nil {
		t.Fatalf("Find(no qualifiers): %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d below threshold 0.2; want 0", len(matches))
	}
}

func TestFindScenarioSimilarity(t *testing.T) {
	owner := uuid.New()
	query := vec(0)
	candidates := []models.FaceEmbeddingRecord{
		record(owner, "Ana", vec(0.3)),
	}

	matches, err := Find(query, candidates, 0.6)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d; want 1", len(matches))
	}
	m := matches[0]
	if m.OwnerID != owner || m.Label != "Ana" {
		t.Errorf("match = %+v; want owner %s label Ana", m, owner)
	}
	if math.Abs(m.Distance-0.3) > 1e-6 {
		t.Errorf("Distance = %v; want 0.3", m.Distance)
	}
	if math.Abs(m.Similarity-70) > 1e-4 {
		t.Errorf("Similarity = %v; want 70", m.Similarity)
	}
}

func TestSimilarityUnclamped(t *testing.T) {
	if s := Similarity(1.4); math.Abs(s-(-40)) > 1e-9 {
		t.Errorf("Similarity(1.4) = %v; want -40", s)
	}
	if s := Similarity(0); s != 100 {
		t.Errorf("Similarity(0) = %v; want 100", s)
	}
}

func TestTop(t *testing.T) {
	owner := uuid.New()
	matches := []models.Match{
		{OwnerID: owner, Label: "a", Distance: 0.1},
		{OwnerID: owner, Label: "b", Distance: 0.2},
		{OwnerID: owner, Label: "c", Distance: 0.3},
		{OwnerID: owner, Label: "d", Distance: 0.4},
	}

	top := Top(matches, 3)
	if len(top) != 3 {
		t.Fatalf("len(Top(.., 3)) = %d; want 3", len(top))
	}
	if top[2].Label != "c" {
		t.Errorf("Top[2] = %q; want c", top[2].Label)
	}

	if got := Top(matches, 0); len(got) != 4 {
		t.Errorf("Top(.., 0) truncated to %d; want all 4", len(got))
	}
	if got := Top(matches[:2], 3); len(got) != 2 {
		t.Errorf("Top(short, 3) = %d entries; want 2", len(got))
	}
}

func TestFindDimensionMismatchSurfaces(t *testing.T) {
	owner := uuid.New()
	query := vec(0)
	candidates := []models.FaceEmbeddingRecord{
		record(owner, "ok", vec(0.1)),
		{ID: uuid.New(), OwnerID: owner, Label: "bad", Embedding: []float32{1, 2}},
	}

	_, err := Find(query, candidates, 0.6)
	if err == nil {
		t.Fatal("expected error for mismatched candidate")
	}
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error type = %T; want *DimensionError", err)
	}
}
