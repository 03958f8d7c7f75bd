package models

import (
	"time"

	"github.com/google/uuid"
)

// FaceEmbeddingRecord is one enrolled face in the gallery. Records are
// created through registration and never updated in place; removal is a
// bulk delete scoped to an owner.
type FaceEmbeddingRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	OwnerName string    `json:"owner_name,omitempty" db:"owner_name"`
	Embedding []float32 `json:"-" db:"embedding"`
	Label     string    `json:"label" db:"label"`
	SourceKey string    `json:"source_key,omitempty" db:"source_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expression labels emitted by the expression classifier, in model
// output order.
var ExpressionLabels = [7]string{
	"neutral", "happy", "sad", "angry", "fearful", "disgusted", "surprised",
}

// Detection is the full detector output for one face found in an image.
// It is transient and never persisted as-is.
type Detection struct {
	BBox              [4]float32         `json:"bbox"` // x1, y1, x2, y2
	Landmarks         [5][2]float32      `json:"landmarks"`
	Confidence        float32            `json:"confidence"`
	Embedding         []float32          `json:"-"`
	ExpressionScores  map[string]float32 `json:"expressions"`
	Age               float32            `json:"age"`
	Gender            string             `json:"gender"`
	GenderProbability float32            `json:"gender_probability"`
}

// Match is one gallery candidate accepted for a query embedding.
type Match struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	Label      string    `json:"label"`
	Distance   float64   `json:"distance"`
	Similarity float64   `json:"similarity"`
}

// RecognizedFace pairs a detection with its ranked gallery matches.
type RecognizedFace struct {
	Detection
	Matches []Match `json:"matches"`
}
