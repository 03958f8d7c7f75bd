package models

import (
	"time"

	"github.com/google/uuid"
)

// PublicationImage is one image of a publication submitted for analysis.
// Data carries inline image bytes; StorageKey points at an object in the
// media bucket instead. Exactly one of the two should be set.
type PublicationImage struct {
	ImageID    string `json:"image_id"`
	Data       []byte `json:"data,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
}

// ImageReport is the per-image outcome of a publication analysis. A failed
// image carries Error and a zero FaceCount; its siblings are unaffected.
type ImageReport struct {
	ImageID   string           `json:"image_id"`
	Faces     []RecognizedFace `json:"faces,omitempty"`
	FaceCount int              `json:"face_count"`
	Error     string           `json:"error,omitempty"`
}

// PublicationReport aggregates the per-image reports. TotalFaces counts
// only images that analyzed successfully.
type PublicationReport struct {
	PerImage   []ImageReport `json:"per_image"`
	TotalFaces int           `json:"total_faces"`
}

// AnalysisJob is the message published to NATS for async publication
// analysis by the worker.
type AnalysisJob struct {
	JobID         uuid.UUID          `json:"job_id"`
	PublicationID string             `json:"publication_id"`
	Images        []PublicationImage `json:"images"`
	SubmittedAt   time.Time          `json:"submitted_at"`
}

// AnalysisResult is the event published back once a job completes.
type AnalysisResult struct {
	JobID         uuid.UUID         `json:"job_id"`
	PublicationID string            `json:"publication_id"`
	Report        PublicationReport `json:"report"`
	CompletedAt   time.Time         `json:"completed_at"`
}
