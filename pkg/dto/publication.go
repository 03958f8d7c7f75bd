package dto

import (
	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/models"
)

// PublicationImageInput is one image of a publication. Image carries
// inline base64 data; StorageKey references an already-uploaded object
// in the media bucket. Exactly one of the two must be set.
type PublicationImageInput struct {
	ImageID    string `json:"image_id" binding:"required"`
	Image      string `json:"image,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
}

type AnalyzePublicationRequest struct {
	PublicationID string                  `json:"publication_id" binding:"required"`
	Images        []PublicationImageInput `json:"images" binding:"required"`
}

type AnalyzePublicationResponse struct {
	PublicationID string                    `json:"publication_id"`
	Report        *models.PublicationReport `json:"report"`
}

type AnalyzeAsyncResponse struct {
	JobID         uuid.UUID `json:"job_id"`
	PublicationID string    `json:"publication_id"`
	Status        string    `json:"status"`
}

// WSEvent is the envelope broadcast to WebSocket subscribers.
// Type is "face_registered" or "publication_analyzed".
type WSEvent struct {
	Type    string      `json:"type"`
	OwnerID string      `json:"owner_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
