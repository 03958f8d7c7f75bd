package dto

import (
	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/models"
)

// Image fields accept either a plain base64 payload or a full data URI
// (data:image/png;base64,...) as sent by browsers.

type DetectRequest struct {
	Image string `json:"image" binding:"required"`
}

type DetectResponse struct {
	Faces []models.Detection `json:"faces"`
	Total int                `json:"total"`
}

type RegisterFaceRequest struct {
	OwnerID uuid.UUID `json:"owner_id" binding:"required"`
	Image   string    `json:"image" binding:"required"`
	Label   string    `json:"label"`
}

type RegisterFaceResponse struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Label   string    `json:"label"`
	Status  string    `json:"status"`
}

type RecognizeRequest struct {
	Image string `json:"image" binding:"required"`
	// Threshold overrides the configured matching threshold when > 0.
	Threshold float64 `json:"threshold"`
}

type RecognizeResponse struct {
	Faces []models.RecognizedFace `json:"faces"`
	Total int                     `json:"total"`
}

// OwnerFaceResponse is the listing projection of an enrolled face.
// Embedding vectors never leave the service.
type OwnerFaceResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	CreatedAt string    `json:"created_at"`
	HasImage  bool      `json:"has_image"`
}

type DeleteOwnerFacesResponse struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Deleted int       `json:"deleted"`
}
