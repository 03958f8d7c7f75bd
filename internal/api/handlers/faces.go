package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/api/ws"
	"github.com/nova-social/nova-faces/internal/recognition"
	"github.com/nova-social/nova-faces/internal/vision"
	"github.com/nova-social/nova-faces/pkg/dto"
)

type FaceHandler struct {
	svc *recognition.Service
	hub *ws.Hub
}

func NewFaceHandler(svc *recognition.Service, hub *ws.Hub) *FaceHandler {
	return &FaceHandler{svc: svc, hub: hub}
}

// imageBytes turns a request image field into bytes the vision codec
// accepts. Data URIs pass through untouched; anything else is treated
// as plain base64.
func imageBytes(field string) ([]byte, error) {
	if strings.HasPrefix(field, "data:") {
		return []byte(field), nil
	}
	return base64.StdEncoding.DecodeString(field)
}

// statusFor maps service errors onto HTTP status codes. Undecodable
// images and ambiguous enrollments are client errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vision.ErrImageDecode):
		return http.StatusBadRequest
	case errors.Is(err, recognition.ErrNoFaceDetected),
		errors.Is(err, recognition.ErrMultipleFaces):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Detect runs face detection only, without touching the gallery.
func (h *FaceHandler) Detect(c *gin.Context) {
	var req dto.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := imageBytes(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return
	}

	detections, err := h.svc.DetectOnly(c.Request.Context(), data)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.DetectResponse{Faces: detections, Total: len(detections)})
}

// Register enrolls the single face in the image under the given owner.
func (h *FaceHandler) Register(c *gin.Context) {
	var req dto.RegisterFaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := imageBytes(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return
	}

	label, err := h.svc.RegisterFace(c.Request.Context(), req.OwnerID, data, req.Label)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.hub.BroadcastEvent(&dto.WSEvent{
		Type:    "face_registered",
		OwnerID: req.OwnerID.String(),
		Data:    gin.H{"label": label},
	})

	c.JSON(http.StatusCreated, dto.RegisterFaceResponse{
		OwnerID: req.OwnerID,
		Label:   label,
		Status:  "registered",
	})
}

// Recognize detects all faces in the image and ranks each against the
// gallery.
func (h *FaceHandler) Recognize(c *gin.Context) {
	var req dto.RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := imageBytes(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return
	}

	faces, err := h.svc.Recognize(c.Request.Context(), data, req.Threshold)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RecognizeResponse{Faces: faces, Total: len(faces)})
}

// ListOwnerFaces returns the owner's enrolled faces without embeddings.
func (h *FaceHandler) ListOwnerFaces(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner id"})
		return
	}

	records, err := h.svc.ListOwnerEmbeddings(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.OwnerFaceResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, dto.OwnerFaceResponse{
			ID:        rec.ID,
			Label:     rec.Label,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
			HasImage:  rec.SourceKey != "",
		})
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

// DeleteOwnerFaces removes every face enrolled for the owner. Deleting
// an owner with no faces succeeds with a zero count.
func (h *FaceHandler) DeleteOwnerFaces(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner id"})
		return
	}

	deleted, err := h.svc.DeleteOwnerEmbeddings(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.DeleteOwnerFacesResponse{OwnerID: ownerID, Deleted: deleted})
}
