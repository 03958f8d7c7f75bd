package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/models"
	"github.com/nova-social/nova-faces/internal/queue"
	"github.com/nova-social/nova-faces/internal/recognition"
	"github.com/nova-social/nova-faces/pkg/dto"
)

type PublicationHandler struct {
	svc      *recognition.Service
	producer *queue.Producer
}

func NewPublicationHandler(svc *recognition.Service, producer *queue.Producer) *PublicationHandler {
	return &PublicationHandler{svc: svc, producer: producer}
}

func publicationImages(inputs []dto.PublicationImageInput) ([]models.PublicationImage, error) {
	images := make([]models.PublicationImage, 0, len(inputs))
	for _, in := range inputs {
		img := models.PublicationImage{ImageID: in.ImageID, StorageKey: in.StorageKey}
		if in.Image != "" {
			data, err := imageBytes(in.Image)
			if err != nil {
				return nil, err
			}
			img.Data = data
		}
		images = append(images, img)
	}
	return images, nil
}

// Analyze runs recognition over all publication images synchronously
// and returns the full report.
func (h *PublicationHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := publicationImages(req.Images)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return
	}

	report, err := h.svc.AnalyzePublication(c.Request.Context(), images)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.AnalyzePublicationResponse{
		PublicationID: req.PublicationID,
		Report:        report,
	})
}

// AnalyzeAsync enqueues the publication for background analysis. The
// report is published on the results stream and broadcast over
// WebSocket when the worker finishes.
func (h *PublicationHandler) AnalyzeAsync(c *gin.Context) {
	var req dto.AnalyzePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.producer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async analysis not available"})
		return
	}

	images, err := publicationImages(req.Images)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return
	}

	job := models.AnalysisJob{
		JobID:         uuid.New(),
		PublicationID: req.PublicationID,
		Images:        images,
		SubmittedAt:   time.Now().UTC(),
	}

	if err := h.producer.PublishJob(c.Request.Context(), job.JobID.String(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.AnalyzeAsyncResponse{
		JobID:         job.JobID,
		PublicationID: req.PublicationID,
		Status:        "queued",
	})
}
