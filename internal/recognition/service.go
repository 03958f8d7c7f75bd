package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nova-social/nova-faces/internal/config"
	"github.com/nova-social/nova-faces/internal/match"
	"github.com/nova-social/nova-faces/internal/models"
	"github.com/nova-social/nova-faces/internal/observability"
)

// Registration rejections for ambiguous enrollment images. These are user
// input errors, not server faults.
var (
	ErrNoFaceDetected = errors.New("no face detected in image")
	ErrMultipleFaces  = errors.New("more than one face detected in image")
)

// Detector produces face detections for an encoded image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]models.Detection, error)
}

// Store is the gallery persistence consumed by the service.
type Store interface {
	InsertFace(ctx context.Context, rec *models.FaceEmbeddingRecord) error
	ListFacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.FaceEmbeddingRecord, error)
	ListAllFaces(ctx context.Context) ([]models.FaceEmbeddingRecord, error)
	DeleteFacesByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// ImageStore holds enrollment source images. Optional: a nil ImageStore
// disables source image persistence.
type ImageStore interface {
	PutImage(ctx context.Context, key string, data []byte, contentType string) error
	GetImage(ctx context.Context, key string) ([]byte, error)
	DeleteImage(ctx context.Context, key string) error
	DeleteImages(ctx context.Context, keys []string) error
}

// Service composes the detector, gallery store and matcher into the
// user-facing recognition operations.
type Service struct {
	detector Detector
	store    Store
	media    ImageStore
	cfg      config.MatchingConfig
}

func NewService(detector Detector, store Store, media ImageStore, cfg config.MatchingConfig) *Service {
	if cfg.Threshold == 0 {
		cfg.Threshold = match.DefaultThreshold
	}
	if cfg.TopK == 0 {
		cfg.TopK = match.DefaultTopK
	}
	return &Service{detector: detector, store: store, media: media, cfg: cfg}
}

// DetectOnly runs detection without touching the gallery.
func (s *Service) DetectOnly(ctx context.Context, image []byte) ([]models.Detection, error) {
	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	observability.FacesDetected.WithLabelValues("detect").Add(float64(len(detections)))
	return detections, nil
}

// RegisterFace enrolls the single face found in the image under ownerID.
// Images with zero or multiple faces are rejected; either the record and
// its source image are both persisted or neither is.
func (s *Service) RegisterFace(ctx context.Context, ownerID uuid.UUID, image []byte, label string) (string, error) {
	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return "", err
	}

	switch {
	case len(detections) == 0:
		observability.RegistrationRejected.WithLabelValues("no_face").Inc()
		return "", ErrNoFaceDetected
	case len(detections) > 1:
		observability.RegistrationRejected.WithLabelValues("multiple_faces").Inc()
		return "", fmt.Errorf("%w: found %d", ErrMultipleFaces, len(detections))
	}

	if label == "" {
		label = fmt.Sprintf("Face-%d", time.Now().Unix())
	}

	var sourceKey string
	if s.media != nil {
		sourceKey = fmt.Sprintf("faces/%s/%s.jpg", ownerID, uuid.New())
		if err := s.media.PutImage(ctx, sourceKey, image, "image/jpeg"); err != nil {
			return "", fmt.Errorf("store source image: %w", err)
		}
	}

	rec := &models.FaceEmbeddingRecord{
		OwnerID:   ownerID,
		Embedding: detections[0].Embedding,
		Label:     label,
		SourceKey: sourceKey,
	}
	if err := s.store.InsertFace(ctx, rec); err != nil {
		if sourceKey != "" {
			if delErr := s.media.DeleteImage(ctx, sourceKey); delErr != nil {
				slog.Warn("remove orphaned source image", "key", sourceKey, "error", delErr)
			}
		}
		return "", err
	}

	observability.FacesRegistered.Inc()
	slog.Info("face registered", "owner", ownerID, "label", label)
	return label, nil
}

// Recognize detects every face in the image and ranks each one against
// the full gallery. Matching runs concurrently per face; the result slice
// follows detection order regardless of completion order. Zero detections
// yield an empty slice.
func (s *Service) Recognize(ctx context.Context, image []byte, threshold float64) ([]models.RecognizedFace, error) {
	if threshold <= 0 {
		threshold = s.cfg.Threshold
	}

	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	observability.FacesDetected.WithLabelValues("recognize").Add(float64(len(detections)))
	if len(detections) == 0 {
		return []models.RecognizedFace{}, nil
	}

	candidates, err := s.store.ListAllFaces(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.RecognizedFace, len(detections))
	errs := make([]error, len(detections))

	var wg sync.WaitGroup
	for i, det := range detections {
		wg.Add(1)
		go func(i int, det models.Detection) {
			defer wg.Done()
			matches, err := match.Find(det.Embedding, candidates, threshold)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = models.RecognizedFace{
				Detection: det,
				Matches:   match.Top(matches, s.cfg.TopK),
			}
		}(i, det)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	observability.FacesMatched.Add(float64(len(results)))
	return results, nil
}

// AnalyzePublication recognizes faces in every image of a publication,
// concurrently across images. A failure for one image is captured in its
// report entry and does not abort or cancel the others; TotalFaces counts
// successful images only.
func (s *Service) AnalyzePublication(ctx context.Context, images []models.PublicationImage) (*models.PublicationReport, error) {
	reports := make([]models.ImageReport, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img models.PublicationImage) {
			defer wg.Done()
			reports[i] = s.analyzeImage(ctx, img)
		}(i, img)
	}
	wg.Wait()

	report := &models.PublicationReport{PerImage: reports}
	for _, r := range reports {
		report.TotalFaces += r.FaceCount
	}

	observability.PublicationsAnalyzed.Inc()
	return report, nil
}

func (s *Service) analyzeImage(ctx context.Context, img models.PublicationImage) models.ImageReport {
	data := img.Data
	if len(data) == 0 && img.StorageKey != "" {
		if s.media == nil {
			return models.ImageReport{ImageID: img.ImageID, Error: "no media store configured for storage keys"}
		}
		var err error
		data, err = s.media.GetImage(ctx, img.StorageKey)
		if err != nil {
			return models.ImageReport{ImageID: img.ImageID, Error: err.Error()}
		}
	}

	faces, err := s.Recognize(ctx, data, 0)
	if err != nil {
		return models.ImageReport{ImageID: img.ImageID, Error: err.Error()}
	}

	return models.ImageReport{
		ImageID:   img.ImageID,
		Faces:     faces,
		FaceCount: len(faces),
	}
}

// ListOwnerEmbeddings returns the owner's enrolled records without
// embedding vectors.
func (s *Service) ListOwnerEmbeddings(ctx context.Context, ownerID uuid.UUID) ([]models.FaceEmbeddingRecord, error) {
	return s.store.ListFacesByOwner(ctx, ownerID)
}

// DeleteOwnerEmbeddings removes every record owned by ownerID and reports
// the count. Stored source images are removed best effort afterwards.
// Deleting an owner with no records returns 0 without error.
func (s *Service) DeleteOwnerEmbeddings(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var sourceKeys []string
	if s.media != nil {
		records, err := s.store.ListFacesByOwner(ctx, ownerID)
		if err != nil {
			return 0, err
		}
		for _, rec := range records {
			if rec.SourceKey != "" {
				sourceKeys = append(sourceKeys, rec.SourceKey)
			}
		}
	}

	deleted, err := s.store.DeleteFacesByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	if len(sourceKeys) > 0 {
		if err := s.media.DeleteImages(ctx, sourceKeys); err != nil {
			slog.Warn("delete source images", "owner", ownerID, "error", err)
		}
	}

	if deleted > 0 {
		slog.Info("owner embeddings deleted", "owner", ownerID, "count", deleted)
	}
	return deleted, nil
}
