package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nova-social/nova-faces/internal/config"
	"github.com/nova-social/nova-faces/internal/models"
	"github.com/nova-social/nova-faces/internal/observability"
)

// Model files that must exist under Vision.ModelsDir before the adapter
// can initialize.
const (
	detectorModelFile   = "det_10g.onnx"
	embedderModelFile   = "w600k_r50.onnx"
	attributesModelFile = "genderage.onnx"
	expressionModelFile = "expression.onnx"
)

type initState int

const (
	stateUninitialized initState = iota
	stateLoading
	stateReady
	stateFailed
)

// Adapter wraps the ONNX model bundle behind a single Detect call.
//
// Model weights are loaded lazily exactly once; concurrent callers during
// the load wait for the shared in-flight attempt instead of starting their
// own. A failed load leaves the adapter in a failed state and the next
// caller retries.
//
// The underlying sessions reuse preallocated tensors and are not
// reentrant, so inference itself is serialized behind a mutex. Detect may
// be called from any number of goroutines.
type Adapter struct {
	cfg   config.VisionConfig
	codec ImageCodec

	mu      sync.Mutex
	state   initState
	done    chan struct{}
	loadErr error

	inferMu sync.Mutex

	detector   *detector
	embedder   *embedder
	attributes *attributePredictor
	expression *expressionClassifier

	// loadFn performs the actual model load; replaced in tests.
	loadFn func() error
}

// NewAdapter creates an adapter with the given image codec. No model is
// loaded until Initialize or the first Detect.
func NewAdapter(cfg config.VisionConfig, codec ImageCodec) *Adapter {
	a := &Adapter{cfg: cfg, codec: codec}
	a.loadFn = a.loadModels
	return a
}

// Initialize loads the model bundle if it is not loaded yet. Safe to call
// concurrently; all callers of an in-flight load observe its outcome.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case stateReady:
		a.mu.Unlock()
		return nil
	case stateLoading:
		done := a.done
		a.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.mu.Lock()
		err := a.loadErr
		a.mu.Unlock()
		return err
	}

	// Uninitialized or failed: this caller performs the load.
	a.state = stateLoading
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	start := time.Now()
	err := a.loadFn()

	a.mu.Lock()
	a.loadErr = err
	if err != nil {
		a.state = stateFailed
	} else {
		a.state = stateReady
		slog.Info("vision models loaded", "dir", a.cfg.ModelsDir, "took", time.Since(start).String())
	}
	close(done)
	a.mu.Unlock()

	return err
}

func (a *Adapter) loadModels() error {
	paths := map[string]string{
		detectorModelFile:   filepath.Join(a.cfg.ModelsDir, detectorModelFile),
		embedderModelFile:   filepath.Join(a.cfg.ModelsDir, embedderModelFile),
		attributesModelFile: filepath.Join(a.cfg.ModelsDir, attributesModelFile),
		expressionModelFile: filepath.Join(a.cfg.ModelsDir, expressionModelFile),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return &ModelLoadError{Path: p, Err: err}
		}
	}

	det, err := newDetector(paths[detectorModelFile], float32(a.cfg.DetectionThreshold))
	if err != nil {
		return &ModelLoadError{Path: paths[detectorModelFile], Err: err}
	}

	emb, err := newEmbedder(paths[embedderModelFile], a.cfg.EmbeddingDim)
	if err != nil {
		det.close()
		return &ModelLoadError{Path: paths[embedderModelFile], Err: err}
	}

	attr, err := newAttributePredictor(paths[attributesModelFile])
	if err != nil {
		det.close()
		emb.close()
		return &ModelLoadError{Path: paths[attributesModelFile], Err: err}
	}

	expr, err := newExpressionClassifier(paths[expressionModelFile])
	if err != nil {
		det.close()
		emb.close()
		attr.close()
		return &ModelLoadError{Path: paths[expressionModelFile], Err: err}
	}

	a.detector = det
	a.embedder = emb
	a.attributes = attr
	a.expression = expr
	return nil
}

// Detect decodes the image and returns one Detection per face, in the
// order produced by the underlying detector. Zero faces is a normal
// outcome, not an error.
func (a *Adapter) Detect(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	img, err := a.codec.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	a.inferMu.Lock()
	defer a.inferMu.Unlock()

	start := time.Now()
	input := preprocessForDetection(img, a.detector.inputW, a.detector.inputH)
	boxes, err := a.detector.detect(input, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	detections := make([]models.Detection, 0, len(boxes))
	for _, box := range boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		crop := cropFace(img, box.bbox)
		if crop == nil {
			continue
		}

		d := models.Detection{
			BBox:       box.bbox,
			Landmarks:  box.landmarks,
			Confidence: box.confidence,
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, a.embedder.inputW, a.embedder.inputH)
		d.Embedding, err = a.embedder.extract(embInput)
		if err != nil {
			return nil, fmt.Errorf("extract embedding: %w", err)
		}
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		start = time.Now()
		attrInput := preprocessForAttributes(crop, a.attributes.inputW, a.attributes.inputH)
		ga, err := a.attributes.predict(attrInput)
		if err != nil {
			slog.Warn("attribute prediction failed", "error", err)
		} else {
			d.Age = ga.age
			d.Gender = ga.gender
			d.GenderProbability = ga.genderProbability
		}
		observability.InferenceDuration.WithLabelValues("attributes").Observe(time.Since(start).Seconds())

		start = time.Now()
		exprInput := preprocessForExpression(crop, a.expression.inputW, a.expression.inputH)
		d.ExpressionScores, err = a.expression.classify(exprInput)
		if err != nil {
			slog.Warn("expression classification failed", "error", err)
		}
		observability.InferenceDuration.WithLabelValues("expression").Observe(time.Since(start).Seconds())

		detections = append(detections, d)
	}

	return detections, nil
}

// EmbeddingDim returns the configured embedding vector length.
func (a *Adapter) EmbeddingDim() int {
	return a.cfg.EmbeddingDim
}

// Close releases all ONNX sessions.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector != nil {
		a.detector.close()
	}
	if a.embedder != nil {
		a.embedder.close()
	}
	if a.attributes != nil {
		a.attributes.close()
	}
	if a.expression != nil {
		a.expression.close()
	}
	a.state = stateUninitialized
}
