package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nova-social/nova-faces/internal/models"
)

// expressionClassifier scores a face crop against the seven expression
// classes in models.ExpressionLabels.
type expressionClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

func newExpressionClassifier(modelPath string) (*expressionClassifier, error) {
	inputW, inputH := 64, 64

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(models.ExpressionLabels))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"scores"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create expression session: %w", err)
	}

	return &expressionClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// classify returns a probability per expression label. The model emits raw
// logits; softmax brings each score into [0, 1].
func (c *expressionClassifier) classify(faceData []float32) (map[string]float32, error) {
	copy(c.inputTensor.GetData(), faceData)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run expression: %w", err)
	}

	logits := c.outputTensor.GetData()
	if len(logits) < len(models.ExpressionLabels) {
		return nil, fmt.Errorf("unexpected output size: %d", len(logits))
	}

	probs := softmax(logits[:len(models.ExpressionLabels)])

	scores := make(map[string]float32, len(models.ExpressionLabels))
	for i, label := range models.ExpressionLabels {
		scores[label] = probs[i]
	}
	return scores, nil
}

func (c *expressionClassifier) close() {
	if c.session != nil {
		c.session.Destroy()
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
}

func softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
