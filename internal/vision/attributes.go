package vision

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// genderAge holds the predicted demographic attributes for one face.
type genderAge struct {
	gender            string // "male" or "female"
	genderProbability float32
	age               float32
}

// attributePredictor runs the InsightFace genderage model.
type attributePredictor struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

func newAttributePredictor(modelPath string) (*attributePredictor, error) {
	inputW, inputH := 96, 96

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"data"}, []string{"fc1"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create attribute session: %w", err)
	}

	return &attributePredictor{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

func (p *attributePredictor) predict(faceData []float32) (*genderAge, error) {
	copy(p.inputTensor.GetData(), faceData)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("run attributes: %w", err)
	}

	data := p.outputTensor.GetData()
	if len(data) < 3 {
		return nil, fmt.Errorf("unexpected output size: %d", len(data))
	}

	genderScore := data[0]
	age := data[1]
	if age < 0 {
		age = 0
	}

	gender := "female"
	genderProb := 1 - genderScore
	if genderScore > 0.5 {
		gender = "male"
		genderProb = genderScore
	}

	return &genderAge{
		gender:            gender,
		genderProbability: genderProb,
		age:               age,
	}, nil
}

func (p *attributePredictor) close() {
	if p.session != nil {
		p.session.Destroy()
	}
	if p.inputTensor != nil {
		p.inputTensor.Destroy()
	}
	if p.outputTensor != nil {
		p.outputTensor.Destroy()
	}
}
