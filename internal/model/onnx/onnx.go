// Package onnx runs exported binary classifiers through ONNX Runtime.
//
// Logits wraps a network whose single output is a raw logit per row and satisfies
// evaluation.Differentiable. Classifier wraps an estimator exported with separate
// label and probability outputs and satisfies evaluation.Estimator.
package onnx

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyBatch is returned when inference is requested for zero rows.
var ErrEmptyBatch = errors.New("onnx: empty input batch")

const (
	defaultLabelOutput = "label"
	defaultProbaOutput = "probabilities"
)

// Logits is a differentiable network exported to ONNX. Inference in ONNX Runtime never
// records gradients, so it needs no no-grad handling.
type Logits struct {
	session *session
}

// NewLogits loads the model described by cfg.
func NewLogits(cfg Config) (*Logits, error) {
	sess, err := newSession(cfg, cfg.Output)
	if err != nil {
		return nil, err
	}
	if rank := len(sess.outputs[0].Dimensions); rank != 1 && rank != 2 {
		sess.close()
		return nil, fmt.Errorf("onnx: expected 1D or 2D logits tensor, got %v", sess.outputs[0].Dimensions)
	}
	return &Logits{session: sess}, nil
}

// Forward returns one raw logit per row of x.
func (m *Logits) Forward(x mat.Matrix) ([]float64, error) {
	rows, _ := x.Dims()
	if rows == 0 {
		return nil, ErrEmptyBatch
	}
	shape := m.session.outputShape(0, int64(rows))
	if shape.FlattenedSize() != int64(rows) {
		return nil, fmt.Errorf("onnx: logits tensor %v holds more than one value per row", shape)
	}

	tOut, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := m.session.run(x, tOut); err != nil {
		return nil, err
	}

	// Copy data out before tensor is destroyed.
	src := tOut.GetData()
	logits := make([]float64, len(src))
	for i, v := range src {
		logits[i] = float64(v)
	}
	return logits, nil
}

// Close releases ONNX Runtime resources.
func (m *Logits) Close() error {
	return m.session.close()
}

// Classifier is an estimator exported to ONNX with an int64 label output and a
// [batch, 2] float32 probability output.
type Classifier struct {
	session *session
}

// NewClassifier loads the model described by cfg.
func NewClassifier(cfg Config) (*Classifier, error) {
	labelName, probaName := cfg.LabelOutput, cfg.ProbaOutput
	if labelName == "" {
		labelName = defaultLabelOutput
	}
	if probaName == "" {
		probaName = defaultProbaOutput
	}

	sess, err := newSession(cfg, labelName, probaName)
	if err != nil {
		return nil, err
	}
	if dims := sess.outputs[1].Dimensions; len(dims) != 2 || (dims[1] > 0 && dims[1] != 2) {
		sess.close()
		return nil, fmt.Errorf("onnx: expected [batch, 2] probability tensor, got %v", dims)
	}
	return &Classifier{session: sess}, nil
}

// Predict returns the model's label for every row of x.
func (c *Classifier) Predict(x mat.Matrix) ([]int, error) {
	labels, _, err := c.infer(x)
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// PredictProba returns the rows x 2 class probability matrix for x.
func (c *Classifier) PredictProba(x mat.Matrix) (mat.Matrix, error) {
	_, proba, err := c.infer(x)
	if err != nil {
		return nil, err
	}
	return proba, nil
}

func (c *Classifier) infer(x mat.Matrix) ([]int, *mat.Dense, error) {
	rows, _ := x.Dims()
	if rows == 0 {
		return nil, nil, ErrEmptyBatch
	}

	tLabel, err := ort.NewEmptyTensor[int64](c.session.outputShape(0, int64(rows)))
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create label tensor: %w", err)
	}
	defer tLabel.Destroy()

	tProba, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(rows), 2))
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create probability tensor: %w", err)
	}
	defer tProba.Destroy()

	if err := c.session.run(x, tLabel, tProba); err != nil {
		return nil, nil, err
	}

	rawLabels := tLabel.GetData()
	labels := make([]int, len(rawLabels))
	for i, l := range rawLabels {
		labels[i] = int(l)
	}

	rawProba := tProba.GetData()
	proba := make([]float64, len(rawProba))
	for i, p := range rawProba {
		proba[i] = float64(p)
	}
	return labels, mat.NewDense(rows, 2, proba), nil
}

// Close releases ONNX Runtime resources.
func (c *Classifier) Close() error {
	return c.session.close()
}
