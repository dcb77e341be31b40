package evaluation

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ModelKind selects the inference path used by Evaluate.
type ModelKind int

const (
	// KindEstimator is a discrete-prediction estimator exposing Predict and PredictProba.
	KindEstimator ModelKind = iota
	// KindDifferentiable is a tensor model whose forward pass returns raw logits.
	KindDifferentiable
)

var ErrUnknownModelKind = errors.New("unknown model kind")

// ErrModelInterface is returned when a model does not implement the interface its kind requires.
var ErrModelInterface = errors.New("model does not implement the required interface")

func (k ModelKind) String() string {
	switch k {
	case KindEstimator:
		return "estimator"
	case KindDifferentiable:
		return "differentiable"
	}
	return fmt.Sprintf("ModelKind(%d)", int(k))
}

// ParseModelKind maps a textual model tag to a ModelKind. Comparison is by value and
// case-insensitive; "sklearn" is accepted for estimators, "torch", "tensor" and "onnx"
// for differentiable models.
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sklearn", "estimator":
		return KindEstimator, nil
	case "differentiable", "torch", "tensor", "onnx":
		return KindDifferentiable, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModelKind, s)
}

// Estimator is a classic classifier. Predict returns one 0/1 label per input row.
// PredictProba returns a rows x 2 matrix of [negative, positive] class probabilities.
type Estimator interface {
	Predict(x mat.Matrix) ([]int, error)
	PredictProba(x mat.Matrix) (mat.Matrix, error)
}

// Differentiable is a tensor model. Forward returns one raw (pre-sigmoid) logit per input row.
type Differentiable interface {
	Forward(x mat.Matrix) ([]float64, error)
}

// GradientTracker is implemented by models that record a computation graph during
// the forward pass. SetGradEnabled switches recording and returns the previous setting.
type GradientTracker interface {
	SetGradEnabled(enabled bool) bool
}

// NoGrad runs fn with gradient recording disabled on model, if model supports it.
// The previous setting is restored when fn returns, whether or not it fails.
func NoGrad(model any, fn func() error) error {
	if gt, ok := model.(GradientTracker); ok {
		prev := gt.SetGradEnabled(false)
		defer gt.SetGradEnabled(prev)
	}
	return fn()
}
