// Package evaluation produces predictions from a model or from risk scores and scores them
// with the metrics package.
package evaluation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"evalkit/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// ErrProbabilityShape is returned when PredictProba does not yield a two-column matrix.
var ErrProbabilityShape = errors.New("probability matrix must have 2 columns")

type options struct {
	descr     string
	out       io.Writer
	threshold *float64
}

// Option configures Evaluate and EvaluateWithThreshold.
type Option func(*options)

// WithDescription sets the label printed above the report.
func WithDescription(descr string) Option {
	return func(o *options) { o.descr = descr }
}

// WithOutput sets where the report is printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithThreshold fixes the decision threshold used by EvaluateWithThreshold.
// Any value is honored, including 0. Without it the threshold is derived from the data.
func WithThreshold(threshold float64) Option {
	return func(o *options) { o.threshold = &threshold }
}

func newOptions(opts []Option) options {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Evaluate runs inference with model on inputs along the path selected by kind, prints the
// metrics report and returns it.
//
// Estimators supply labels through Predict and the positive-class column of PredictProba.
// Differentiable models are run under NoGrad; their logits go through a sigmoid and
// probabilities above 0.5 are predicted positive.
//
// Errors from the model are returned unchanged.
func Evaluate(model any, inputs mat.Matrix, labels []int, kind ModelKind, opts ...Option) (metrics.Report, error) {
	o := newOptions(opts)

	var (
		predicted     []int
		probabilities []float64
		err           error
	)
	switch kind {
	case KindEstimator:
		predicted, probabilities, err = runEstimator(model, inputs)
	case KindDifferentiable:
		predicted, probabilities, err = runDifferentiable(model, inputs)
	default:
		return metrics.Report{}, fmt.Errorf("%w: %s", ErrUnknownModelKind, kind)
	}
	if err != nil {
		return metrics.Report{}, err
	}

	slog.Debug("inference complete", "kind", kind, "rows", len(predicted))
	return metrics.Evaluate(o.out, o.descr, labels, predicted, probabilities)
}

func runEstimator(model any, inputs mat.Matrix) ([]int, []float64, error) {
	est, ok := model.(Estimator)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T is not an Estimator", ErrModelInterface, model)
	}

	predicted, err := est.Predict(inputs)
	if err != nil {
		return nil, nil, err
	}

	proba, err := est.PredictProba(inputs)
	if err != nil {
		return nil, nil, err
	}
	if _, cols := proba.Dims(); cols != 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrProbabilityShape, cols)
	}

	return predicted, mat.Col(nil, 1, proba), nil
}

func runDifferentiable(model any, inputs mat.Matrix) ([]int, []float64, error) {
	diff, ok := model.(Differentiable)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T is not Differentiable", ErrModelInterface, model)
	}

	var logits []float64
	err := NoGrad(model, func() error {
		var err error
		logits, err = diff.Forward(inputs)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	probabilities := make([]float64, len(logits))
	for i, z := range logits {
		probabilities[i] = Sigmoid(z)
	}
	return binarize(probabilities, 0.5, false), probabilities, nil
}

// EvaluateWithThreshold binarizes scores at a decision threshold, prints the metrics report
// and returns the threshold used.
//
// The threshold comes from WithThreshold when given; otherwise it is the cut point that
// maximizes Youden's J over (labels, scores), and an error is returned if labels hold a
// single class. Scores at or above the threshold are predicted positive.
func EvaluateWithThreshold(scores []float64, labels []int, opts ...Option) (float64, error) {
	threshold, _, err := ThresholdReport(scores, labels, opts...)
	return threshold, err
}

// ThresholdReport behaves like EvaluateWithThreshold and also returns the report.
func ThresholdReport(scores []float64, labels []int, opts ...Option) (float64, metrics.Report, error) {
	o := newOptions(opts)

	var threshold float64
	if o.threshold != nil {
		threshold = *o.threshold
	} else {
		var err error
		threshold, err = metrics.MaximizeYoudenJ(labels, scores)
		if err != nil {
			return 0, metrics.Report{}, fmt.Errorf("selecting threshold: %w", err)
		}
	}

	predicted := binarize(scores, threshold, true)
	report, err := metrics.Evaluate(o.out, o.descr, labels, predicted, scores)
	if err != nil {
		return 0, metrics.Report{}, err
	}

	return threshold, report, nil
}

// Sigmoid is the logistic function.
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// binarize predicts 1 for scores above threshold, or at it too when inclusive is set.
func binarize(scores []float64, threshold float64, inclusive bool) []int {
	predicted := make([]int, len(scores))
	for i, s := range scores {
		if s > threshold || (inclusive && s == threshold) {
			predicted[i] = 1
		}
	}
	return predicted
}
