// Package metrics computes binary classification metrics (accuracy, precision, recall, F1, ROC AUC)
// and renders them as a plain text report.
package metrics

import (
	"io"
	"log/slog"
	"math"
)

// Metric names, in the order they are reported.
const (
	Accuracy  = "Accuracy"
	Precision = "Precision"
	Recall    = "Recall"
	F1Score   = "F1-score"
	AUC       = "AUC"
)

// Names lists every metric carried by a Report, in report order.
var Names = []string{Accuracy, Precision, Recall, F1Score, AUC}

// Report is the result of a single evaluation. All five metrics are always present;
// AUC is meaningful only when AUCDefined is true.
type Report struct {
	Accuracy   float64
	Precision  float64
	Recall     float64
	F1         float64
	AUC        float64
	AUCDefined bool
	Confusion  Confusion
}

// Value returns the score stored under one of the metric names.
// The second result is false for an unknown name and for an undefined AUC.
func (r Report) Value(name string) (float64, bool) {
	switch name {
	case Accuracy:
		return r.Accuracy, true
	case Precision:
		return r.Precision, true
	case Recall:
		return r.Recall, true
	case F1Score:
		return r.F1, true
	case AUC:
		return r.AUC, r.AUCDefined
	}
	return 0, false
}

// Compute validates the inputs and calculates the report.
//
// trueLabels and predictedLabels must be non-empty, of equal length and contain only 0 and 1.
// probabilities is optional (nil); when present it must have the same length and no NaN values.
// AUC is left undefined when probabilities are absent or trueLabels contain a single class.
func Compute(trueLabels, predictedLabels []int, probabilities []float64) (Report, error) {
	if err := validate(trueLabels, predictedLabels, probabilities); err != nil {
		return Report{}, err
	}

	c := NewConfusion(trueLabels, predictedLabels)
	report := Report{
		Accuracy:  c.Accuracy(),
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
		Confusion: c,
	}

	if c.TP+c.FP == 0 {
		slog.Warn("precision is ill-defined, no predicted positives", "value", 0)
	}
	if c.TP+c.FN == 0 {
		slog.Warn("recall is ill-defined, no true positives", "value", 0)
	}

	if probabilities == nil {
		slog.Debug("no probabilities supplied, AUC undefined")
		return report, nil
	}

	report.AUC, report.AUCDefined = ROCAUC(trueLabels, probabilities)
	if !report.AUCDefined {
		slog.Warn("only one class present in true labels, AUC undefined")
	}

	return report, nil
}

// Evaluate computes the report and writes it to w (see Print). descr may be empty.
func Evaluate(w io.Writer, descr string, trueLabels, predictedLabels []int, probabilities []float64) (Report, error) {
	report, err := Compute(trueLabels, predictedLabels, probabilities)
	if err != nil {
		return Report{}, err
	}

	if err := Print(w, descr, report); err != nil {
		return report, err
	}

	return report, nil
}

func validate(trueLabels, predictedLabels []int, probabilities []float64) error {
	if len(trueLabels) == 0 {
		return newValidationError("trueLabels", -1, ErrEmptyInput, "at least one observation required")
	}
	if len(predictedLabels) != len(trueLabels) {
		return newValidationError("predictedLabels", -1, ErrLengthMismatch,
			"got %d values, want %d", len(predictedLabels), len(trueLabels))
	}
	if probabilities != nil && len(probabilities) != len(trueLabels) {
		return newValidationError("probabilities", -1, ErrLengthMismatch,
			"got %d values, want %d", len(probabilities), len(trueLabels))
	}
	if err := validateLabels("trueLabels", trueLabels); err != nil {
		return err
	}
	if err := validateLabels("predictedLabels", predictedLabels); err != nil {
		return err
	}
	return validateScores("probabilities", probabilities)
}

func validateLabels(field string, labels []int) error {
	for i, l := range labels {
		if l != 0 && l != 1 {
			return newValidationError(field, i, ErrLabelDomain, "got %d", l)
		}
	}
	return nil
}

func validateScores(field string, scores []float64) error {
	for i, s := range scores {
		if math.IsNaN(s) {
			return newValidationError(field, i, ErrInvalidScore, "scores must be comparable")
		}
	}
	return nil
}
