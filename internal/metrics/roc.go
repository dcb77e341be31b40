package metrics

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ROC is a receiver operating characteristic curve. TPR[i] and FPR[i] are the true and
// false positive rates when observations with score >= Thresholds[i] are predicted positive.
// Thresholds are in descending order and start at +Inf.
type ROC struct {
	TPR        []float64
	FPR        []float64
	Thresholds []float64
}

// NewROC builds the curve over every distinct score. It returns false when the labels
// contain only one class, since one of the rates is then undefined.
// Inputs are expected to be validated; they are not modified.
func NewROC(labels []int, scores []float64) (ROC, bool) {
	classes := make([]bool, len(labels))
	var positives int
	for i, l := range labels {
		classes[i] = l == 1
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == len(labels) {
		return ROC{}, false
	}

	y := make([]float64, len(scores))
	copy(y, scores)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	return ROC{TPR: tpr, FPR: fpr, Thresholds: thresh}, true
}

// AUC integrates the curve with the trapezoidal rule.
func (r ROC) AUC() float64 {
	return integrate.Trapezoidal(r.FPR, r.TPR)
}

// YoudenJ returns the threshold maximizing TPR-FPR and the J value reached there.
// On ties the highest threshold wins.
func (r ROC) YoudenJ() (threshold, j float64) {
	best := 0
	bestJ := math.Inf(-1)
	for i := range r.Thresholds {
		if cur := r.TPR[i] - r.FPR[i]; cur > bestJ {
			best, bestJ = i, cur
		}
	}
	return r.Thresholds[best], bestJ
}

// ROCAUC returns the area under the ROC curve of scores against labels.
// The second result is false when labels contain only one class.
func ROCAUC(labels []int, scores []float64) (float64, bool) {
	roc, ok := NewROC(labels, scores)
	if !ok {
		return 0, false
	}
	return roc.AUC(), true
}

// MaximizeYoudenJ selects the decision threshold that maximizes Youden's J statistic
// (TPR-FPR) over all cut points of the ROC curve of scores against labels.
// Observations with score >= threshold are meant to be predicted positive.
//
// If no cut point beats the trivial one, the returned threshold is +Inf.
func MaximizeYoudenJ(labels []int, scores []float64) (float64, error) {
	if len(labels) == 0 {
		return 0, newValidationError("labels", -1, ErrEmptyInput, "at least one observation required")
	}
	if len(scores) != len(labels) {
		return 0, newValidationError("scores", -1, ErrLengthMismatch,
			"got %d values, want %d", len(scores), len(labels))
	}
	if err := validateLabels("labels", labels); err != nil {
		return 0, err
	}
	if err := validateScores("scores", scores); err != nil {
		return 0, err
	}

	roc, ok := NewROC(labels, scores)
	if !ok {
		return 0, newValidationError("labels", -1, ErrSingleClass, "threshold is undefined")
	}

	threshold, j := roc.YoudenJ()
	slog.Debug("youden threshold selected", "threshold", threshold, "j", j)
	return threshold, nil
}
