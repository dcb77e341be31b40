package evaluation

import (
	"bytes"
	"io"
	"testing"

	"evalkit/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWithThreshold_Explicit(t *testing.T) {
	scores := []float64{0.9, 0.6, 0.59, 0.1}
	labels := []int{1, 0, 1, 0}

	threshold, report, err := ThresholdReport(scores, labels, WithThreshold(0.6), WithOutput(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, 0.6, threshold)
	// Predictions are [1 1 0 0]: 0.6 is on the positive side, 0.59 is not.
	assert.Equal(t, metrics.Confusion{TP: 1, FP: 1, TN: 1, FN: 1}, report.Confusion)
}

func TestEvaluateWithThreshold_ZeroIsHonored(t *testing.T) {
	scores := []float64{-0.5, 0.0, 0.5}
	labels := []int{0, 1, 1}

	threshold, report, err := ThresholdReport(scores, labels, WithThreshold(0), WithOutput(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, 0.0, threshold)
	assert.InDelta(t, 1.0, report.Accuracy, 1e-12)
}

func TestEvaluateWithThreshold_DerivedFromYoudenJ(t *testing.T) {
	scores := []float64{0.9, 0.4, 0.3, 0.1}
	labels := []int{1, 1, 0, 0}

	var buf bytes.Buffer
	threshold, err := EvaluateWithThreshold(scores, labels, WithDescription("FRAX"), WithOutput(&buf))
	require.NoError(t, err)

	want, err := metrics.MaximizeYoudenJ(labels, scores)
	require.NoError(t, err)
	assert.Equal(t, want, threshold)
	assert.Equal(t, 0.4, threshold)
	assert.Contains(t, buf.String(), "FRAX\n\tAccuracy: 1.0000\n")
}

func TestEvaluateWithThreshold_RoundTrip(t *testing.T) {
	scores := []float64{12.5, 3.1, 8.0, 20.2, 5.5, 9.9, 1.2, 15.0}
	labels := []int{1, 0, 0, 1, 0, 1, 0, 0}

	threshold, derived, err := ThresholdReport(scores, labels, WithOutput(io.Discard))
	require.NoError(t, err)

	again, explicit, err := ThresholdReport(scores, labels, WithThreshold(threshold), WithOutput(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, threshold, again)
	assert.Equal(t, derived, explicit)
}

func TestEvaluateWithThreshold_SingleClassFails(t *testing.T) {
	var buf bytes.Buffer
	_, err := EvaluateWithThreshold([]float64{0.2, 0.8}, []int{0, 0}, WithOutput(&buf))

	assert.ErrorIs(t, err, metrics.ErrSingleClass)
	assert.Empty(t, buf.String())
}

func TestEvaluateWithThreshold_SingleClassWithExplicitThreshold(t *testing.T) {
	var buf bytes.Buffer
	threshold, err := EvaluateWithThreshold([]float64{0.2, 0.8}, []int{0, 0}, WithThreshold(0.5), WithOutput(&buf))
	require.NoError(t, err)

	assert.Equal(t, 0.5, threshold)
	assert.Contains(t, buf.String(), metrics.UndefinedAUC)
}

func TestEvaluateWithThreshold_LengthMismatch(t *testing.T) {
	_, err := EvaluateWithThreshold([]float64{0.2}, []int{0, 1}, WithThreshold(0.5), WithOutput(io.Discard))
	assert.ErrorIs(t, err, metrics.ErrLengthMismatch)
}
