package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evalkit/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoredData = `
labels: [1, 0, 1, 0]
predictions: [1, 1, 0, 0]
probabilities: [0.9, 0.7, 0.5, 0.2]
scores: [0.9, 0.7, 0.5, 0.2]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := newCommand(&out, &errOut).Run(context.Background(), append([]string{"evalkit"}, args...))
	return out.String(), errOut.String(), err
}

func TestMetricsCommand(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)

	out, _, err := run(t, "--descr", "holdout", "metrics", "--data", data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "holdout\n"), "description should lead the report")
	assert.Contains(t, out, "\tAccuracy: 0.5000\n")
	assert.Contains(t, out, "\tF1-score: 0.5000\n")
	assert.Contains(t, out, "\tAUC: 0.7500\n")
}

func TestMetricsCommand_JSON(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)

	out, errOut, err := run(t, "--format", "json", "metrics", "--data", data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.InDelta(t, 0.5, decoded["Accuracy"], 1e-9)
	assert.InDelta(t, 0.75, decoded["AUC"], 1e-9)
	assert.Contains(t, errOut, "\tAccuracy: 0.5000\n", "text report moves to stderr")
}

func TestMetricsCommand_MissingPredictions(t *testing.T) {
	data := writeFile(t, "data.yaml", "labels: [1, 0]\nscores: [0.4, 0.1]\n")

	_, _, err := run(t, "metrics", "--data", data)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestFraxCommand_ExplicitThreshold(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)

	out, _, err := run(t, "frax", "--data", data, "--threshold", "0.6")
	require.NoError(t, err)

	assert.Contains(t, out, "\tAccuracy: 0.5000\n")
	assert.Contains(t, out, "\tThreshold: 0.6000\n")
}

func TestFraxCommand_DerivedThreshold(t *testing.T) {
	data := writeFile(t, "data.yaml", "labels: [1, 1, 0, 0]\nscores: [0.9, 0.4, 0.3, 0.1]\n")

	out, _, err := run(t, "frax", "--data", data)
	require.NoError(t, err)

	assert.Contains(t, out, "\tAccuracy: 1.0000\n")
	assert.Contains(t, out, "\tThreshold: 0.4000\n")
}

func TestGateFailure(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)
	config := writeFile(t, "config.yaml", `
logger:
  level: error
gates:
  - name: accuracy-floor
    when: accuracy >= 0.9
`)

	_, _, err := run(t, "--config", config, "metrics", "--data", data)
	require.ErrorIs(t, err, ErrGateFailed)
	assert.Contains(t, err.Error(), "accuracy-floor")
}

func TestHistoryAppend(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)
	history := filepath.Join(t.TempDir(), "history.jsonl")
	config := writeFile(t, "config.yaml", "report:\n  history:\n    file: "+history+"\n")

	_, _, err := run(t, "--config", config, "--descr", "nightly", "frax", "--data", data, "--threshold", "0.6")
	require.NoError(t, err)

	content, err := os.ReadFile(history)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"descr":"nightly"`)
}

func TestRunCommand_NoModel(t *testing.T) {
	data := writeFile(t, "data.yaml", "labels: [1, 0]\nfeatures:\n  - [0.1]\n  - [0.2]\n")

	_, _, err := run(t, "run", "--data", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model path")
}

func TestRunCommand_UnknownKind(t *testing.T) {
	data := writeFile(t, "data.yaml", "labels: [1, 0]\nfeatures:\n  - [0.1]\n  - [0.2]\n")

	_, _, err := run(t, "run", "--data", data, "--model", "model.onnx", "--kind", "xgboost")
	assert.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)

	_, _, err := run(t, "--format", "xml", "metrics", "--data", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")
}

func TestGatesFile(t *testing.T) {
	data := writeFile(t, "data.yaml", scoredData)
	gates := writeFile(t, "gates.yaml", "- name: auc-floor\n  when: aucDefined && auc >= 0.7\n- name: recall-floor\n  when: recall >= 0.8\n")
	config := writeFile(t, "config.yaml", "gates_file: "+gates+"\n")

	_, _, err := run(t, "--config", config, "metrics", "--data", data)
	require.ErrorIs(t, err, ErrGateFailed)
	assert.Contains(t, err.Error(), "recall-floor")
	assert.NotContains(t, err.Error(), "auc-floor")
}
