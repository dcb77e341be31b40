package onnx

import (
	"os"
	"testing"

	"evalkit/internal/evaluation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

var (
	_ evaluation.Differentiable = (*Logits)(nil)
	_ evaluation.Estimator      = (*Classifier)(nil)
)

func TestSelectTensor(t *testing.T) {
	infos := []ort.InputOutputInfo{
		{Name: "label", Dimensions: ort.NewShape(-1)},
		{Name: "probabilities", Dimensions: ort.NewShape(-1, 2)},
	}

	first, err := selectTensor(infos, "", "output")
	require.NoError(t, err)
	assert.Equal(t, "label", first.Name)

	named, err := selectTensor(infos, "probabilities", "output")
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(-1, 2), named.Dimensions)

	_, err = selectTensor(infos, "logits", "output")
	assert.ErrorContains(t, err, `missing output "logits"`)

	_, err = selectTensor(nil, "", "input")
	assert.ErrorContains(t, err, "no inputs")
}

func TestFlatten(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	data, rows, cols := flatten(x)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, data)
	assert.Equal(t, int64(2), rows)
	assert.Equal(t, int64(3), cols)

	data, _, _ = flatten(x.T())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, data, "views should be read row by row")
}

func TestOutputShape(t *testing.T) {
	s := &session{outputs: []ort.InputOutputInfo{
		{Name: "logits", Dimensions: ort.NewShape(-1, 1)},
		{Name: "flat", Dimensions: ort.NewShape(-1)},
		{Name: "dynamic", Dimensions: ort.NewShape(-1, -1)},
	}}

	assert.Equal(t, ort.NewShape(8, 1), s.outputShape(0, 8))
	assert.Equal(t, ort.NewShape(8), s.outputShape(1, 8))
	assert.Equal(t, ort.NewShape(8, 1), s.outputShape(2, 8))
	assert.Equal(t, ort.NewShape(-1, 1), s.outputs[0].Dimensions, "model info must not be modified")
}

// Integration tests need a runtime library and exported models; they are skipped otherwise.
func skipIfNoModel(t *testing.T, env string) string {
	t.Helper()
	path := os.Getenv(env)
	if path == "" {
		t.Skipf("%s not set", env)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("model file %s not found", path)
	}
	return path
}

func TestLogitsInference(t *testing.T) {
	path := skipIfNoModel(t, "EVALKIT_TEST_LOGITS_MODEL")

	m, err := NewLogits(Config{Path: path, Library: os.Getenv("EVALKIT_TEST_ORT_LIBRARY")})
	require.NoError(t, err)
	defer m.Close()

	rows := 4
	x := mat.NewDense(rows, int(max(m.session.features, 1)), nil)
	logits, err := m.Forward(x)
	require.NoError(t, err)
	assert.Len(t, logits, rows)
}

func TestClassifierInference(t *testing.T) {
	path := skipIfNoModel(t, "EVALKIT_TEST_CLASSIFIER_MODEL")

	c, err := NewClassifier(Config{Path: path, Library: os.Getenv("EVALKIT_TEST_ORT_LIBRARY")})
	require.NoError(t, err)
	defer c.Close()

	x := mat.NewDense(3, int(max(c.session.features, 1)), nil)
	labels, err := c.Predict(x)
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	proba, err := c.PredictProba(x)
	require.NoError(t, err)
	r, cols := proba.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, cols)
}

func TestForwardEmptyBatch(t *testing.T) {
	m := &Logits{session: &session{}}
	_, err := m.Forward(&mat.Dense{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}
