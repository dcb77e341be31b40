package onnx

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Config describes an ONNX model file and the tensors to read from it.
type Config struct {
	// Path to the .onnx file.
	Path string
	// Library is the ONNX Runtime shared library. Defaults to libonnxruntime.so next to the model.
	Library string
	// Input tensor name. Defaults to the model's first input.
	Input string
	// Output is the logits tensor of a differentiable model. Defaults to the first output.
	Output string
	// LabelOutput and ProbaOutput are the tensors of an exported estimator.
	// Default to "label" and "probabilities".
	LabelOutput string
	ProbaOutput string
	// Threads caps intra-op parallelism; 0 keeps the runtime default.
	Threads int
}

// session wraps a DynamicAdvancedSession with a single 2D float input [batch, features].
type session struct {
	session  *ort.DynamicAdvancedSession
	input    string
	features int64 // -1 when the model accepts any width
	outputs  []ort.InputOutputInfo
}

// newSession loads the model and validates that outputNames exist. An empty outputNames
// selects the model's first output.
func newSession(cfg Config, outputNames ...string) (*session, error) {
	libPath := cfg.Library
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(cfg.Path), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	in, err := selectTensor(inputs, cfg.Input, "input")
	if err != nil {
		return nil, err
	}
	if len(in.Dimensions) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D input tensor %q, got %v", in.Name, in.Dimensions)
	}
	if in.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx: input %q must be float32, got %v", in.Name, in.DataType)
	}

	if len(outputNames) == 0 {
		outputNames = []string{""}
	}
	selected := make([]ort.InputOutputInfo, len(outputNames))
	names := make([]string, len(outputNames))
	for i, name := range outputNames {
		out, err := selectTensor(outputs, name, "output")
		if err != nil {
			return nil, err
		}
		selected[i] = out
		names[i] = out.Name
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.Threads > 0 {
		opts.SetIntraOpNumThreads(cfg.Threads)
	}
	opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(cfg.Path, []string{in.Name}, names, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &session{
		session:  sess,
		input:    in.Name,
		features: in.Dimensions[1],
		outputs:  selected,
	}, nil
}

// selectTensor returns the tensor called name, or the first one when name is empty.
func selectTensor(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("onnx: model has no %ss", kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("onnx: model missing %s %q", kind, name)
}

// flatten copies x into a row-major float32 slice.
func flatten(x mat.Matrix) ([]float32, int64, int64) {
	rows, cols := x.Dims()
	data := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, float32(x.At(i, j)))
		}
	}
	return data, int64(rows), int64(cols)
}

// run feeds x to the model and fills outputs, which must match the session's output order.
func (s *session) run(x mat.Matrix, outputs ...ort.Value) error {
	data, rows, cols := flatten(x)
	if s.features > 0 && cols != s.features {
		return fmt.Errorf("onnx: input has %d features, model expects %d", cols, s.features)
	}

	tIn, err := ort.NewTensor(ort.NewShape(rows, cols), data)
	if err != nil {
		return fmt.Errorf("onnx: failed to create %s tensor: %w", s.input, err)
	}
	defer tIn.Destroy()

	if err := s.session.Run([]ort.Value{tIn}, outputs); err != nil {
		return fmt.Errorf("onnx: inference failed: %w", err)
	}
	return nil
}

// outputShape returns the shape for output i given the batch size, keeping the model's rank.
func (s *session) outputShape(i int, rows int64) ort.Shape {
	dims := s.outputs[i].Dimensions
	shape := make(ort.Shape, len(dims))
	for d, n := range dims {
		shape[d] = n
	}
	if len(shape) > 0 {
		shape[0] = rows
	}
	for d := 1; d < len(shape); d++ {
		if shape[d] < 0 {
			shape[d] = 1
		}
	}
	return shape
}

// close releases the ONNX session resources.
func (s *session) close() error {
	return s.session.Destroy()
}
