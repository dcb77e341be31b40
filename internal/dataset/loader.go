package dataset

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gonum.org/v1/gonum/mat"
)

// ErrMissingColumn is returned when a command needs a column the dataset file does not have.
var ErrMissingColumn = errors.New("dataset: missing column")

// Dataset is an evaluation set read from a YAML or JSON file. Only Labels is always
// required; the other columns depend on the command using it.
//
//	labels: [1, 0, 1]
//	predictions: [1, 0, 0]
//	probabilities: [0.8, 0.1, 0.4]
//	scores: [12.5, 3.1, 8.0]
//	features:
//	  - [0.1, 2.0]
//	  - [0.3, 1.5]
//	  - [0.9, 0.2]
type Dataset struct {
	Labels        []int       `yaml:"labels"`
	Predictions   []int       `yaml:"predictions"`
	Probabilities []float64   `yaml:"probabilities"`
	Scores        []float64   `yaml:"scores"`
	Features      [][]float64 `yaml:"features"`
}

// Load reads a dataset file. JSON input is accepted since it is valid YAML.
func Load(file string) (*Dataset, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var ds Dataset
	if err := yaml.Unmarshal(content, &ds); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", file, err)
	}
	if len(ds.Labels) == 0 {
		return nil, fmt.Errorf("%w: labels", ErrMissingColumn)
	}

	return &ds, nil
}

// Matrix returns the features as a dense matrix, one row per observation.
func (d *Dataset) Matrix() (*mat.Dense, error) {
	if len(d.Features) == 0 {
		return nil, fmt.Errorf("%w: features", ErrMissingColumn)
	}

	cols := len(d.Features[0])
	if cols == 0 {
		return nil, fmt.Errorf("dataset: features row 0 is empty")
	}

	data := make([]float64, 0, len(d.Features)*cols)
	for i, row := range d.Features {
		if len(row) != cols {
			return nil, fmt.Errorf("dataset: features row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return mat.NewDense(len(d.Features), cols, data), nil
}
