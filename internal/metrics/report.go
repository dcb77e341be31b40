package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// UndefinedAUC is printed in place of the AUC value when it cannot be computed.
const UndefinedAUC = "N/A (Only one class present)"

// Print writes the report in its text form: the optional description on its own line,
// then one tab-indented "Name: value" line per metric with 4 decimal places.
func Print(w io.Writer, descr string, r Report) error {
	_, err := io.WriteString(w, Format(descr, r))
	return err
}

// Format renders the report the same way Print does.
func Format(descr string, r Report) string {
	var b strings.Builder
	if descr != "" {
		b.WriteString(descr)
		b.WriteByte('\n')
	}
	for _, name := range Names {
		v, ok := r.Value(name)
		if !ok {
			fmt.Fprintf(&b, "\t%s: %s\n", name, UndefinedAUC)
			continue
		}
		fmt.Fprintf(&b, "\t%s: %.4f\n", name, v)
	}
	return b.String()
}

// Map returns the report keyed by metric name. An undefined AUC maps to nil.
func (r Report) Map() map[string]any {
	m := make(map[string]any, len(Names))
	for _, name := range Names {
		if v, ok := r.Value(name); ok {
			m[name] = v
		} else {
			m[name] = nil
		}
	}
	return m
}

type encodedReport struct {
	Accuracy  float64   `json:"Accuracy" yaml:"Accuracy"`
	Precision float64   `json:"Precision" yaml:"Precision"`
	Recall    float64   `json:"Recall" yaml:"Recall"`
	F1        float64   `json:"F1-score" yaml:"F1-score"`
	AUC       *float64  `json:"AUC" yaml:"AUC"`
	Confusion Confusion `json:"confusion" yaml:"confusion"`
}

func (r Report) encoded() encodedReport {
	e := encodedReport{
		Accuracy:  r.Accuracy,
		Precision: r.Precision,
		Recall:    r.Recall,
		F1:        r.F1,
		Confusion: r.Confusion,
	}
	if r.AUCDefined {
		auc := r.AUC
		e.AUC = &auc
	}
	return e
}

// MarshalJSON encodes the report with metric names as keys and a null AUC when undefined.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.encoded())
}

// MarshalYAML implements yaml.Marshaler with the same layout as MarshalJSON.
func (r Report) MarshalYAML() (any, error) {
	return r.encoded(), nil
}
