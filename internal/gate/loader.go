package gate

import (
	"fmt"
	"log/slog"
	"os"

	"evalkit/internal/metrics"

	"gopkg.in/yaml.v3"
)

// Compile initializes every gate against a fresh report environment.
func Compile(gates []Gate) ([]Gate, error) {
	compiled := make([]Gate, len(gates))
	for i := range gates {
		compiled[i] = Gate{Name: gates[i].Name, When: gates[i].When}
		if compiled[i].Name == "" {
			compiled[i].Name = fmt.Sprintf("gate-%d", i)
		}

		env, err := NewReportEnv()
		if err != nil {
			return nil, err
		}

		if err := compiled[i].Init(env); err != nil {
			return nil, fmt.Errorf("gate %q: %w", compiled[i].Name, err)
		}
	}
	return compiled, nil
}

// LoadFromFile reads a YAML list of gates and compiles them.
//
//   - name: auc-floor
//     when: "aucDefined && auc >= 0.7"
func LoadFromFile(file string) ([]Gate, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	gates := []Gate{}
	if err := yaml.Unmarshal(content, &gates); err != nil {
		return nil, err
	}

	return Compile(gates)
}

// Check evaluates every gate against the report and returns the names of those that failed.
// It stops at the first gate that cannot be evaluated.
func Check(gates []Gate, r metrics.Report) ([]string, error) {
	var failed []string
	for i := range gates {
		passed, err := gates[i].Eval(r)
		if err != nil {
			return nil, err
		}
		if !passed {
			slog.Warn("quality gate failed", "gate", gates[i].Name, "expression", gates[i].When)
			failed = append(failed, gates[i].Name)
		}
	}
	return failed, nil
}
