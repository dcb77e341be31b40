package gate

import (
	"fmt"

	"evalkit/internal/metrics"

	"github.com/google/cel-go/cel"
)

// Gate is a quality requirement on a metrics report.
// The When field contains a CEL expression that must hold for the report to pass.
// The CEL program is compiled when Init is called and used during evaluation.
type Gate struct {
	// Name identifies the gate in logs and failure messages.
	Name string `yaml:"name" mapstructure:"name"`
	// When is a CEL expression over the report variables. Must return a boolean value.
	When string `yaml:"when" mapstructure:"when"`
	// program is the compiled CEL program used to execute the condition.
	program cel.Program
}

// NewReportEnv declares the variables a gate expression can reference.
func NewReportEnv() (*cel.Env, error) {
	return cel.NewEnv(
		// --- Metrics ---
		cel.Variable("accuracy", cel.DoubleType),
		cel.Variable("precision", cel.DoubleType),
		cel.Variable("recall", cel.DoubleType),
		cel.Variable("f1", cel.DoubleType),
		cel.Variable("auc", cel.DoubleType),
		cel.Variable("aucDefined", cel.BoolType),

		// --- Confusion matrix ---
		cel.Variable("tp", cel.IntType),
		cel.Variable("fp", cel.IntType),
		cel.Variable("tn", cel.IntType),
		cel.Variable("fn", cel.IntType),
		cel.Variable("total", cel.IntType),
	)
}

// Vars converts a report into the activation used by gate expressions.
// An undefined AUC is exposed as 0 with aucDefined set to false.
func Vars(r metrics.Report) map[string]any {
	return map[string]any{
		"accuracy":   r.Accuracy,
		"precision":  r.Precision,
		"recall":     r.Recall,
		"f1":         r.F1,
		"auc":        r.AUC,
		"aucDefined": r.AUCDefined,
		"tp":         int64(r.Confusion.TP),
		"fp":         int64(r.Confusion.FP),
		"tn":         int64(r.Confusion.TN),
		"fn":         int64(r.Confusion.FN),
		"total":      int64(r.Confusion.Total()),
	}
}

// Init compiles the string expression in the When field into an executable CEL program
// using the provided env environment.
// In case of syntax or semantic errors, or a non-boolean expression, returns the corresponding error.
func (g *Gate) Init(env *cel.Env) error {
	ast, iss := env.Parse(g.When)
	if iss.Err() != nil {
		return iss.Err()
	}

	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return iss.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression must be boolean, got %s", checked.OutputType())
	}

	var err error
	g.program, err = env.Program(checked)
	if err != nil {
		return err
	}

	return nil
}

// Eval executes the compiled gate against the report.
// Execution errors are returned, so a gate that cannot be evaluated never passes.
func (g *Gate) Eval(r metrics.Report) (bool, error) {
	if g.program == nil {
		return false, fmt.Errorf("gate %q: not initialized", g.Name)
	}

	result, _, err := g.program.Eval(Vars(r))
	if err != nil {
		return false, fmt.Errorf("gate %q: %w", g.Name, err)
	}

	passed, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("gate %q: result is %T, not bool", g.Name, result.Value())
	}
	return passed, nil
}
