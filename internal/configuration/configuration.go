package configuration

import (
	"errors"
	"fmt"
	"strings"

	"evalkit/internal/evaluation"

	"github.com/spf13/viper"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger — logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Report — report output configuration
	Report ReportConfig `mapstructure:"report"`
	// Model — model used by the run command
	Model ModelConfig `mapstructure:"model"`
	// Gates — quality gates checked against every report
	Gates []GateConfig `mapstructure:"gates"`
	// GatesFile — optional YAML file with more gates, appended to Gates
	GatesFile string `mapstructure:"gates_file"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level — log level: debug, info, warn, warning, error.
	// Value is case-insensitive but checked in lowercase.
	// Metric warnings (ill-defined precision, undefined AUC) are logged at warn.
	Level string `mapstructure:"level"`
}

// ReportConfig defines where reports go besides the printed text.
type ReportConfig struct {
	// Format — encoding of the returned report: text, json or yaml.
	Format string `mapstructure:"format"`
	// History — optional rotating JSON lines file with every report.
	History HistoryConfig `mapstructure:"history"`
}

// HistoryConfig defines report history parameters
type HistoryConfig struct {
	// History file path (optional, disabled when empty)
	File string `mapstructure:"file"`
	// Maximal history file size in MB (default 100)
	Size int `mapstructure:"size"`
	// Number of history files (default 20)
	Amount int `mapstructure:"amount"`
}

// ModelConfig describes an exported ONNX model.
type ModelConfig struct {
	// Kind — sklearn/estimator or differentiable/torch/onnx
	Kind string `mapstructure:"kind"`
	// Path — path to the .onnx file
	Path string `mapstructure:"path"`
	// Library — ONNX Runtime shared library; defaults to libonnxruntime.so next to the model
	Library string `mapstructure:"library"`
	// Input — input tensor name; defaults to the first input
	Input string `mapstructure:"input"`
	// Output — logits tensor of a differentiable model
	Output string `mapstructure:"output"`
	// LabelOutput, ProbaOutput — tensors of an exported estimator
	LabelOutput string `mapstructure:"label_output"`
	ProbaOutput string `mapstructure:"proba_output"`
	// Threads — intra-op threads, 0 for the runtime default
	Threads int `mapstructure:"threads"`
}

// GateConfig is a named CEL expression over the report.
type GateConfig struct {
	Name string `mapstructure:"name"`
	When string `mapstructure:"when"`
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		Logger: LoggerConfig{Level: "info"},
		Report: ReportConfig{
			Format:  "text",
			History: HistoryConfig{Size: 100, Amount: 20},
		},
		Model: ModelConfig{Kind: "differentiable"},
	}
}

// Validate checks the correctness of the entire application configuration.
// Calls validation for each nested structure and returns the first detected error.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Report.Validate(); err != nil {
		return err
	}

	if err := c.Model.Validate(); err != nil {
		return err
	}

	for i := range c.Gates {
		if err := c.Gates[i].Validate(); err != nil {
			return fmt.Errorf("gates[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate checks the correctness of the logger configuration.
// Verifies that the log level is set and is one of the supported values.
// Supported values: debug, info, warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	return nil
}

// Validate checks the report format and fills history defaults.
func (r *ReportConfig) Validate() error {
	switch strings.ToLower(r.Format) {
	case "", "text":
		r.Format = "text"
	case "json", "yaml":
		r.Format = strings.ToLower(r.Format)
	default:
		return fmt.Errorf("report.format: unsupported format '%s'", r.Format)
	}

	return r.History.Validate()
}

// Validate history parameters
func (h *HistoryConfig) Validate() error {
	if h.Amount == 0 {
		h.Amount = 20
	}

	if h.Size == 0 {
		h.Size = 100
	}

	if h.Size < 0 || h.Amount < 0 {
		return errors.New("report.history: size and amount must be positive")
	}

	return nil
}

// Validate checks the model kind. The model path is only required by the run command.
func (m *ModelConfig) Validate() error {
	if _, err := evaluation.ParseModelKind(m.Kind); err != nil {
		return fmt.Errorf("model.kind: %w", err)
	}

	if m.Threads < 0 {
		return errors.New("model.threads: must not be negative")
	}

	return nil
}

// Validate checks that the gate has an expression.
func (g *GateConfig) Validate() error {
	if strings.TrimSpace(g.When) == "" {
		return errors.New("when: must be specified")
	}

	return nil
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Also includes environment variable loading (AutomaticEnv),
// which can override values from the file, e.g. LOGGER_LEVEL=debug.
//
// Parameter configPath — path to the configuration file.
//
// Returns a pointer to AppConfig or an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("logger.level", defaults.Logger.Level)
	v.SetDefault("report.format", defaults.Report.Format)
	v.SetDefault("model.kind", defaults.Model.Kind)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
