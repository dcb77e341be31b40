package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"evalkit/internal/configuration"
	"evalkit/internal/dataset"
	"evalkit/internal/evaluation"
	"evalkit/internal/gate"
	"evalkit/internal/metrics"
	"evalkit/internal/model/onnx"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// ErrGateFailed is returned when a report does not pass every configured quality gate.
var ErrGateFailed = errors.New("quality gate failed")

const (
	configFlag    = "config"
	descrFlag     = "descr"
	formatFlag    = "format"
	dataFlag      = "data"
	thresholdFlag = "threshold"
	modelFlag     = "model"
	kindFlag      = "kind"
)

func newDataFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     dataFlag,
		Usage:    "Path to the YAML or JSON dataset file",
		Required: true,
	}
}

// app holds what every command shares once Before has run.
type app struct {
	out     io.Writer
	errOut  io.Writer
	config  *configuration.AppConfig
	gates   []gate.Gate
	history dataset.HistoryRepository
}

func newCommand(out, errOut io.Writer) *cli.Command {
	a := &app{out: out, errOut: errOut}

	return &cli.Command{
		Name:            "evalkit",
		Usage:           "Scores binary classifiers and risk scores",
		Writer:          out,
		ErrWriter:       errOut,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlag,
				Usage: "Path to the YAML configuration file (optional)",
			},
			&cli.StringFlag{
				Name:  descrFlag,
				Usage: "Description printed above the report",
			},
			&cli.StringFlag{
				Name:  formatFlag,
				Usage: "Report encoding [text, json, yaml]; overrides report.format",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "metrics",
				Usage:  "Score labels against predictions and optional probabilities",
				Flags:  []cli.Flag{newDataFlag()},
				Action: a.metricsAction,
			},
			{
				Name:   "frax",
				Usage:  "Binarize risk scores at a threshold and score them",
				Flags: []cli.Flag{
					newDataFlag(),
					&cli.FloatFlag{
						Name:  thresholdFlag,
						Usage: "Decision threshold; derived by maximizing Youden's J when not set",
					},
				},
				Action: a.fraxAction,
			},
			{
				Name:   "run",
				Usage:  "Run an ONNX model over the dataset features and score it",
				Flags: []cli.Flag{
					newDataFlag(),
					&cli.StringFlag{
						Name:  modelFlag,
						Usage: "Path to the ONNX model; overrides model.path",
					},
					&cli.StringFlag{
						Name:  kindFlag,
						Usage: "Model kind [sklearn, differentiable]; overrides model.kind",
					},
				},
				Action: a.runAction,
			},
		},
		Before: a.before,
		After:  a.after,
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	config := configuration.Default()
	if path := cmd.String(configFlag); path != "" {
		var err error
		config, err = configuration.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
	}
	prepareLogger(config.Logger.Level)

	if f := cmd.String(formatFlag); f != "" {
		config.Report.Format = f
		if err := config.Report.Validate(); err != nil {
			return ctx, err
		}
	}

	gates := make([]gate.Gate, len(config.Gates))
	for i, g := range config.Gates {
		gates[i] = gate.Gate{Name: g.Name, When: g.When}
	}
	if config.GatesFile != "" {
		extra, err := gate.LoadFromFile(config.GatesFile)
		if err != nil {
			return ctx, err
		}
		gates = append(gates, extra...)
	}
	compiled, err := gate.Compile(gates)
	if err != nil {
		return ctx, err
	}

	if h := config.Report.History; h.File != "" {
		a.history = dataset.NewJSONHistory(h.File, h.Size, h.Amount)
	}

	a.config = config
	a.gates = compiled
	return ctx, nil
}

func (a *app) after(context.Context, *cli.Command) error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// reportWriter is where the text report goes. With an encoded format stdout carries
// the encoded report only, so the text moves to stderr.
func (a *app) reportWriter() io.Writer {
	if a.config.Report.Format == "text" {
		return a.out
	}
	return a.errOut
}

func (a *app) options(cmd *cli.Command) []evaluation.Option {
	return []evaluation.Option{
		evaluation.WithDescription(cmd.String(descrFlag)),
		evaluation.WithOutput(a.reportWriter()),
	}
}

func (a *app) metricsAction(_ context.Context, cmd *cli.Command) error {
	ds, err := dataset.Load(cmd.String(dataFlag))
	if err != nil {
		return err
	}
	if ds.Predictions == nil {
		return fmt.Errorf("%w: predictions", dataset.ErrMissingColumn)
	}

	report, err := metrics.Evaluate(a.reportWriter(), cmd.String(descrFlag), ds.Labels, ds.Predictions, ds.Probabilities)
	if err != nil {
		return err
	}

	return a.finish(cmd, report, nil)
}

func (a *app) fraxAction(_ context.Context, cmd *cli.Command) error {
	ds, err := dataset.Load(cmd.String(dataFlag))
	if err != nil {
		return err
	}
	if ds.Scores == nil {
		return fmt.Errorf("%w: scores", dataset.ErrMissingColumn)
	}

	opts := a.options(cmd)
	if cmd.IsSet(thresholdFlag) {
		opts = append(opts, evaluation.WithThreshold(cmd.Float(thresholdFlag)))
	}

	threshold, report, err := evaluation.ThresholdReport(ds.Scores, ds.Labels, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.reportWriter(), "\tThreshold: %.4f\n", threshold)

	return a.finish(cmd, report, &threshold)
}

func (a *app) runAction(_ context.Context, cmd *cli.Command) error {
	mc := a.config.Model
	if p := cmd.String(modelFlag); p != "" {
		mc.Path = p
	}
	if k := cmd.String(kindFlag); k != "" {
		mc.Kind = k
	}
	if mc.Path == "" {
		return errors.New("model path must be specified with --model or model.path")
	}

	kind, err := evaluation.ParseModelKind(mc.Kind)
	if err != nil {
		return err
	}

	ds, err := dataset.Load(cmd.String(dataFlag))
	if err != nil {
		return err
	}
	x, err := ds.Matrix()
	if err != nil {
		return err
	}

	model, err := loadModel(kind, mc)
	if err != nil {
		return err
	}
	defer model.Close()

	slog.Info("Model loaded", "path", mc.Path, "kind", kind)
	report, err := evaluation.Evaluate(model, x, ds.Labels, kind, a.options(cmd)...)
	if err != nil {
		return err
	}

	return a.finish(cmd, report, nil)
}

func loadModel(kind evaluation.ModelKind, mc configuration.ModelConfig) (io.Closer, error) {
	cfg := onnx.Config{
		Path:        mc.Path,
		Library:     mc.Library,
		Input:       mc.Input,
		Output:      mc.Output,
		LabelOutput: mc.LabelOutput,
		ProbaOutput: mc.ProbaOutput,
		Threads:     mc.Threads,
	}
	if kind == evaluation.KindEstimator {
		c, err := onnx.NewClassifier(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	m, err := onnx.NewLogits(cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// finish encodes the report when requested, records it in the history and checks the gates.
func (a *app) finish(cmd *cli.Command, report metrics.Report, threshold *float64) error {
	switch a.config.Report.Format {
	case "json":
		e := json.NewEncoder(a.out)
		e.SetIndent("", "  ")
		if err := e.Encode(report); err != nil {
			return err
		}
	case "yaml":
		if err := yaml.NewEncoder(a.out).Encode(report); err != nil {
			return err
		}
	}

	if a.history != nil {
		a.history.Append(cmd.String(descrFlag), report, threshold)
	}

	failed, err := gate.Check(a.gates, report)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrGateFailed, strings.Join(failed, ", "))
	}
	return nil
}
