package dataset

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"evalkit/internal/metrics"

	"gopkg.in/natefinch/lumberjack.v2"
)

// historyHandler is a slog handler that writes each record as one JSON object
// with a "time" field and the record attributes at the top level.
// The message and level are not written.
type historyHandler struct {
	out   io.Writer
	attrs []slog.Attr
}

// newHistoryHandler creates a handler writing JSON lines to out.
func newHistoryHandler(out io.Writer) *historyHandler {
	return &historyHandler{out: out}
}

// Handle serializes a record to a single JSON line.
func (h *historyHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs)+1)
	attrs["time"] = r.Time.Format(time.RFC3339)

	add := func(a slog.Attr) bool {
		if a.Key != "" && a.Value.Any() != nil {
			attrs[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	_, err = h.out.Write(append(data, '\n'))
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *historyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &historyHandler{out: h.out, attrs: merged}
}

// WithGroup is a no-op: history records are flat.
func (h *historyHandler) WithGroup(string) slog.Handler {
	return h
}

// Enabled always returns true: every report is recorded.
func (h *historyHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// JSONHistory appends evaluation reports to a JSON lines file with rotation and
// compression via lumberjack. Suitable for tracking model quality across runs.
type JSONHistory struct {
	lumberjack *lumberjack.Logger // rotating file writer
	logger     *slog.Logger       // structured logger with custom output
}

// NewJSONHistory creates a history writer.
// Parameters:
// - file: path to the history file
// - maxSize: maximum file size in MB before rotation
// - maxBackups: maximum number of old files to keep
func NewJSONHistory(file string, maxSize, maxBackups int) *JSONHistory {
	h := JSONHistory{}
	h.lumberjack = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	h.logger = slog.New(newHistoryHandler(h.lumberjack))
	return &h
}

// Append records one report under the given description.
// The threshold is written only when the evaluation used one.
func (h *JSONHistory) Append(descr string, r metrics.Report, threshold *float64) {
	args := []any{"descr", descr, "report", r}
	if threshold != nil {
		// JSON has no infinity; keep the value readable instead of dropping the record.
		if math.IsInf(*threshold, 0) {
			args = append(args, "threshold", strconv.FormatFloat(*threshold, 'g', -1, 64))
		} else {
			args = append(args, "threshold", *threshold)
		}
	}
	h.logger.Info("", args...)
}

// Close closes the underlying file.
func (h *JSONHistory) Close() error {
	return h.lumberjack.Close()
}
