package dataset

import "evalkit/internal/metrics"

type HistoryRepository interface {
	Append(descr string, r metrics.Report, threshold *float64)
	Close() error
}
