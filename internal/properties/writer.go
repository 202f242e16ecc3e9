package properties

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// Sink persists a column of values for one property. store.Store
// satisfies it, writing the whole column in one locked transaction.
type Sink interface {
	SetProperties(ctx context.Context, name string, halos []graph.HaloID, values ir.Column) error
}

// Writer stores calculated properties.
type Writer struct {
	sink   Sink
	logger *slog.Logger
}

// NewWriter returns a Writer over sink.
func NewWriter(sink Sink, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{sink: sink, logger: logger}
}

// Write stores values[i] as property name of halos[i]. Null rows delete any
// stored value. It returns the number of non-null rows written.
func (w *Writer) Write(ctx context.Context, name string, halos []graph.Halo, values ir.Column) (int, error) {
	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if len(halos) != len(values) {
		return 0, fmt.Errorf("write %s: %d halos but %d values", name, len(halos), len(values))
	}
	if err := w.sink.SetProperties(ctx, name, graph.IDs(halos), values); err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}

	written := 0
	for _, v := range values {
		if !ir.IsNull(v) {
			written++
		}
	}
	w.logger.Info("wrote property", "property", name, "halos", len(halos), "non_null", written)
	return written, nil
}
