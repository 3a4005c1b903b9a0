// Package pipeline drives the enrichment run: rows are geocoded one after
// another, buffered in fixed size batches and appended to the output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/coordinfo/internal/batch"
	"github.com/UnknownOlympus/coordinfo/internal/dataset"
	"github.com/UnknownOlympus/coordinfo/internal/enrich"
	"github.com/UnknownOlympus/coordinfo/internal/metrics"
	"github.com/UnknownOlympus/coordinfo/internal/models"
)

const (
	// BatchSize is the number of rows written to the output in one append.
	BatchSize = 100
	// MaxSleepSeconds bounds the random pause after a geocoder timeout.
	MaxSleepSeconds = 3
)

// ErrInvalidOffset is returned for a negative start offset.
var ErrInvalidOffset = errors.New("start offset must not be negative")

// Geocoder looks up the place at a point; false means no place for that row.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coords models.Coordinates, maxSleepSeconds int) (*models.Place, bool)
}

// Sink receives full batches as rendered records.
type Sink interface {
	Append(header []string, records [][]string) error
}

// Stats summarizes a run.
type Stats struct {
	Processed int // Rows enriched during the run
	Written   int // Rows appended to the sink
	Batches   int // Batches appended to the sink
	Dropped   int // Rows enriched but left in the unflushed final batch
	// NextOffset is the offset to resume from: the index after the last written row.
	NextOffset int
}

// Pipeline enriches a table sequentially.
type Pipeline struct {
	log         *slog.Logger     // Logger for run events
	geocoder    Geocoder         // Reverse geocoder with retry policy
	metrics     *metrics.Metrics // Metrics for tracking run advancement
	newProgress func(rows int) Progress
}

// NewPipeline creates a Pipeline. With verbose set, progress is reported as
// described by NewProgress.
func NewPipeline(log *slog.Logger, geocoder Geocoder, metrics *metrics.Metrics, verbose bool) *Pipeline {
	return &Pipeline{
		log:      log,
		geocoder: geocoder,
		metrics:  metrics,
		newProgress: func(rows int) Progress {
			return NewProgress(verbose, log, rows)
		},
	}
}

// Run processes table rows from startOffset to the end and appends every full
// batch of BatchSize rows to sink.
//
// A trailing batch smaller than BatchSize is never written: those rows are
// reported in Stats.Dropped and the run has to be resumed from
// Stats.NextOffset. The output is assumed to already hold rows [0, startOffset).
//
// Row level geocoding failures never stop the run. Errors are returned for an
// invalid offset, a failing sink, or cancellation of ctx.
func (p *Pipeline) Run(ctx context.Context, table *dataset.Table, startOffset int, sink Sink) (Stats, error) {
	stats := Stats{NextOffset: startOffset}
	if startOffset < 0 {
		return stats, fmt.Errorf("%w: %d", ErrInvalidOffset, startOffset)
	}

	total := len(table.Rows)
	if startOffset >= total {
		p.log.WarnContext(ctx, "Start offset is past the last row, nothing to do", "offset", startOffset, "rows", total)
		return stats, nil
	}

	descriptors := enrich.Descriptors()
	acc := batch.New(enrich.Columns(table.Columns), BatchSize)
	progress := p.newProgress(total - startOffset)
	defer progress.Finish()

	p.log.InfoContext(ctx, "Enrichment started", "offset", startOffset, "rows", total)

	for idx := startOffset; idx < total; idx++ {
		if err := ctx.Err(); err != nil {
			return p.interrupted(ctx, stats, acc, err)
		}

		row := table.Rows[idx]
		p.metrics.CurrentRow.Set(float64(idx))

		var place *models.Place
		found := false
		if row.CoordsErr != nil {
			p.log.WarnContext(ctx, "Row has no usable coordinates", "row", idx, "error", row.CoordsErr)
		} else {
			place, found = p.geocoder.ReverseGeocode(ctx, row.Coords, MaxSleepSeconds)
		}

		// An absent result caused by cancellation must not be recorded as "no data".
		if err := ctx.Err(); err != nil {
			return p.interrupted(ctx, stats, acc, err)
		}

		if found {
			p.metrics.RowsProcessed.WithLabelValues("enriched").Inc()
		} else {
			p.metrics.RowsProcessed.WithLabelValues("empty").Inc()
		}

		if err := acc.Append(enrich.Enrich(row, place)); err != nil {
			return stats, fmt.Errorf("failed to buffer row %d: %w", idx, err)
		}
		stats.Processed++
		progress.Advance(idx, total)

		if !acc.IsFull() {
			continue
		}

		if err := p.flush(acc, descriptors, sink); err != nil {
			stats.Dropped = acc.Len()
			return stats, fmt.Errorf("failed to write batch ending at row %d: %w", idx, err)
		}
		stats.Written += BatchSize
		stats.Batches++
		stats.NextOffset = idx + 1
		acc.Reset()

		p.log.InfoContext(ctx, "Batch written", "last_row", idx, "next_offset", stats.NextOffset)
		progress.Flushed(idx, total)
	}

	if acc.Len() > 0 {
		stats.Dropped = acc.Len()
		p.log.WarnContext(ctx, "Final partial batch was not written, rerun from the resume offset",
			"rows", stats.Dropped, "resume_offset", stats.NextOffset)
	}

	p.log.InfoContext(ctx, "Enrichment finished",
		"processed", stats.Processed, "written", stats.Written, "batches", stats.Batches)

	return stats, nil
}

func (p *Pipeline) flush(acc *batch.Accumulator, descriptors []string, sink Sink) error {
	rows := acc.Drain()
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record(descriptors))
	}

	if err := sink.Append(acc.Columns(), records); err != nil {
		return err
	}

	p.metrics.BatchesFlushed.Inc()
	p.metrics.RowsWritten.Add(float64(len(records)))

	return nil
}

func (p *Pipeline) interrupted(ctx context.Context, stats Stats, acc *batch.Accumulator, err error) (Stats, error) {
	stats.Dropped = acc.Len()
	p.log.WarnContext(ctx, "Enrichment interrupted", "resume_offset", stats.NextOffset, "unwritten_rows", stats.Dropped)

	return stats, fmt.Errorf("enrichment interrupted: %w", err)
}
