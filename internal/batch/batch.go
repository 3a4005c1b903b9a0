// Package batch holds enriched rows in memory until they are flushed.
package batch

import (
	"errors"
	"slices"

	"github.com/UnknownOlympus/coordinfo/internal/models"
)

// ErrFull is returned by Append once the accumulator holds capacity rows.
var ErrFull = errors.New("batch is full")

// Accumulator is a bounded, ordered buffer of enriched rows sharing one column layout.
// It is not safe for concurrent use.
type Accumulator struct {
	columns  []string
	capacity int
	rows     []models.EnrichedRow
}

// New creates an empty accumulator for rows laid out as columns.
func New(columns []string, capacity int) *Accumulator {
	return &Accumulator{
		columns:  slices.Clone(columns),
		capacity: capacity,
		rows:     make([]models.EnrichedRow, 0, capacity),
	}
}

// Append adds a row at the end of the batch.
func (a *Accumulator) Append(row models.EnrichedRow) error {
	if a.IsFull() {
		return ErrFull
	}
	a.rows = append(a.rows, row)

	return nil
}

// IsFull reports whether the batch reached its capacity.
func (a *Accumulator) IsFull() bool {
	return len(a.rows) >= a.capacity
}

// Len returns the number of buffered rows.
func (a *Accumulator) Len() int {
	return len(a.rows)
}

// Columns returns the column layout shared by every batch.
func (a *Accumulator) Columns() []string {
	return slices.Clone(a.columns)
}

// Drain returns the buffered rows in append order. The returned slice is
// owned by the caller and stays valid after Reset.
func (a *Accumulator) Drain() []models.EnrichedRow {
	return slices.Clone(a.rows)
}

// Reset empties the batch, keeping its capacity and column layout.
func (a *Accumulator) Reset() {
	clear(a.rows)
	a.rows = a.rows[:0]
}
