// Package dataset reads the input table and appends enriched batches to the output file.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/coordinfo/internal/models"
)

// Input column names, matched case-insensitively.
const (
	LatitudeColumn  = "Latitude"
	LongitudeColumn = "Longitude"
)

// Read errors.
var (
	// ErrMissingColumn is returned when the input lacks a coordinate column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrTooManyFields is returned for a row wider than the header.
	ErrTooManyFields = errors.New("row has more fields than the header")
)

const byteOrderMark = "\ufeff"

// Table is the whole input dataset: its header and its rows in file order.
type Table struct {
	Columns []string
	Rows    []models.Row
}

// ReadFile opens path and reads it as a delimited table.
func ReadFile(path string, delimiter rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	table, err := Read(file, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return table, nil
}

// Read parses a delimited table with a header row. Every cell is kept as is;
// only the Latitude and Longitude cells are parsed, and a cell that does not
// parse is recorded on the row rather than failing the read.
//
// Rows shorter than the header are padded with empty cells so that every row
// has the header's width. A row longer than the header fails the read.
func Read(r io.Reader, delimiter rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)

	latIdx, lonIdx := -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), LatitudeColumn):
			latIdx = i
		case strings.EqualFold(strings.TrimSpace(col), LongitudeColumn):
			lonIdx = i
		}
	}
	if latIdx < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, LatitudeColumn)
	}
	if lonIdx < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, LongitudeColumn)
	}

	table := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows), err)
		}

		switch {
		case len(rec) > len(header):
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d",
				ErrTooManyFields, len(table.Rows), len(rec), len(header))
		case len(rec) < len(header):
			rec = append(rec, make([]string, len(header)-len(rec))...)
		}

		row := models.Row{Index: len(table.Rows), Values: rec}
		row.Coords, row.CoordsErr = parseCoordinates(rec, latIdx, lonIdx)
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func parseCoordinates(rec []string, latIdx, lonIdx int) (models.Coordinates, error) {
	var coords models.Coordinates
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
	if err != nil {
		return coords, fmt.Errorf("invalid latitude %q: %w", rec[latIdx], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonIdx]), 64)
	if err != nil {
		return coords, fmt.Errorf("invalid longitude %q: %w", rec[lonIdx], err)
	}

	coords.Latitude, coords.Longitude = lat, lon

	return coords, nil
}
