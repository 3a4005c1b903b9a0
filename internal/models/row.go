package models

// Row is one record of the input dataset, identified by its position.
type Row struct {
	Index  int         // Index is the zero-based position of the row in the input.
	Values []string    // Values are the raw input cells in input column order.
	Coords Coordinates // Coords are the parsed Latitude and Longitude cells.
	// CoordsErr is set when the Latitude or Longitude cell could not be parsed.
	CoordsErr error
}

// EnrichedRow is an input row with the location descriptors found for it.
// A descriptor missing from Location was not returned by the provider.
type EnrichedRow struct {
	Row
	Location map[string]string
}

// Record renders the row as its input cells followed by one cell per descriptor.
// Absent descriptors become empty cells.
func (er EnrichedRow) Record(descriptors []string) []string {
	record := make([]string, 0, len(er.Values)+len(descriptors))
	record = append(record, er.Values...)
	for _, name := range descriptors {
		record = append(record, er.Location[name])
	}

	return record
}
