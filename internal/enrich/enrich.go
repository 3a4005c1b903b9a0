// Package enrich merges reverse geocoding answers into dataset rows.
package enrich

import (
	"slices"

	"github.com/UnknownOlympus/coordinfo/internal/models"
)

// descriptors is the ordered list of address components copied into each row.
var descriptors = []string{"county", "neighbourhood", "state_district", "state", "postcode", "country"}

// Descriptors returns the descriptor names in output column order.
func Descriptors() []string {
	return slices.Clone(descriptors)
}

// Columns returns the output layout: the input columns followed by the descriptors.
func Columns(inputColumns []string) []string {
	return slices.Concat(inputColumns, descriptors)
}

// Enrich copies the descriptors found in place into a new enriched row.
// A nil place, or one without address, leaves every descriptor absent;
// the row itself is always returned.
func Enrich(row models.Row, place *models.Place) models.EnrichedRow {
	enriched := models.EnrichedRow{Row: row, Location: make(map[string]string, len(descriptors))}
	if place == nil || place.Address == nil {
		return enriched
	}

	for _, name := range descriptors {
		if value, ok := place.Address[name]; ok {
			enriched.Location[name] = value
		}
	}

	return enriched
}
