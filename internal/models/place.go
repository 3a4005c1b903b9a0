package models

// Place is the reverse geocoding answer for one coordinate pair.
// Address maps descriptor names (county, state, country, ...) to their values
// and may be partially or fully empty.
type Place struct {
	Provider    string            // Provider is the name of the geocoder that produced the place.
	DisplayName string            // DisplayName is the provider's one-line label for the place.
	Address     map[string]string // Address holds the administrative components keyed by descriptor name.
}
