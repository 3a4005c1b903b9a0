package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/coordinfo/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps reverse geocoding service.
type GoogleProvider struct {
	client   GoogleAPIClient // client is the Google Maps API client
	language string          // language of the returned names
	log      *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// googleComponentTypes maps Google address component types to descriptor names.
var googleComponentTypes = map[string]string{
	"administrative_area_level_1": "state",
	"administrative_area_level_2": "county",
	"administrative_area_level_3": "state_district",
	"neighborhood":                "neighbourhood",
	"postal_code":                 "postcode",
	"country":                     "country",
}

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, language string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, language: language, log: log}
}

// Reverse takes a context and coordinates as input, and returns the place found
// at that point using the Google Maps Geocoding API. Address components of the
// first result are keyed by descriptor name.
func (gp *GoogleProvider) Reverse(ctx context.Context, coords models.Coordinates) (*models.Place, error) {
	gp.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "coords", coords.String())

	req := maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: coords.Latitude, Lng: coords.Longitude},
		Language: gp.language,
	}
	geocodeResponse, err := gp.client.ReverseGeocode(ctx, &req)
	if err != nil {
		return nil, classifyGoogleError(ctx, err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}

	result := geocodeResponse[0]
	address := make(map[string]string)
	for _, component := range result.AddressComponents {
		for _, componentType := range component.Types {
			name, ok := googleComponentTypes[componentType]
			if !ok {
				continue
			}
			if _, seen := address[name]; !seen {
				address[name] = component.LongName
			}
		}
	}

	return &models.Place{
		Provider:    string(ProviderTypeGoogle),
		DisplayName: result.FormattedAddress,
		Address:     address,
	}, nil
}

// classifyGoogleError separates API status errors ("maps: OVER_QUERY_LIMIT - ...")
// from transport failures. The maps client returns status errors as plain
// fmt.Errorf values without a type or sentinel, so the "maps: " prefix is the
// only way to tell them apart; transport errors are returned unwrapped.
func classifyGoogleError(ctx context.Context, err error) error {
	if strings.HasPrefix(err.Error(), "maps: ") {
		return fmt.Errorf("%w: failed to reverse geocode: %w", ErrServiceUnavailable, err)
	}

	return classifyTransportError(ctx, err)
}
