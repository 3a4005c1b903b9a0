package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/coordinfo/internal/models"
	"golang.org/x/time/rate"
)

// NominatimReverseURL -- Nominatim reverse geocoding endpoint.
const NominatimReverseURL = "https://nominatim.openstreetmap.org/reverse"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter honouring the fair use policy
	// userAgent is required by Nominatim usage policy
	userAgent string
	language  string // Preferred language of the returned names
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents the JSON response from the Nominatim reverse API.
type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"` // Set when nothing was found at the point
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
)

// NewNominatimProvider creates a new Nominatim reverse geocoding provider
// against the public endpoint.
func NewNominatimProvider(
	userAgent string,
	language string,
	rateLimit float64,
	timeout time.Duration,
	log *slog.Logger,
) *NominatimProvider {
	return &NominatimProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:   NominatimReverseURL,
		log:       log,
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
		userAgent: userAgent,
		language:  language,
	}
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(
	client HTTPClient,
	userAgent string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimReverseURL,
		log:       log,
		limiter:   limiter,
		userAgent: userAgent,
		language:  "en",
	}
}

// Reverse returns the place at coords using the Nominatim reverse API.
// It respects Nominatim's usage policy by sending the client User-Agent and
// waiting on the rate limiter before each request.
func (np *NominatimProvider) Reverse(ctx context.Context, coords models.Coordinates) (*models.Place, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "coords", coords.String())

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("format", "jsonv2")
	query.Set("addressdetails", "1")
	query.Set("accept-language", np.language)
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, classifyStatus("nominatim", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "body", string(body))

	var result nominatimResponse
	if err = json.Unmarshal(body, &result); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNominatimEmptyResponse, result.Error)
	}

	return &models.Place{
		Provider:    string(ProviderTypeNominatim),
		DisplayName: result.DisplayName,
		Address:     result.Address,
	}, nil
}
