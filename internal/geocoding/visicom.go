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

// VisicomBaseURL -- Visicom API base URL.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/uk/geocode.json"

// VisicomProvider implements reverse geocoding using Visicom API.
type VisicomProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Visicom API
	apiKey  string        // API key with geocoding access
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for Visicom provider.
var (
	ErrVisicomEmptyResponse = errors.New("visicom API returned empty response")
	ErrVisicomUnathorized   = errors.New("visicom API unathorized (invalid API key)")
)

// visicomProperties maps Visicom feature properties to descriptor names.
var visicomProperties = map[string]string{
	"level1":      "state",
	"level2":      "county",
	"level3":      "state_district",
	"district":    "neighbourhood",
	"postal_code": "postcode",
	"country":     "country",
}

// Visicom API response (simplified for reverse geocoding use-case).
type visicomResponse struct {
	Properties map[string]any `json:"properties"`
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey string, rateLimit int, timeout time.Duration, log *slog.Logger) *VisicomProvider {
	return &VisicomProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: VisicomBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
	}
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		client:  client,
		baseURL: VisicomBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Reverse returns the place nearest to coords using the Visicom API.
func (vp *VisicomProvider) Reverse(
	ctx context.Context,
	coords models.Coordinates,
) (*models.Place, error) {
	// Rate limit
	if err := vp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	vp.log.DebugContext(ctx, "Reverse geocoding using Visicom", "coords", coords.String())

	reqURL, err := url.Parse(vp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	// Visicom expects the point as "lon,lat".
	near := strconv.FormatFloat(coords.Longitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(coords.Latitude, 'f', -1, 64)

	query := reqURL.Query()
	query.Set("near", near)
	query.Set("limit", "1")
	query.Set("key", vp.apiKey)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		reqURL.String(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Headers
	req.Header.Set("Accept", "application/json")

	resp, err := vp.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, ErrVisicomUnathorized)
	default:
		body, _ := io.ReadAll(resp.Body)
		vp.log.ErrorContext(ctx, "Visicom API error", "status", resp.StatusCode, "body", string(body))
		return nil, classifyStatus("visicom", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	vp.log.DebugContext(ctx, "Visicom raw response", "body", string(body))

	var result visicomResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode visicom response: %w", err)
	}

	if len(result.Properties) == 0 {
		return nil, ErrVisicomEmptyResponse
	}

	address := make(map[string]string)
	for property, name := range visicomProperties {
		if value, ok := result.Properties[property].(string); ok && value != "" {
			address[name] = value
		}
	}

	displayName, _ := result.Properties["name"].(string)

	return &models.Place{
		Provider:    string(ProviderTypeVisicom),
		DisplayName: displayName,
		Address:     address,
	}, nil
}
