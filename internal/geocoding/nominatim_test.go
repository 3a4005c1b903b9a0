package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/UnknownOlympus/coordinfo/internal/geocoding"
	"github.com/UnknownOlympus/coordinfo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

const testUserAgent = "Atlas-Coordinfo/1.0 (user_12345)"

func TestNominatimProvider_Reverse(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	point := models.Coordinates{Latitude: 48.8584, Longitude: 2.2945}
	unlimited := rate.NewLimiter(rate.Inf, 0)

	t.Run("successful reverse geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				// Verify request parameters
				assert.Equal(t, "GET", req.Method)
				assert.Contains(t, req.URL.String(), geocoding.NominatimReverseURL)
				assert.Equal(t, "48.8584", req.URL.Query().Get("lat"))
				assert.Equal(t, "2.2945", req.URL.Query().Get("lon"))
				assert.Equal(t, "jsonv2", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("addressdetails"))
				assert.Equal(t, testUserAgent, req.Header.Get("User-Agent"))

				responseBody := `{
					"display_name": "Tour Eiffel, Paris, France",
					"address": {
						"road": "Avenue Gustave Eiffel",
						"suburb": "Paris 7e Arrondissement",
						"state": "Île-de-France",
						"postcode": "75007",
						"country": "France",
						"country_code": "fr"
					}
				}`
				return jsonResponse(http.StatusOK, responseBody), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Equal(t, "nominatim", place.Provider)
		assert.Equal(t, "Tour Eiffel, Paris, France", place.DisplayName)
		assert.Equal(t, "France", place.Address["country"])
		assert.Equal(t, "75007", place.Address["postcode"])
		assert.Equal(t, "Île-de-France", place.Address["state"])
	})

	t.Run("nothing found at the point", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"error":"Unable to geocode"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.Error(t, err)
		require.Nil(t, place)
		assert.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
	})

	t.Run("rate limited by API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.Error(t, err)
		require.Nil(t, place)
		require.ErrorIs(t, err, geocoding.ErrServiceUnavailable)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")
	})

	t.Run("gateway timeout status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusGatewayTimeout, ``), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		_, err := provider.Reverse(ctx, point)

		require.ErrorIs(t, err, geocoding.ErrTimeout)
	})

	t.Run("client side status is neither timeout nor service error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusBadRequest, `{"error":"bad lat"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		_, err := provider.Reverse(ctx, point)

		require.Error(t, err)
		assert.NotErrorIs(t, err, geocoding.ErrTimeout)
		assert.NotErrorIs(t, err, geocoding.ErrServiceUnavailable)
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `invalid json`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.Error(t, err)
		require.Nil(t, place)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("HTTP client times out", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, context.DeadlineExceeded
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.Nil(t, place)
		require.ErrorIs(t, err, geocoding.ErrTimeout)
	})

	t.Run("connection refused", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		_, err := provider.Reverse(ctx, point)

		require.ErrorIs(t, err, geocoding.ErrServiceUnavailable)
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(ctx, point)

		require.Error(t, err)
		require.Nil(t, place)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("context cancellation is not a timeout", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, testUserAgent, unlimited, logger)
		place, err := provider.Reverse(newCtx, point)

		require.Error(t, err)
		require.Nil(t, place)
		assert.NotErrorIs(t, err, geocoding.ErrTimeout)
	})
}

func TestNewNominatimProvider(t *testing.T) {
	logger := slog.Default()

	provider := geocoding.NewNominatimProvider(testUserAgent, "en", 1, time.Second, logger)

	require.NotNil(t, provider)
}
