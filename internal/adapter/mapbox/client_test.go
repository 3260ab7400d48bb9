package mapbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		token:      "test-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestForwardGeocode(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"features": [{
				"center": [-1.5197, 12.3714],
				"place_name": "Ouagadougou, Burkina Faso",
				"text": "Ouagadougou",
				"relevance": 0.98
			}]
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Ouagadougou", "Burkina Faso")
	require.NoError(t, err)

	assert.Equal(t, "/Ouagadougou, Burkina Faso.json", gotPath)
	assert.Contains(t, gotQuery, "access_token=test-token")
	assert.Contains(t, gotQuery, "limit=1")

	assert.True(t, result.Found())
	assert.Equal(t, 12.3714, result.Lat)
	assert.Equal(t, -1.5197, result.Lon)
	assert.Equal(t, "Ouagadougou", result.PlaceName)
	assert.Equal(t, 0.98, result.Confidence)
}

func TestForwardGeocodeNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "UNKNOWN PLACE", "Burkina Faso")
	require.NoError(t, err)
	assert.False(t, result.Found())
}

func TestForwardGeocodeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Dori", "Burkina Faso")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestForwardGeocodeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).ForwardGeocode(ctx, "Dori", "Burkina Faso")
	assert.ErrorIs(t, err, context.Canceled)
}
