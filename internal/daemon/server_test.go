package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polyroute/polyroute/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"openai": {Type: "openai", BaseURL: "http://127.0.0.1:0"},
		},
		Models: map[string]config.ModelBinding{
			"mini": {Provider: "openai", WireModel: "gpt-4o-mini"},
		},
		Server: config.ServerConfig{Addr: ":0", MetricsEnabled: true, Transport: "ndjson"},
	}
	s, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModelsEndpointListsCatalog(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var models []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&models))
	require.NotEmpty(t, models)

	ids := make(map[string]bool)
	for _, m := range models {
		ids[m["id"].(string)] = true
	}
	require.True(t, ids["mini"])
	require.True(t, ids["opus"])
}

func TestStatsEndpointStartsAtZero(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.EqualValues(t, 0, stats["request_count"])
}

func TestTelemetryEndpointDrains(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/telemetry")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Count   int               `json:"count"`
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 0, out.Count)
}

func TestSchemasEndpoint(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/schemas")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
