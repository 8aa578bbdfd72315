package schemas

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaHandlerServesWireSchemas(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/schemas", nil)
	rr := httptest.NewRecorder()

	Handler{}.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Contains(t, out, "generate_request")
	require.Contains(t, out, "generate_event")
	require.Contains(t, out, "generate_stream_request")

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(out["generate_request"], &schema))
	require.Contains(t, schema.Properties, "prompt")
}

func TestSchemaHandlerRejectsNonGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/schemas", nil)
	rr := httptest.NewRecorder()

	Handler{}.ServeHTTP(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
