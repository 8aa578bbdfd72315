// Package schemas serves JSON Schema documents for the wire types so clients
// can validate payloads without importing Go code.
package schemas

import (
	"encoding/json"
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/polyroute/polyroute/internal/rpc"
)

// Handler serves reflected wire schemas as JSON.
type Handler struct{}

// ServeHTTP renders schemas for the generate request and event types.
func (Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	out := map[string]*jsonschema.Schema{
		"generate_request":        reflector.Reflect(&rpc.GenerateRequest{}),
		"generate_event":          reflector.Reflect(&rpc.GenerateEvent{}),
		"generate_stream_request": reflector.Reflect(&rpc.GenerateStreamRequest{}),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
