package llm

import (
	"fmt"
	"sort"
)

// Binding maps a catalog model id to a provider and the physical model name
// that provider expects on the wire.
type Binding struct {
	Provider  string
	WireModel string
}

// Registry holds the static model catalog plus provider bindings. It is
// populated once at startup and read-only afterwards, so lookups need no
// locking.
type Registry struct {
	providers map[string]Provider
	catalog   map[string]ModelConfig
	bindings  map[string]Binding
}

// NewRegistry creates a registry seeded with the given catalog entries.
func NewRegistry(catalog []ModelConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		catalog:   make(map[string]ModelConfig, len(catalog)),
		bindings:  make(map[string]Binding),
	}
	for _, m := range catalog {
		r.catalog[m.ID] = m
	}
	return r
}

// RegisterProvider adds a provider implementation.
func (r *Registry) RegisterProvider(name string, p Provider) {
	r.providers[name] = p
}

// Bind attaches a catalog model to a provider and wire model name.
func (r *Registry) Bind(modelID, provider, wireModel string) error {
	if _, ok := r.catalog[modelID]; !ok {
		return fmt.Errorf("model %q not in catalog", modelID)
	}
	if wireModel == "" {
		wireModel = modelID
	}
	r.bindings[modelID] = Binding{Provider: provider, WireModel: wireModel}
	return nil
}

// Get returns the catalog entry for a model id.
func (r *Registry) Get(modelID string) (ModelConfig, bool) {
	m, ok := r.catalog[modelID]
	return m, ok
}

// Has reports whether the model id exists in the catalog.
func (r *Registry) Has(modelID string) bool {
	_, ok := r.catalog[modelID]
	return ok
}

// List returns all catalog entries ordered by id.
func (r *Registry) List() []ModelConfig {
	out := make([]ModelConfig, 0, len(r.catalog))
	for _, m := range r.catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByTier returns catalog entries of the given tier ordered by avg TTFT.
func (r *Registry) ByTier(tier Tier) []ModelConfig {
	out := make([]ModelConfig, 0, len(r.catalog))
	for _, m := range r.catalog {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgTTFTMs != out[j].AvgTTFTMs {
			return out[i].AvgTTFTMs < out[j].AvgTTFTMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Fastest returns the speed-tier model with the lowest time-to-first-token.
func (r *Registry) Fastest() (ModelConfig, bool) {
	speed := r.ByTier(TierSpeed)
	if len(speed) == 0 {
		return ModelConfig{}, false
	}
	return speed[0], true
}

// Fallback returns the first declared fallback of the model that is distinct
// from every id in exclude.
func (r *Registry) Fallback(modelID string, exclude ...string) (ModelConfig, bool) {
	m, ok := r.catalog[modelID]
	if !ok {
		return ModelConfig{}, false
	}
next:
	for _, fb := range m.Fallbacks {
		for _, ex := range exclude {
			if fb == ex {
				continue next
			}
		}
		if fbCfg, ok := r.catalog[fb]; ok {
			return fbCfg, true
		}
	}
	return ModelConfig{}, false
}

// Resolve returns the provider and binding for a model id.
func (r *Registry) Resolve(modelID string) (Provider, Binding, error) {
	if _, ok := r.catalog[modelID]; !ok {
		return nil, Binding{}, fmt.Errorf("model %q not in catalog", modelID)
	}
	b, ok := r.bindings[modelID]
	if !ok {
		return nil, Binding{}, fmt.Errorf("model %q has no provider binding", modelID)
	}
	p, ok := r.providers[b.Provider]
	if !ok {
		return nil, Binding{}, fmt.Errorf("provider %q not registered for model %q", b.Provider, modelID)
	}
	return p, b, nil
}
