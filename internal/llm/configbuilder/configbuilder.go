// Package configbuilder turns declarative configuration into a live model
// registry with connected providers.
package configbuilder

import (
	"fmt"

	"github.com/polyroute/polyroute/internal/config"
	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/llm/providers/ollama"
	"github.com/polyroute/polyroute/internal/llm/providers/openai"
)

// BuildRegistry constructs a registry over the built-in model catalog,
// instantiates every configured provider, and binds each configured model to
// its provider and wire name.
func BuildRegistry(cfg *config.Config) (*llm.Registry, error) {
	reg := llm.NewRegistry(llm.DefaultCatalog())

	for name, pc := range cfg.Providers {
		p, err := buildProvider(name, pc)
		if err != nil {
			return nil, err
		}
		reg.RegisterProvider(name, p)
	}

	for modelID, b := range cfg.Models {
		wire := b.WireModel
		if wire == "" {
			wire = modelID
		}
		if err := reg.Bind(modelID, b.Provider, wire); err != nil {
			return nil, fmt.Errorf("bind model %q: %w", modelID, err)
		}
	}

	return reg, nil
}

func buildProvider(name string, pc config.ProviderConfig) (llm.Provider, error) {
	switch pc.Type {
	case "openai", "openrouter", "vllm", "lmstudio", "custom":
		return openai.NewProvider(name, pc.BaseURL, pc.APIKey, pc.Timeout, pc.RPS), nil
	case "ollama":
		return ollama.NewProvider(name, pc.BaseURL, pc.Timeout, pc.RPS), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for provider %q", pc.Type, name)
	}
}
