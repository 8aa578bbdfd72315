package llm

import "context"

// RegistryCaller adapts the registry to the Caller seam: it resolves a
// catalog model id to its provider and rewrites the call to carry the
// provider's wire model name.
type RegistryCaller struct {
	registry *Registry
}

// NewRegistryCaller wraps a registry as a Caller.
func NewRegistryCaller(r *Registry) *RegistryCaller {
	return &RegistryCaller{registry: r}
}

// Call resolves the model and streams from its provider. Resolution errors
// are delivered on the error channel so callers handle every failure mode in
// one place.
func (c *RegistryCaller) Call(ctx context.Context, call Call) (<-chan StreamChunk, <-chan error) {
	p, binding, err := c.registry.Resolve(call.Model)
	if err != nil {
		ch := make(chan StreamChunk)
		errCh := make(chan error, 1)
		errCh <- err
		close(ch)
		close(errCh)
		return ch, errCh
	}
	call.Model = binding.WireModel
	return p.Stream(ctx, call)
}

var _ Caller = (*RegistryCaller)(nil)
