package regressor

import (
	"context"
	"fmt"
	"sync"
)

// Resolver locates a model factory. It may block, for example while loading a
// model runtime from an explicitly given location.
type Resolver func(ctx context.Context) (Factory, error)

// Provider hands out a model factory resolved at most once. The caller builds
// one Provider and passes it to whoever trains models; there is no package
// level cache. A failed resolution is not remembered, so the next call retries.
type Provider struct {
	resolve Resolver

	mu      sync.Mutex
	factory Factory
}

// NewProvider creates a provider around a resolver.
func NewProvider(resolve Resolver) *Provider {
	return &Provider{resolve: resolve}
}

// NewRegistryProvider resolves the named booster from the registry.
func NewRegistryProvider(name string) *Provider {
	return NewProvider(func(ctx context.Context) (Factory, error) {
		return Lookup(name)
	})
}

// NewStaticProvider wraps an already constructed factory.
func NewStaticProvider(f Factory) *Provider {
	return &Provider{factory: f}
}

// Factory returns the resolved factory. Every failure is reported as
// ErrCapabilityUnavailable.
func (p *Provider) Factory(ctx context.Context) (Factory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.factory != nil {
		return p.factory, nil
	}
	if p.resolve == nil {
		return nil, fmt.Errorf("%w: no resolver configured", ErrCapabilityUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}

	f, err := p.resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: resolver returned no factory", ErrCapabilityUnavailable)
	}

	p.factory = f
	return f, nil
}

// Resolved reports whether the factory has been resolved.
func (p *Provider) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.factory != nil
}
