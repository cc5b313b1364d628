package image

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// Provider looks up an image URL by subject display name.
// It returns "" with a nil error when it has no image.
type Provider interface {
	FindImage(ctx context.Context, name string) (string, error)
	// Name returns the provider type (used in config).
	Name() string
}

// NamedProvider wraps a provider with its display name.
type NamedProvider struct {
	Provider    Provider
	DisplayName string
}

// Chain tries providers in order until one returns an acceptable image.
type Chain struct {
	policy    *Policy
	providers []NamedProvider
}

// NewChain creates a new provider chain.
func NewChain(policy *Policy, providers ...NamedProvider) *Chain {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Chain{
		policy:    policy,
		providers: providers,
	}
}

// Prepend returns a new chain that tries p before the providers of c.
func (c *Chain) Prepend(p NamedProvider) *Chain {
	providers := make([]NamedProvider, 0, len(c.providers)+1)
	providers = append(providers, p)
	providers = append(providers, c.providers...)
	return &Chain{policy: c.policy, providers: providers}
}

// Len returns the number of providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Find returns the first acceptable image, or nil. Provider failures are logged and skipped.
func (c *Chain) Find(ctx context.Context, name string) *string {
	if name == "" {
		return nil
	}

	for i, pm := range c.providers {
		if ctx.Err() != nil {
			return nil
		}

		url, err := pm.Provider.FindImage(ctx, name)
		if err != nil {
			zlog.Warn().Msgf("image provider failed, trying next: provider=%s subject=%s error=%v", pm.DisplayName, name, err)
			continue
		}

		accepted := c.policy.Accept(url)
		if accepted == nil {
			zlog.Debug().Msgf("image provider returned no image: index=%d provider=%s subject=%s", i+1, pm.DisplayName, name)
			continue
		}

		zlog.Debug().Msgf("image resolved: provider=%s subject=%s", pm.DisplayName, name)
		return accepted
	}

	return nil
}
