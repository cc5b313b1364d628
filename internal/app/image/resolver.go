package image

import "context"

// Resolver selects the best embedded image and falls back to a provider chain.
type Resolver struct {
	policy   *Policy
	fallback *Chain
}

// NewResolver creates a resolver. A nil fallback resolves embedded images only.
func NewResolver(policy *Policy, fallback *Chain) *Resolver {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if fallback == nil {
		fallback = NewChain(policy)
	}
	return &Resolver{policy: policy, fallback: fallback}
}

// Policy returns the placeholder policy.
func (r *Resolver) Policy() *Policy {
	return r.policy
}

// Fallback returns the provider chain used when embedded candidates are unusable.
func (r *Resolver) Fallback() *Chain {
	return r.fallback
}

// Resolve returns the best acceptable candidate, or the fallback chain's image for
// fallbackName, or nil.
func (r *Resolver) Resolve(ctx context.Context, candidates []Candidate, fallbackName string) *string {
	if best := r.policy.Best(candidates); best != nil {
		return best
	}
	return r.fallback.Find(ctx, fallbackName)
}
