// Package image resolves display images for artists and albums.
//
// Resolution first ranks the candidates embedded in the primary payload, then walks an
// ordered chain of fallback providers. Every accepted URL is upgraded to https and checked
// against a placeholder denylist; absence is reported as nil, never as an error.
package image

import (
	"strings"

	"github.com/osa030/scrobblescope/internal/infra/lastfm"
)

// SizePreference is the order in which Last.fm image sizes are tried.
var SizePreference = []string{"mega", "extralarge", "large", "medium", "small"}

// Default placeholder patterns.
var (
	DefaultPlaceholderHashes   = []string{"2a96cbd8b46e442fc41c2b86b821562f"}
	DefaultPlaceholderSuffixes = []string{"/star.png"}
)

// Candidate is an image URL tagged with its provider size label.
type Candidate struct {
	Size string
	URL  string
}

// FromLastFM converts a Last.fm image list to candidates.
func FromLastFM(images []lastfm.Image) []Candidate {
	out := make([]Candidate, 0, len(images))
	for _, img := range images {
		out = append(out, Candidate{Size: img.Size, URL: img.URL})
	}
	return out
}

// Policy decides which URLs are acceptable images.
type Policy struct {
	hashes   []string
	suffixes []string
}

// NewPolicy creates a policy rejecting URLs containing any of hashes or ending with any of suffixes.
func NewPolicy(hashes, suffixes []string) *Policy {
	return &Policy{
		hashes:   append([]string(nil), hashes...),
		suffixes: append([]string(nil), suffixes...),
	}
}

// DefaultPolicy returns the policy with the built-in placeholder denylist.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultPlaceholderHashes, DefaultPlaceholderSuffixes)
}

// IsPlaceholder reports whether url is a known placeholder asset.
func (p *Policy) IsPlaceholder(url string) bool {
	for _, h := range p.hashes {
		if h != "" && strings.Contains(url, h) {
			return true
		}
	}
	for _, s := range p.suffixes {
		if s != "" && strings.HasSuffix(url, s) {
			return true
		}
	}
	return false
}

// Accept upgrades url to https and returns it, or nil when it is empty or a placeholder.
func (p *Policy) Accept(url string) *string {
	url = SecureURL(strings.TrimSpace(url))
	if url == "" || p.IsPlaceholder(url) {
		return nil
	}
	return &url
}

// Best returns the first acceptable candidate in SizePreference order.
// Candidates with an unknown size label are ignored.
func (p *Policy) Best(candidates []Candidate) *string {
	for _, size := range SizePreference {
		for _, c := range candidates {
			if c.Size != size || c.URL == "" {
				continue
			}
			if u := p.Accept(c.URL); u != nil {
				return u
			}
		}
	}
	return nil
}

// SecureURL rewrites an http:// URL to https://.
func SecureURL(url string) string {
	if strings.HasPrefix(url, "http://") {
		return "https://" + strings.TrimPrefix(url, "http://")
	}
	return url
}
