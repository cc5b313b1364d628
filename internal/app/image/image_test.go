package image

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/scrobblescope/internal/infra/config"
	"github.com/osa030/scrobblescope/internal/infra/lastfm"
)

type stubProvider struct {
	name  string
	url   string
	err   error
	calls int
}

func (s *stubProvider) FindImage(ctx context.Context, name string) (string, error) {
	s.calls++
	return s.url, s.err
}

func (s *stubProvider) Name() string {
	return s.name
}

func TestPolicy_Accept(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		url  string
		want *string
	}{
		{name: "empty", url: "", want: nil},
		{name: "whitespace", url: "   ", want: nil},
		{name: "placeholder hash", url: "https://lastfm.freetls.fastly.net/i/u/300x300/2a96cbd8b46e442fc41c2b86b821562f.png", want: nil},
		{name: "star suffix", url: "https://example.com/img/star.png", want: nil},
		{name: "http upgraded", url: "http://example.com/a.jpg", want: strPtr("https://example.com/a.jpg")},
		{name: "https kept", url: "https://example.com/b.jpg", want: strPtr("https://example.com/b.jpg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Accept(tt.url))
		})
	}
}

func TestPolicy_Best(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name       string
		candidates []Candidate
		want       *string
	}{
		{
			name:       "no candidates",
			candidates: nil,
			want:       nil,
		},
		{
			name: "prefers larger size regardless of order",
			candidates: []Candidate{
				{Size: "small", URL: "https://x/s.jpg"},
				{Size: "extralarge", URL: "https://x/xl.jpg"},
				{Size: "large", URL: "https://x/l.jpg"},
			},
			want: strPtr("https://x/xl.jpg"),
		},
		{
			name: "skips placeholder of preferred size",
			candidates: []Candidate{
				{Size: "mega", URL: "https://x/2a96cbd8b46e442fc41c2b86b821562f.png"},
				{Size: "medium", URL: "http://x/m.jpg"},
			},
			want: strPtr("https://x/m.jpg"),
		},
		{
			name: "unknown size ignored",
			candidates: []Candidate{
				{Size: "", URL: "https://x/none.jpg"},
			},
			want: nil,
		},
		{
			name: "all placeholders",
			candidates: []Candidate{
				{Size: "large", URL: "https://x/star.png"},
				{Size: "small", URL: ""},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Best(tt.candidates))
		})
	}
}

func TestChain_Find(t *testing.T) {
	t.Run("falls through errors and placeholders", func(t *testing.T) {
		failing := &stubProvider{name: "a", err: errors.New("boom")}
		placeholder := &stubProvider{name: "b", url: "https://x/star.png"}
		good := &stubProvider{name: "c", url: "http://x/good.jpg"}
		never := &stubProvider{name: "d", url: "https://x/never.jpg"}

		chain := NewChain(nil,
			NamedProvider{Provider: failing, DisplayName: "A"},
			NamedProvider{Provider: placeholder, DisplayName: "B"},
			NamedProvider{Provider: good, DisplayName: "C"},
			NamedProvider{Provider: never, DisplayName: "D"},
		)

		got := chain.Find(context.Background(), "Radiohead")
		require.NotNil(t, got)
		assert.Equal(t, "https://x/good.jpg", *got)
		assert.Equal(t, 1, failing.calls)
		assert.Equal(t, 1, placeholder.calls)
		assert.Equal(t, 0, never.calls)
	})

	t.Run("empty name", func(t *testing.T) {
		p := &stubProvider{name: "a", url: "https://x/a.jpg"}
		chain := NewChain(nil, NamedProvider{Provider: p, DisplayName: "A"})

		assert.Nil(t, chain.Find(context.Background(), ""))
		assert.Equal(t, 0, p.calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := &stubProvider{name: "a", url: "https://x/a.jpg"}
		chain := NewChain(nil, NamedProvider{Provider: p, DisplayName: "A"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Nil(t, chain.Find(ctx, "Radiohead"))
		assert.Equal(t, 0, p.calls)
	})

	t.Run("prepend tries new provider first", func(t *testing.T) {
		first := &stubProvider{name: "first", url: "https://x/first.jpg"}
		second := &stubProvider{name: "second", url: "https://x/second.jpg"}
		base := NewChain(nil, NamedProvider{Provider: second, DisplayName: "Second"})

		chain := base.Prepend(NamedProvider{Provider: first, DisplayName: "First"})
		assert.Equal(t, 2, chain.Len())
		assert.Equal(t, 1, base.Len())

		got := chain.Find(context.Background(), "x")
		require.NotNil(t, got)
		assert.Equal(t, "https://x/first.jpg", *got)
		assert.Equal(t, 0, second.calls)
	})
}

func TestResolver_Resolve(t *testing.T) {
	fallback := &stubProvider{name: "deezer", url: "https://cdn/fallback.jpg"}
	resolver := NewResolver(nil, NewChain(nil, NamedProvider{Provider: fallback, DisplayName: "Deezer"}))

	embedded := []Candidate{{Size: "large", URL: "http://x/l.jpg"}}
	got := resolver.Resolve(context.Background(), embedded, "Radiohead")
	require.NotNil(t, got)
	assert.Equal(t, "https://x/l.jpg", *got)
	assert.Equal(t, 0, fallback.calls)

	placeholders := []Candidate{{Size: "large", URL: "https://x/2a96cbd8b46e442fc41c2b86b821562f.png"}}
	got = resolver.Resolve(context.Background(), placeholders, "Radiohead")
	require.NotNil(t, got)
	assert.Equal(t, "https://cdn/fallback.jpg", *got)
	assert.Equal(t, 1, fallback.calls)

	empty := NewResolver(nil, nil)
	assert.Nil(t, empty.Resolve(context.Background(), placeholders, "Radiohead"))
}

type stubLastFM struct {
	resp *lastfm.ArtistInfoResponse
	err  error
}

func (s *stubLastFM) GetArtistInfo(ctx context.Context, name string, autocorrect bool) (*lastfm.ArtistInfoResponse, error) {
	return s.resp, s.err
}

func TestLastFMProvider_FindImage(t *testing.T) {
	resp := &lastfm.ArtistInfoResponse{}
	resp.Artist.Present = true
	resp.Artist.Value.Image = lastfm.List[lastfm.Image]{
		{URL: "http://x/m.jpg", Size: "medium"},
		{URL: "https://x/2a96cbd8b46e442fc41c2b86b821562f.png", Size: "mega"},
	}

	p := NewLastFMProvider(&stubLastFM{resp: resp}, nil)
	url, err := p.FindImage(context.Background(), "Cher")
	require.NoError(t, err)
	assert.Equal(t, "https://x/m.jpg", url)
	assert.Equal(t, "lastfm", p.Name())

	missing := NewLastFMProvider(&stubLastFM{resp: &lastfm.ArtistInfoResponse{}}, nil)
	url, err = missing.FindImage(context.Background(), "Cher")
	require.NoError(t, err)
	assert.Empty(t, url)

	failing := NewLastFMProvider(&stubLastFM{err: errors.New("down")}, nil)
	_, err = failing.FindImage(context.Background(), "Cher")
	assert.Error(t, err)
}

func TestNewChainFromConfig(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		_, err := NewChainFromConfig(context.Background(), []config.ProviderConfig{
			{Type: "nope", DisplayName: "Nope"},
		}, nil, "ua")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported image provider type")
	})

	t.Run("deezer with defaults", func(t *testing.T) {
		chain, err := NewChainFromConfig(context.Background(), []config.ProviderConfig{
			{Type: "deezer", DisplayName: "Deezer", Settings: map[string]any{"timeout_ms": "2000"}},
		}, nil, "ua")
		require.NoError(t, err)
		assert.Equal(t, 1, chain.Len())
	})

	t.Run("spotify requires credentials", func(t *testing.T) {
		_, err := NewChainFromConfig(context.Background(), []config.ProviderConfig{
			{Type: "spotify", DisplayName: "Spotify", Settings: map[string]any{"client_id": "id"}},
		}, nil, "ua")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ClientSecret")
	})
}

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []string{"deezer", "spotify"}, RegisteredTypes())
}

func strPtr(s string) *string {
	return &s
}
