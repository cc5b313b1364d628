package image

import (
	"context"

	"github.com/osa030/scrobblescope/internal/infra/lastfm"
)

// DeezerClient is the subset of the Deezer client used here.
type DeezerClient interface {
	SearchArtistPicture(ctx context.Context, artistName string) (string, error)
}

// SpotifyClient is the subset of the Spotify client used here.
type SpotifyClient interface {
	SearchArtistImage(ctx context.Context, name string) (string, error)
}

// LastFMClient is the subset of the Last.fm client used here.
type LastFMClient interface {
	GetArtistInfo(ctx context.Context, artistName string, autocorrect bool) (*lastfm.ArtistInfoResponse, error)
}

// DeezerProvider finds artist pictures on Deezer.
type DeezerProvider struct {
	client DeezerClient
}

// NewDeezerProvider creates a new DeezerProvider.
func NewDeezerProvider(client DeezerClient) *DeezerProvider {
	return &DeezerProvider{client: client}
}

// FindImage implements Provider.
func (p *DeezerProvider) FindImage(ctx context.Context, name string) (string, error) {
	return p.client.SearchArtistPicture(ctx, name)
}

// Name returns the provider name.
func (p *DeezerProvider) Name() string {
	return "deezer"
}

// SpotifyProvider finds artist images on Spotify.
type SpotifyProvider struct {
	client SpotifyClient
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(client SpotifyClient) *SpotifyProvider {
	return &SpotifyProvider{client: client}
}

// FindImage implements Provider.
func (p *SpotifyProvider) FindImage(ctx context.Context, name string) (string, error) {
	return p.client.SearchArtistImage(ctx, name)
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}

// LastFMProvider reads the image list of artist.getInfo. It is placed in front of
// the fallback chain when search results arrive without images.
type LastFMProvider struct {
	client LastFMClient
	policy *Policy
}

// NewLastFMProvider creates a new LastFMProvider.
func NewLastFMProvider(client LastFMClient, policy *Policy) *LastFMProvider {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &LastFMProvider{client: client, policy: policy}
}

// FindImage implements Provider.
func (p *LastFMProvider) FindImage(ctx context.Context, name string) (string, error) {
	resp, err := p.client.GetArtistInfo(ctx, name, true)
	if err != nil {
		return "", err
	}
	if !resp.Artist.Present {
		return "", nil
	}

	best := p.policy.Best(FromLastFM(resp.Artist.Value.Image))
	if best == nil {
		return "", nil
	}
	return *best, nil
}

// Name returns the provider name.
func (p *LastFMProvider) Name() string {
	return "lastfm"
}
