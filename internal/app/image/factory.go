package image

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobblescope/internal/infra/config"
	"github.com/osa030/scrobblescope/internal/infra/deezer"
	"github.com/osa030/scrobblescope/internal/infra/spotify"
)

// DeezerSettings configures the deezer provider.
type DeezerSettings struct {
	BaseURL   string `mapstructure:"base_url" default:"https://api.deezer.com" validate:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms" default:"8000" validate:"gte=1"`
}

// SpotifySettings configures the spotify provider.
type SpotifySettings struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	TimeoutMs    int    `mapstructure:"timeout_ms" default:"8000" validate:"gte=1"`
}

// Factory builds a provider from its settings map.
type Factory func(ctx context.Context, settings map[string]any, userAgent string) (Provider, error)

// registry holds provider factories by type.
var registry = map[string]Factory{
	"deezer":  newDeezerFromSettings,
	"spotify": newSpotifyFromSettings,
}

// RegisteredTypes returns the registered provider types in sorted order.
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewChainFromConfig creates the fallback chain from configuration.
func NewChainFromConfig(ctx context.Context, providers []config.ProviderConfig, policy *Policy, userAgent string) (*Chain, error) {
	var named []NamedProvider

	for i, pcfg := range providers {
		factory, ok := registry[pcfg.Type]
		if !ok {
			return nil, errors.Newf("unsupported image provider type: %s (provider index %d)", pcfg.Type, i)
		}

		zlog.Debug().Msgf("creating image provider: index=%d type=%s", i+1, pcfg.Type)
		provider, err := factory(ctx, pcfg.Settings, userAgent)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create image provider (index %d, type %s)", i, pcfg.Type)
		}

		named = append(named, NamedProvider{Provider: provider, DisplayName: pcfg.DisplayName})
		zlog.Info().Msgf("registered image provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(policy, named...), nil
}

func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func newDeezerFromSettings(_ context.Context, settings map[string]any, userAgent string) (Provider, error) {
	var s DeezerSettings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}

	client := deezer.New(deezer.Config{
		BaseURL:   s.BaseURL,
		UserAgent: userAgent,
		Timeout:   time.Duration(s.TimeoutMs) * time.Millisecond,
	})
	return NewDeezerProvider(client), nil
}

func newSpotifyFromSettings(ctx context.Context, settings map[string]any, _ string) (Provider, error) {
	var s SpotifySettings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Timeout:      time.Duration(s.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return NewSpotifyProvider(client), nil
}
