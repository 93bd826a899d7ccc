package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/media"
)

// NewAI returns a lazily constructed Gemini client. A missing API key does
// not fail startup; AI calls and the AI health check report it instead.
func NewAI(cfg *config.Config, log zerolog.Logger) *ai.Lazy {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("DIARY_GEMINI_API_KEY not set; AI features will fail")
	}
	return ai.NewLazy(ai.Config{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		ModelFast:      cfg.ModelFast,
		ModelDeep:      cfg.ModelDeep,
		ModelImageEdit: cfg.ModelImageEdit,
		ModelImageGen:  cfg.ModelImageGen,
		ThinkingBudget: cfg.DeepThinkingBudget,
		Timeout:        cfg.AITimeout(),
	}, ai.WithLogger(log.With().Str("component", "ai").Logger()))
}

// NewMedia returns the payload resolver. Without a bucket every payload
// stays inline in its row.
func NewMedia(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*media.Resolver, error) {
	if !cfg.MediaOffloadEnabled() {
		return media.NewResolver(nil, 0), nil
	}
	blobs, err := media.NewS3Blobs(ctx, media.S3Config{
		Bucket:          cfg.MediaBucket,
		Region:          cfg.MediaRegion,
		Endpoint:        cfg.MediaEndpoint,
		AccessKeyID:     cfg.MediaAccessKeyID,
		SecretAccessKey: cfg.MediaSecretKey,
		UsePathStyle:    cfg.MediaUsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}
	log.Debug().Str("bucket", cfg.MediaBucket).Int("offload_bytes", cfg.MediaOffloadBytes).Msg("media offload enabled")
	return media.NewResolver(blobs, cfg.MediaOffloadBytes), nil
}

// NewAuthClient returns the auth service client, or nil when DIARY_AUTH_URL
// is unset.
func NewAuthClient(cfg *config.Config) (*auth.Client, error) {
	if cfg.AuthURL == "" {
		return nil, nil
	}
	return auth.New(auth.Config{URL: cfg.AuthURL, APIKey: cfg.AuthAPIKey, Timeout: 15 * time.Second})
}

// NewAuthenticator prefers local JWT verification and falls back to asking
// the auth service about each token.
func NewAuthenticator(cfg *config.Config, client *auth.Client) (auth.Authenticator, error) {
	if cfg.JWTSecret != "" {
		v, err := auth.NewVerifier(cfg.JWTSecret, "authenticated")
		if err != nil {
			return nil, err
		}
		return auth.NewJWTAuthenticator(v), nil
	}
	if client != nil {
		return auth.NewRemoteAuthenticator(client), nil
	}
	return nil, fmt.Errorf("token verification needs DIARY_JWT_SECRET or DIARY_AUTH_URL: %w", auth.ErrNotConfigured)
}
