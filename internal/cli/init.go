package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/auth"
	"github.com/fpang/postrender/internal/scene"
)

// InitSceneProvider creates and validates a Gemini client for scene
// analysis. Analysis is optional, so every failure is logged and yields a
// nil provider instead of exiting.
func InitSceneProvider(ctx context.Context, model string) scene.Provider {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Warn().Err(err).Msg("No Gemini API key, scene analysis disabled")
		return nil
	}

	client, err := scene.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Gemini client, scene analysis disabled")
		return nil
	}

	provider := scene.NewGeminiProvider(client, model)
	if err := auth.ValidateAPIKey(ctx, client.Models, provider.Model()); err != nil {
		var verr *auth.ValidationError
		retryable := errors.As(err, &verr) && verr.Retryable()
		log.Warn().Err(err).Bool("retryable", retryable).Msg(ValidationHint(err) + ", scene analysis disabled")
		return nil
	}

	log.Info().Str("model", provider.Model()).Msg("Gemini client initialized")
	return provider
}
