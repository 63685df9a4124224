package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// FailureKind categorizes an API key check failure.
type FailureKind int

const (
	KindInvalidKey FailureKind = iota + 1
	KindQuota
	KindNetwork
	KindUnknown
)

func (k FailureKind) String() string {
	switch k {
	case KindInvalidKey:
		return "invalid_key"
	case KindQuota:
		return "quota"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ValidationError describes why the key check failed.
type ValidationError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may clear on its own.
func (e *ValidationError) Retryable() bool {
	return e.Kind == KindQuota || e.Kind == KindNetwork
}

// generator is the slice of genai.Models used for the check.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ValidateAPIKey sends a one-token request to model and classifies any
// failure. Pass client.Models.
func ValidateAPIKey(ctx context.Context, models generator, model string) error {
	start := time.Now()
	resp, err := models.GenerateContent(ctx, model, genai.Text("ping"), &genai.GenerateContentConfig{MaxOutputTokens: 1})
	elapsed := time.Since(start)

	if err != nil {
		verr := classify(err)
		log.Warn().
			Err(err).
			Str("kind", verr.Kind.String()).
			Dur("duration", elapsed).
			Msg("API key check failed")
		return verr
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return &ValidationError{Kind: KindUnknown, Message: "empty response from Gemini"}
	}
	log.Debug().Str("model", model).Dur("duration", elapsed).Msg("API key check passed")
	return nil
}

var messagePatterns = []struct {
	kind     FailureKind
	message  string
	patterns []string
}{
	{KindInvalidKey, "API key is invalid or revoked", []string{"api key not valid", "invalid api key", "api_key_invalid", "permission denied"}},
	{KindQuota, "quota exceeded or rate limited", []string{"quota", "resource exhausted", "rate limit"}},
	{KindNetwork, "network error reaching Gemini", []string{"connection", "network", "timeout", "dial", "no such host", "unreachable"}},
}

func classify(err error) *ValidationError {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr)
	}

	msg := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		for _, s := range p.patterns {
			if strings.Contains(msg, s) {
				return &ValidationError{Kind: p.kind, Message: p.message, Err: err}
			}
		}
	}
	return &ValidationError{Kind: KindUnknown, Message: "API key check failed", Err: err}
}

func classifyStatus(err *genai.APIError) *ValidationError {
	switch {
	case err.Code == 400 || err.Code == 401 || err.Code == 403:
		return &ValidationError{Kind: KindInvalidKey, Message: "API key rejected", Err: err}
	case err.Code == 429:
		return &ValidationError{Kind: KindQuota, Message: "rate limit exceeded", Err: err}
	case err.Code >= 500:
		return &ValidationError{Kind: KindNetwork, Message: "Gemini server error", Err: err}
	default:
		return &ValidationError{Kind: KindUnknown, Message: err.Message, Err: err}
	}
}
