package scene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/postrender/internal/assets"
	"github.com/fpang/postrender/internal/jsonutil"
)

// Request limits for scene analysis.
const (
	// MaxFrames caps how many stills are sent in one request.
	MaxFrames = 5

	analysisTemperature     = 0.2
	analysisMaxOutputTokens = 2048
)

// contentGenerator is the part of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider analyzes stills with a Gemini vision model.
type GeminiProvider struct {
	models contentGenerator
	model  string
}

// NewGeminiClient creates a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiProvider returns a provider using client. An empty model selects
// GetModelName().
func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = GetModelName()
	}
	return &GeminiProvider{models: client.Models, model: model}
}

// Model returns the model id requests are sent to.
func (p *GeminiProvider) Model() string { return p.model }

// Analyze sends up to MaxFrames stills plus the analysis instruction and
// parses the first JSON object in the reply. A reply without parseable JSON
// yields an error-tagged Context rather than an error; transport failures
// and unreadable frames return an error.
func (p *GeminiProvider) Analyze(ctx context.Context, frames []string, source string) (*Context, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to analyze")
	}
	if len(frames) > MaxFrames {
		frames = frames[:MaxFrames]
	}

	parts := make([]*genai.Part, 0, len(frames)+1)
	parts = append(parts, &genai.Part{Text: assets.BuildSceneAnalysisPrompt(source)})
	for _, f := range frames {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", filepath.Base(f), err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](analysisTemperature),
		MaxOutputTokens: analysisMaxOutputTokens,
	}

	log.Info().
		Str("model", p.model).
		Int("frames", len(frames)).
		Str("source", filepath.Base(source)).
		Msg("Requesting scene analysis")

	start := time.Now()
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := p.models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("scene analysis request: %w", err)
	}

	text := resp.Text()
	log.Debug().
		Dur("duration", time.Since(start)).
		Int("response_length", len(text)).
		Msg("Scene analysis response received")

	return ParseResponse(text), nil
}

// ParseResponse builds a Context from a model reply. The first balanced
// JSON object is used; when none parses the context carries the raw text.
func ParseResponse(text string) *Context {
	sections, err := jsonutil.ParseJSON[map[string]any](text)
	if err != nil {
		log.Warn().Err(err).Msg("Scene analysis returned no structured data")
		return &Context{Error: "No structured data found", TextAnalysis: text}
	}
	if e, ok := sections["error"].(string); ok && e != "" {
		return &Context{Error: e, TextAnalysis: text}
	}
	return &Context{Sections: sections}
}
