package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/joblens/matcher/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiExtractor runs vacancy extraction on the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiExtractor creates an extractor for the Gemini API backend.
// model defaults to gemini-2.0-flash when empty.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("extract: gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &GeminiExtractor{client: client, model: model, logger: logger}, nil
}

var _ Extractor = (*GeminiExtractor)(nil)

// Extract sends the vacancy text to Gemini and parses the structured record
// from the response. Model invocation failures return an error; malformed
// model output returns a failure marker with a nil error.
func (g *GeminiExtractor) Extract(ctx context.Context, text string) (*models.VacancyAttributes, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(text)), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var b strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}

			b.WriteString(part.Text)
		}
	}

	raw := strings.TrimSpace(b.String())
	if raw == "" {
		g.logger.Warn("extraction returned empty response", "model", g.model)

		return &models.VacancyAttributes{ParseError: "empty model response"}, nil
	}

	attrs := ParseAttributes(raw)
	if attrs.Failed() {
		g.logger.Warn("extraction output unparseable", "model", g.model, "reason", attrs.ParseError)
	}

	return attrs, nil
}
