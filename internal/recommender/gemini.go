package recommender

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nextreadapp/nextread-server/internal/domain"
)

// Sampling temperature used for every suggestion request.
const suggestTemperature = 0.7

// Gemini generates book proposals with Google's Gemini models.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Suggest asks the model for one book proposal based on the input books.
func (g *Gemini) Suggest(ctx context.Context, inputs []*domain.Book, exclude *domain.Book) (*Proposal, error) {
	prompt := BuildPrompt(inputs, exclude)

	model := g.client.GenerativeModel(g.model)
	temp := float32(suggestTemperature)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: &temp,
	}

	g.logger.Debug("gemini suggest", "model", g.model, "inputs", len(inputs))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	raw := collectText(resp)
	if raw == "" {
		return nil, &ParseError{Err: ErrNoProposal}
	}

	return ParseProposal(raw)
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
