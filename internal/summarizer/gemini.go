package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiSummarizer calls the Gemini API through google.golang.org/genai.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(
	ctx context.Context,
	apiKey string,
	model string,
) (*GeminiSummarizer, error) {
	return newGeminiSummarizer(ctx, apiKey, model, genai.HTTPOptions{})
}

func newGeminiSummarizer(
	ctx context.Context,
	apiKey string,
	model string,
	httpOptions genai.HTTPOptions,
) (*GeminiSummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

func (s *GeminiSummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	if strings.TrimSpace(input.Text) == "" {
		return "", errors.New("input is empty")
	}

	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(BuildPrompt(input.Text)),
		&genai.GenerateContentConfig{MaxOutputTokens: maxOutputTokens},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}

	summary := b.String()
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("output text is missing (finishReason = %s)", result.Candidates[0].FinishReason)
	}

	return summary, nil
}
