package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAISummarizer calls OpenAI's Responses API to produce summaries.
type OpenAISummarizer struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAISummarizer builds a new summarizer instance. Requests are made
// once; the client's retries are turned off. Extra request options are
// appended after the defaults.
func NewOpenAISummarizer(
	apiKey string,
	model string,
	opts ...option.RequestOption,
) (*OpenAISummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	m := openai.ChatModel(strings.TrimSpace(model))
	if m == "" {
		m = openai.ChatModelGPT5Mini2025_08_07
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  m,
	}, nil
}

// Summarize sends the fixed prompt in a single attempt.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	if strings.TrimSpace(input.Text) == "" {
		return "", errors.New("input is empty")
	}

	resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Reasoning: responses.ReasoningParam{
			Effort: openai.ReasoningEffortLow,
		},
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(BuildPrompt(input.Text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == "incomplete" {
		return "", fmt.Errorf(
			"response is incomplete (reason = %s, maxOutputTokens = %d)",
			resp.IncompleteDetails.Reason,
			maxOutputTokens,
		)
	}

	summary := resp.OutputText()
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
	}

	return summary, nil
}
