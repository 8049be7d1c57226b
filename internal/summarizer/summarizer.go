package summarizer

import (
	"context"
)

const maxOutputTokens = 4096

// Input describes the payload for a summary request.
type Input struct {
	// VideoID identifies the source video. It is used for logging only.
	VideoID string
	// Text contains the plain transcript text to summarise.
	Text string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}
