package transcript

import (
	"context"
	"errors"

	"focustube/internal/domain"
)

var (
	ErrEmptyVideoID        = errors.New("video ID is empty")
	ErrRequestBlocked      = errors.New("request is blocked by YouTube")
	ErrVideoUnavailable    = errors.New("video is unavailable")
	ErrVideoUnplayable     = errors.New("video is unplayable")
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	ErrNoTranscriptFound   = errors.New("no transcript found for requested languages")
	ErrPoTokenRequired     = errors.New("transcript requires a PO token")
	ErrInnertubeKeyMissing = errors.New("innertube API key is missing from watch page")
)

// Provider returns the caption fragments of a video in playback order.
type Provider interface {
	Fetch(ctx context.Context, videoID string) (*domain.Transcript, error)
}
