package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"focustube/internal/domain"
	"focustube/internal/notes"
	"focustube/internal/summarizer"
	"focustube/internal/transcript"
)

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrTranscriptUnavailable = errors.New("could not fetch transcript")
	ErrEmptyTranscript       = errors.New("transcript is empty for this video")
	ErrSummarizationFailed   = errors.New("LLM summarization failed")
)

// NoteSaver persists a finished summary. It reports the outcome instead of
// failing.
type NoteSaver interface {
	Save(ctx context.Context, note notes.Note) domain.NoteOutcome
}

type HistoryRecorder interface {
	AddSummary(ctx context.Context, entry domain.HistoryEntry) error
}

type Options struct {
	// CredentialEnvVar names the variable that must carry the generation
	// provider credential. It is quoted in configuration errors.
	CredentialEnvVar string
	// UseVideoTitle names notes after the fetched video title when the
	// caller did not supply one.
	UseVideoTitle bool
}

type Service struct {
	transcripts transcript.Provider
	summarizer  summarizer.Summarizer
	notes       NoteSaver
	history     HistoryRecorder
	opts        Options
	now         func() time.Time
	log         *slog.Logger
}

// New wires the pipeline. A nil summarizer means the provider credential is
// missing. A nil NoteSaver or HistoryRecorder disables that step.
func New(
	transcripts transcript.Provider,
	s summarizer.Summarizer,
	noteSaver NoteSaver,
	history HistoryRecorder,
	opts Options,
	log *slog.Logger,
) *Service {
	return &Service{
		transcripts: transcripts,
		summarizer:  s,
		notes:       noteSaver,
		history:     history,
		opts:        opts,
		now:         time.Now,
		log:         log,
	}
}

// GetSummary fetches the transcript of videoID, summarises it and optionally
// saves a note. title, when non-empty, names the note file.
func (s *Service) GetSummary(
	ctx context.Context,
	videoID string,
	title string,
) (*domain.Summary, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("%w: %s environment variable is not set", ErrConfiguration, s.opts.CredentialEnvVar)
	}

	id := strings.TrimSpace(videoID)

	tr, err := s.transcripts.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w for video %s: %w", ErrTranscriptUnavailable, videoID, err)
	}

	text := tr.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscript
	}

	s.log.InfoContext(ctx, "Transcript is ready",
		"videoID", id,
		"fragmentCount", len(tr.Fragments),
		"languageCode", tr.LanguageCode,
		"textLength", len(text))

	summaryText, err := s.summarizer.Summarize(ctx, summarizer.Input{VideoID: id, Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummarizationFailed, err)
	}

	result := &domain.Summary{
		VideoID: videoID,
		Title:   strings.TrimSpace(title),
		Text:    summaryText,
	}
	if result.Title == "" && s.opts.UseVideoTitle {
		result.Title = tr.Title
	}

	result.Note = s.saveNote(ctx, id, result)
	s.recordHistory(ctx, id, result)

	return result, nil
}

func (s *Service) saveNote(ctx context.Context, id string, result *domain.Summary) domain.NoteOutcome {
	if s.notes == nil {
		return domain.NoteSkipped(notes.SkipReasonDisabled)
	}

	outcome := s.notes.Save(ctx, notes.Note{
		VideoID: id,
		Title:   result.Title,
		Summary: result.Text,
	})
	if !outcome.Saved() {
		s.log.WarnContext(ctx, "Note is skipped",
			"videoID", id,
			"reason", outcome.SkipReason)
	}

	return outcome
}

func (s *Service) recordHistory(ctx context.Context, id string, result *domain.Summary) {
	if s.history == nil {
		return
	}

	err := s.history.AddSummary(ctx, domain.HistoryEntry{
		VideoID:   id,
		Title:     result.Title,
		Summary:   result.Text,
		NotePath:  result.Note.Path,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to record summary history",
			"error", err,
			"videoID", id)
	}
}
