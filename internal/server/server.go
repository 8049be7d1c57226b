package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"focustube/internal/domain"
	"focustube/internal/summary"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type SummaryGetter interface {
	GetSummary(ctx context.Context, videoID string, title string) (*domain.Summary, error)
}

type HistoryLister interface {
	ListRecentSummaries(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

type Server struct {
	summaries SummaryGetter
	history   HistoryLister
	log       *slog.Logger
}

// New builds the HTTP surface. The history listing is registered only when
// history is non-nil.
func New(summaries SummaryGetter, history HistoryLister, log *slog.Logger) *Server {
	return &Server{
		summaries: summaries,
		history:   history,
		log:       log,
	}
}

type summaryResponse struct {
	VideoID      string  `json:"video_id"`
	Summary      string  `json:"summary"`
	ObsidianPath *string `json:"obsidian_path"`
}

type historyEntryResponse struct {
	ID           int64   `json:"id"`
	VideoID      string  `json:"video_id"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	ObsidianPath *string `json:"obsidian_path"`
	CreatedAt    string  `json:"created_at"`
}

type historyResponse struct {
	Summaries []historyEntryResponse `json:"summaries"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary/{videoId}", s.handleGetSummary)
	if s.history != nil {
		mux.HandleFunc("GET /api/summaries", s.handleListSummaries)
	}

	return withCORS(mux)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	videoID := r.PathValue("videoId")
	title := r.URL.Query().Get("title")

	result, err := s.summaries.GetSummary(ctx, videoID, title)
	if err != nil {
		status := statusForError(err)
		s.log.ErrorContext(ctx, "Failed to get summary",
			"error", err,
			"videoID", videoID,
			"status", status,
			"durationSeconds", time.Since(start).Seconds())

		writeJSON(ctx, w, status, errorResponse{Detail: detailForError(err)}, s.log)
		return
	}

	s.log.InfoContext(ctx, "Summary is served",
		"videoID", result.VideoID,
		"note", result.Note.String(),
		"durationSeconds", time.Since(start).Seconds())

	writeJSON(ctx, w, http.StatusOK, summaryResponse{
		VideoID:      result.VideoID,
		Summary:      result.Text,
		ObsidianPath: optionalPath(result.Note.Path),
	}, s.log)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
				Detail: "limit must be an integer between 1 and " + strconv.Itoa(maxHistoryLimit),
			}, s.log)
			return
		}
		limit = parsed
	}

	entries, err := s.history.ListRecentSummaries(ctx, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list summaries",
			"error", err,
			"limit", limit)

		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Detail: "Failed to list summaries."}, s.log)
		return
	}

	resp := historyResponse{Summaries: make([]historyEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Summaries = append(resp.Summaries, historyEntryResponse{
			ID:           e.ID,
			VideoID:      e.VideoID,
			Title:        e.Title,
			Summary:      e.Summary,
			ObsidianPath: optionalPath(e.NotePath),
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(ctx, w, http.StatusOK, resp, s.log)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, summary.ErrTranscriptUnavailable), errors.Is(err, summary.ErrEmptyTranscript):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// detailForError renders err as a sentence for the response body: the first
// letter is capitalised, the configuration sentinel prefix is dropped and the
// fixed messages end with a period.
func detailForError(err error) string {
	switch {
	case errors.Is(err, summary.ErrConfiguration):
		return strings.TrimPrefix(err.Error(), summary.ErrConfiguration.Error()+": ") + "."
	case errors.Is(err, summary.ErrEmptyTranscript):
		return "Transcript is empty for this video."
	}

	msg := err.Error()
	if msg == "" {
		return msg
	}

	r, size := utf8.DecodeRuneInString(msg)

	return string(unicode.ToUpper(r)) + msg[size:]
}

func optionalPath(path string) *string {
	if path == "" {
		return nil
	}
	return &path
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		log.ErrorContext(ctx, "Failed to write response",
			"error", err,
			"status", status)
	}
}
