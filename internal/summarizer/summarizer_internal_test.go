package summarizer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
)

func TestBuildPromptSubstitutesTranscriptOnce(t *testing.T) {
	prompt := BuildPrompt("Hello  world. {transcript}")

	if strings.Count(prompt, "Hello  world.") != 1 {
		t.Fatalf("expected transcript to appear once, got %q", prompt)
	}

	if !strings.HasSuffix(prompt, "Here is the transcript:\n\nHello  world. {transcript}") {
		t.Fatalf("expected transcript at the end of the prompt, got %q", prompt)
	}

	if !strings.HasPrefix(prompt, "You are given the full transcript of a YouTube video.") {
		t.Fatalf("unexpected prompt prefix: %q", prompt)
	}
}

type fakeLLMAPI struct {
	mu      sync.Mutex
	status  int
	body    string
	request map[string]any
	calls   int
}

func (f *fakeLLMAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &f.request)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func newFakeOpenAI(t *testing.T, fake *fakeLLMAPI) *OpenAISummarizer {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewOpenAISummarizer("sk-test", "", option.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return s
}

func TestOpenAISummarizerReturnsOutputText(t *testing.T) {
	fake := &fakeLLMAPI{
		status: http.StatusOK,
		body: `{
			"id": "resp_1",
			"object": "response",
			"status": "completed",
			"model": "gpt-5-mini-2025-08-07",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "## Overview\nA summary.", "annotations": []}]
			}]
		}`,
	}
	s := newFakeOpenAI(t, fake)

	got, err := s.Summarize(context.Background(), Input{VideoID: "abc123", Text: "Hello  world."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "## Overview\nA summary." {
		t.Fatalf("unexpected summary: %q", got)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if fake.calls != 1 {
		t.Fatalf("expected one request, got %d", fake.calls)
	}
	if fake.request["model"] != "gpt-5-mini-2025-08-07" {
		t.Fatalf("unexpected model: %v", fake.request["model"])
	}
	if tokens, ok := fake.request["max_output_tokens"].(float64); !ok || tokens != maxOutputTokens {
		t.Fatalf("unexpected max_output_tokens: %v", fake.request["max_output_tokens"])
	}
	if input, _ := fake.request["input"].(string); input != BuildPrompt("Hello  world.") {
		t.Fatalf("unexpected input: %q", input)
	}
}

func TestOpenAISummarizerIncompleteResponse(t *testing.T) {
	fake := &fakeLLMAPI{
		status: http.StatusOK,
		body: `{
			"id": "resp_1",
			"object": "response",
			"status": "incomplete",
			"incomplete_details": {"reason": "max_output_tokens"},
			"output": []
		}`,
	}
	s := newFakeOpenAI(t, fake)

	_, err := s.Summarize(context.Background(), Input{Text: "text"})
	if err == nil || !strings.Contains(err.Error(), "max_output_tokens") {
		t.Fatalf("expected incomplete response error, got %v", err)
	}
}

func TestOpenAISummarizerProviderErrorIsNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			fake := &fakeLLMAPI{
				status: status,
				body:   `{"error": {"message": "boom", "type": "server_error"}}`,
			}
			s := newFakeOpenAI(t, fake)

			if _, err := s.Summarize(context.Background(), Input{Text: "text"}); err == nil {
				t.Fatalf("expected provider error")
			}

			fake.mu.Lock()
			defer fake.mu.Unlock()

			if fake.calls != 1 {
				t.Fatalf("expected a single attempt, got %d", fake.calls)
			}
		})
	}
}

func TestOpenAISummarizerRejectsEmptyInput(t *testing.T) {
	fake := &fakeLLMAPI{status: http.StatusOK, body: `{}`}
	s := newFakeOpenAI(t, fake)

	if _, err := s.Summarize(context.Background(), Input{Text: " \n "}); err == nil {
		t.Fatalf("expected error for empty input")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if fake.calls != 0 {
		t.Fatalf("expected no request for empty input, got %d", fake.calls)
	}
}

func TestNewSummarizersRequireAPIKey(t *testing.T) {
	if _, err := NewOpenAISummarizer(" ", ""); err == nil {
		t.Fatalf("expected error for empty OpenAI key")
	}

	if _, err := NewGeminiSummarizer(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty Gemini key")
	}
}

func TestGeminiSummarizerRejectsEmptyInput(t *testing.T) {
	s, err := NewGeminiSummarizer(context.Background(), "g-key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.model != defaultGeminiModel {
		t.Fatalf("unexpected default model: %q", s.model)
	}

	if _, err = s.Summarize(context.Background(), Input{Text: ""}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func newFakeGemini(t *testing.T, fake *fakeLLMAPI) *GeminiSummarizer {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := newGeminiSummarizer(context.Background(), "g-key", "", genai.HTTPOptions{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return s
}

func TestGeminiSummarizerReturnsOutputText(t *testing.T) {
	fake := &fakeLLMAPI{
		status: http.StatusOK,
		body: `{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "## Overview\n"}, {"text": "A summary."}]},
				"finishReason": "STOP"
			}]
		}`,
	}
	s := newFakeGemini(t, fake)

	got, err := s.Summarize(context.Background(), Input{VideoID: "abc123", Text: "Hello  world."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "## Overview\nA summary." {
		t.Fatalf("unexpected summary: %q", got)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if fake.calls != 1 {
		t.Fatalf("expected one request, got %d", fake.calls)
	}

	generationConfig, _ := fake.request["generationConfig"].(map[string]any)
	if tokens, ok := generationConfig["maxOutputTokens"].(float64); !ok || tokens != maxOutputTokens {
		t.Fatalf("unexpected maxOutputTokens: %v", fake.request["generationConfig"])
	}

	contents, _ := fake.request["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected a single-turn request, got %v", fake.request["contents"])
	}
	content, _ := contents[0].(map[string]any)
	parts, _ := content["parts"].([]any)
	if len(parts) != 1 {
		t.Fatalf("expected one prompt part, got %v", content["parts"])
	}
	part, _ := parts[0].(map[string]any)
	if part["text"] != BuildPrompt("Hello  world.") {
		t.Fatalf("unexpected prompt: %v", part["text"])
	}
}

func TestGeminiSummarizerEmptyCandidates(t *testing.T) {
	fake := &fakeLLMAPI{status: http.StatusOK, body: `{"candidates": []}`}
	s := newFakeGemini(t, fake)

	if _, err := s.Summarize(context.Background(), Input{Text: "text"}); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestGeminiSummarizerProviderError(t *testing.T) {
	fake := &fakeLLMAPI{
		status: http.StatusInternalServerError,
		body:   `{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`,
	}
	s := newFakeGemini(t, fake)

	if _, err := s.Summarize(context.Background(), Input{Text: "text"}); err == nil {
		t.Fatalf("expected provider error")
	}
}
