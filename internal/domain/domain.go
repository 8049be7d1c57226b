package domain

import (
	"strings"
	"time"
)

type Fragment struct {
	Text     string
	Start    float64
	Duration float64
}

type Transcript struct {
	VideoID      string
	Title        string
	LanguageCode string
	Generated    bool
	Fragments    []Fragment
}

// Text joins fragment texts with a single space, in provider order.
func (t *Transcript) Text() string {
	if t == nil || len(t.Fragments) == 0 {
		return ""
	}

	texts := make([]string, len(t.Fragments))
	for i, f := range t.Fragments {
		texts[i] = f.Text
	}

	return strings.Join(texts, " ")
}

// NoteOutcome reports what happened to the best-effort note write. Exactly
// one of Path and SkipReason is set.
type NoteOutcome struct {
	Path       string
	SkipReason string
}

func NoteSaved(path string) NoteOutcome {
	return NoteOutcome{Path: path}
}

func NoteSkipped(reason string) NoteOutcome {
	return NoteOutcome{SkipReason: reason}
}

func (o NoteOutcome) Saved() bool {
	return o.Path != ""
}

func (o NoteOutcome) String() string {
	if o.Saved() {
		return o.Path
	}
	return "skipped: " + o.SkipReason
}

type Summary struct {
	VideoID string
	Title   string
	Text    string
	Note    NoteOutcome
}

type HistoryEntry struct {
	ID        int64
	VideoID   string
	Title     string
	Summary   string
	NotePath  string
	CreatedAt time.Time
}
