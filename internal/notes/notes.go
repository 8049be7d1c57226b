package notes

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"focustube/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	noteExtension        = ".md"
	maxFilenameRunes     = 100
	createdLayout        = "2006-01-02T15:04"

	dirPerm  = 0o755
	filePerm = 0o644

	SkipReasonDisabled = "persistence disabled"
)

// Tags is the fixed tag set written into every note.
var Tags = []string{"youtube", "video-summary", "ai-generated"}

type Note struct {
	VideoID string
	Title   string
	Summary string
}

type titleField struct {
	Title string `yaml:"title"`
}

type tagsField struct {
	Tags []string `yaml:"tags"`
}

// Writer stores summaries as markdown notes in a vault directory. Writes are
// best effort: Save never returns an error.
type Writer struct {
	dir string
	now func() time.Time
	log *slog.Logger
}

func NewWriter(dir string, log *slog.Logger) *Writer {
	return &Writer{
		dir: dir,
		now: time.Now,
		log: log,
	}
}

// Save writes the note, overwriting any previous note with the same name.
func (w *Writer) Save(ctx context.Context, note Note) domain.NoteOutcome {
	path, err := w.write(note)
	if err != nil {
		w.log.WarnContext(ctx, "Failed to save note",
			"error", err,
			"videoID", note.VideoID,
			"dir", w.dir)

		return domain.NoteSkipped(err.Error())
	}

	w.log.InfoContext(ctx, "Note is saved",
		"videoID", note.VideoID,
		"path", path)

	return domain.NoteSaved(path)
}

func (w *Writer) write(note Note) (string, error) {
	if err := os.MkdirAll(w.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	content, err := Render(note, w.now())
	if err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}

	path := filepath.Join(w.dir, Filename(note.VideoID, note.Title))
	if err = os.WriteFile(path, content, filePerm); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	return abs, nil
}

// Render builds the note: a YAML frontmatter block, a blank line and the
// summary verbatim. The video ID, source and created lines are written as is
// so IDs that look like numbers or booleans stay unquoted.
func Render(note Note, now time.Time) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(frontmatterDelimiter + "\n")
	fmt.Fprintf(&b, "video_id: %s\n", note.VideoID)

	if title := strings.TrimSpace(note.Title); title != "" {
		meta, err := yaml.Marshal(titleField{Title: title})
		if err != nil {
			return nil, fmt.Errorf("marshal title: %w", err)
		}
		b.Write(meta)
	}

	fmt.Fprintf(&b, "source: %s\n", SourceURL(note.VideoID))
	fmt.Fprintf(&b, "created: %s\n", now.UTC().Truncate(time.Minute).Format(createdLayout))

	meta, err := yaml.Marshal(tagsField{Tags: Tags})
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	b.Write(meta)

	b.WriteString(frontmatterDelimiter + "\n\n")
	b.WriteString(note.Summary)

	return b.Bytes(), nil
}

func SourceURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Filename derives the note file name from the title, falling back to the
// video ID when the sanitized title is empty.
func Filename(videoID string, title string) string {
	name := sanitize(title)
	if name == "" {
		name = sanitize(videoID)
	}
	if name == "" {
		name = "untitled"
	}

	return name + noteExtension
}

func sanitize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, raw)

	cleaned = strings.TrimSpace(cleaned)
	if runes := []rune(cleaned); len(runes) > maxFilenameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameRunes]))
	}

	// Names made only of dots resolve to the directory itself or its parent.
	if strings.Trim(cleaned, ".") == "" {
		return ""
	}

	return cleaned
}
