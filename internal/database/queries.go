package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"focustube/internal/domain"
)

func (d *Database) AddSummary(ctx context.Context, entry domain.HistoryEntry) error {
	videoID := strings.TrimSpace(entry.VideoID)
	if videoID == "" {
		return errors.New("video ID is empty")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `insert into summaries (video_id, title, summary, note_path, created_at)
	values (?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		videoID,
		strings.TrimSpace(entry.Title),
		entry.Summary,
		entry.NotePath,
		createdAt.UTC().Unix())

	return err
}

// ListRecentSummaries returns up to limit entries, newest first.
func (d *Database) ListRecentSummaries(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `select id, video_id, title, summary, note_path, created_at
	from summaries
	order by created_at desc, id desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"limit", limit,
				"operation", "ListRecentSummaries")
		}
	}()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e         domain.HistoryEntry
			createdAt int64
		)
		if err = rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.Summary, &e.NotePath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return entries, nil
}

// DeleteSummariesBefore removes entries created strictly before cutoff and
// reports how many were removed.
func (d *Database) DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := "delete from summaries where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
