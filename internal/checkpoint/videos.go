package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Video is one row of the videos table.
type Video struct {
	ID           string
	URL          string
	Title        string
	ChannelID    string
	PublishedAt  time.Time
	DiscoveredAt time.Time
	DocumentID   string
	ProcessedAt  time.Time
}

// Published reports whether a document has been created for the video.
func (v Video) Published() bool {
	return v.DocumentID != ""
}

// AddDiscovered inserts videos that are not yet known and returns how many
// were new. Known videos are left untouched.
func (s *Store) AddDiscovered(ctx context.Context, videos []Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}
	added := 0
	err := onBusy(ctx, func() error {
		added = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO videos
			(video_id, url, title, channel_id, published_at, discovered_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		now := s.now()
		for _, v := range videos {
			id := strings.TrimSpace(v.ID)
			if id == "" {
				continue
			}
			res, err := stmt.ExecContext(ctx, id, v.URL, v.Title, v.ChannelID, formatTime(v.PublishedAt), formatTime(now))
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				added += int(n)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("add discovered videos: %w", err)
	}
	return added, nil
}

// Pending returns discovered videos without a document, oldest publication
// first. limit <= 0 returns all of them.
func (s *Store) Pending(ctx context.Context, limit int) ([]Video, error) {
	query := `SELECT video_id, url, title, channel_id, published_at, discovered_at, document_id, processed_at
		FROM videos WHERE document_id IS NULL
		ORDER BY COALESCE(published_at, discovered_at), video_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending videos: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending videos: %w", err)
	}
	return out, nil
}

// Get returns the stored row for videoID, or false when unknown.
func (s *Store) Get(ctx context.Context, videoID string) (Video, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT video_id, url, title, channel_id, published_at, discovered_at, document_id, processed_at
		FROM videos WHERE video_id = ?`, videoID)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Video{}, false, nil
	}
	if err != nil {
		return Video{}, false, err
	}
	return v, true, nil
}

// IsPublished reports whether a document already exists for videoID.
func (s *Store) IsPublished(ctx context.Context, videoID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM videos WHERE video_id = ? AND document_id IS NOT NULL", videoID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check published video: %w", err)
	}
	return count > 0, nil
}

// MarkPublished records the document created for a video, inserting the row
// when the video was never discovered by the watcher.
func (s *Store) MarkPublished(ctx context.Context, v Video, documentID string) error {
	if strings.TrimSpace(v.ID) == "" || strings.TrimSpace(documentID) == "" {
		return errors.New("mark published: video id and document id required")
	}
	now := formatTime(s.now())
	_, err := s.exec(ctx, `INSERT INTO videos
		(video_id, url, title, channel_id, published_at, discovered_at, document_id, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			document_id = excluded.document_id,
			processed_at = excluded.processed_at,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE videos.title END`,
		v.ID, v.URL, v.Title, v.ChannelID, formatTime(v.PublishedAt), now, documentID, now)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (Video, error) {
	var (
		v                                     Video
		published, discovered, doc, processed sql.NullString
	)
	if err := row.Scan(&v.ID, &v.URL, &v.Title, &v.ChannelID, &published, &discovered, &doc, &processed); err != nil {
		return Video{}, err
	}
	v.PublishedAt = parseTime(published)
	v.DiscoveredAt = parseTime(discovered)
	v.DocumentID = doc.String
	v.ProcessedAt = parseTime(processed)
	return v, nil
}
