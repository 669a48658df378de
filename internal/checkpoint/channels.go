package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChannelCheckedAt returns when the channel was last scanned. ok is false for
// channels that were never scanned.
func (s *Store) ChannelCheckedAt(ctx context.Context, channelID string) (time.Time, bool, error) {
	var checked sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT last_checked_at FROM channels WHERE channel_id = ?", channelID,
	).Scan(&checked)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read channel checkpoint: %w", err)
	}
	t := parseTime(checked)
	return t, !t.IsZero(), nil
}

// SetChannelChecked records a completed scan of the channel.
func (s *Store) SetChannelChecked(ctx context.Context, channelID, name string, at time.Time) error {
	_, err := s.exec(ctx, `INSERT INTO channels (channel_id, name, last_checked_at) VALUES (?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET name = excluded.name, last_checked_at = excluded.last_checked_at`,
		channelID, name, formatTime(at))
	if err != nil {
		return fmt.Errorf("write channel checkpoint: %w", err)
	}
	return nil
}
