package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

func (s *Store) ThreadByID(ctx context.Context, rootID string) (*models.Thread, error) {
	query := `
		SELECT id, reply_count, last_reply_at
		FROM threads
		WHERE id = $1`

	var t models.Thread
	err := s.pool.QueryRow(ctx, query, rootID).Scan(
		&t.ID,
		&t.ReplyCount,
		&t.LastReplyAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}
