package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

func (s *Store) Membership(ctx context.Context, channelID string) (*models.ChannelMembership, error) {
	query := `
		SELECT channel_id, msg_count, mention_count, last_viewed_at,
		       last_post_at, is_unread, manually_unread
		FROM channel_memberships
		WHERE channel_id = $1`

	var m models.ChannelMembership
	err := s.pool.QueryRow(ctx, query, channelID).Scan(
		&m.ChannelID,
		&m.MsgCount,
		&m.MentionCount,
		&m.LastViewedAt,
		&m.LastPostAt,
		&m.IsUnread,
		&m.ManuallyUnread,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}
