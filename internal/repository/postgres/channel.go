package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

func (s *Store) ChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `
		SELECT id, team_id, display_name, type, total_msg_count
		FROM channels
		WHERE id = $1`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&ch.ID,
		&ch.TeamID,
		&ch.DisplayName,
		&ch.Type,
		&ch.TotalMsgCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}
