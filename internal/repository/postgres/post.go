package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

const postColumns = `id, channel_id, root_id, user_id, message, type,
	create_at, update_at, delete_at, reply_count, pending_post_id, props`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID,
		&p.ChannelID,
		&p.RootID,
		&p.UserID,
		&p.Message,
		&p.Type,
		&p.CreateAt,
		&p.UpdateAt,
		&p.DeleteAt,
		&p.ReplyCount,
		&p.PendingPostID,
		&p.Props,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}

func (s *Store) PostByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(s.pool.QueryRow(ctx, query, id))
}

// PostByPendingID is the dedup lookup: an optimistic local post and its
// server echo share the same pending id regardless of which server id the
// record ended up stored under.
func (s *Store) PostByPendingID(ctx context.Context, pendingID string) (*models.Post, error) {
	if pendingID == "" {
		return nil, nil
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE pending_post_id = $1 LIMIT 1`
	return scanPost(s.pool.QueryRow(ctx, query, pendingID))
}
