package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// Commit applies every staged record in one transaction. All writes are
// ON CONFLICT upserts, so replaying a batch is harmless. The returned ids
// cover every record written, in staging order, for change publication.
func (s *Store) Commit(ctx context.Context, batch *repository.Batch) ([]repository.RecordID, error) {
	if batch == nil || batch.Empty() {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(ctx)

	changed := make([]repository.RecordID, 0, batch.Size())

	for i := range batch.Posts {
		if err := upsertPost(ctx, tx, &batch.Posts[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindPost, ID: batch.Posts[i].ID})
	}
	for i := range batch.Channels {
		if err := upsertChannel(ctx, tx, &batch.Channels[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindChannel, ID: batch.Channels[i].ID})
	}
	for i := range batch.Memberships {
		if err := upsertMembership(ctx, tx, &batch.Memberships[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindMembership, ID: batch.Memberships[i].ChannelID})
	}
	for i := range batch.Threads {
		if err := upsertThread(ctx, tx, &batch.Threads[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindThread, ID: batch.Threads[i].ID})
	}
	for i := range batch.ThreadParticipants {
		if err := upsertThreadParticipant(ctx, tx, &batch.ThreadParticipants[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{
			Kind: repository.KindThreadParticipant,
			ID:   batch.ThreadParticipants[i].ThreadID + "/" + batch.ThreadParticipants[i].UserID,
		})
	}
	for _, id := range batch.RetirePostIDs {
		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("retire post: %w", err)
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindPost, ID: id})
	}
	for i := range batch.Users {
		if err := upsertUser(ctx, tx, &batch.Users[i]); err != nil {
			return nil, err
		}
		changed = append(changed, repository.RecordID{Kind: repository.KindUser, ID: batch.Users[i].ID})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return changed, nil
}

func upsertPost(ctx context.Context, tx pgx.Tx, p *models.Post) error {
	query := `
		INSERT INTO posts (id, channel_id, root_id, user_id, message, type,
			create_at, update_at, delete_at, reply_count, pending_post_id, props)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			root_id = EXCLUDED.root_id,
			user_id = EXCLUDED.user_id,
			message = EXCLUDED.message,
			type = EXCLUDED.type,
			create_at = EXCLUDED.create_at,
			update_at = EXCLUDED.update_at,
			delete_at = EXCLUDED.delete_at,
			reply_count = EXCLUDED.reply_count,
			pending_post_id = EXCLUDED.pending_post_id,
			props = EXCLUDED.props`

	_, err := tx.Exec(ctx, query,
		p.ID, p.ChannelID, p.RootID, p.UserID, p.Message, p.Type,
		p.CreateAt, p.UpdateAt, p.DeleteAt, p.ReplyCount, p.PendingPostID, p.Props,
	)
	if err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}
	return nil
}

func upsertChannel(ctx context.Context, tx pgx.Tx, ch *models.Channel) error {
	query := `
		INSERT INTO channels (id, team_id, display_name, type, total_msg_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			display_name = EXCLUDED.display_name,
			type = EXCLUDED.type,
			total_msg_count = EXCLUDED.total_msg_count`

	_, err := tx.Exec(ctx, query, ch.ID, ch.TeamID, ch.DisplayName, ch.Type, ch.TotalMsgCount)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}
	return nil
}

func upsertMembership(ctx context.Context, tx pgx.Tx, m *models.ChannelMembership) error {
	query := `
		INSERT INTO channel_memberships (channel_id, msg_count, mention_count,
			last_viewed_at, last_post_at, is_unread, manually_unread)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (channel_id) DO UPDATE SET
			msg_count = EXCLUDED.msg_count,
			mention_count = EXCLUDED.mention_count,
			last_viewed_at = EXCLUDED.last_viewed_at,
			last_post_at = EXCLUDED.last_post_at,
			is_unread = EXCLUDED.is_unread,
			manually_unread = EXCLUDED.manually_unread`

	_, err := tx.Exec(ctx, query,
		m.ChannelID, m.MsgCount, m.MentionCount,
		m.LastViewedAt, m.LastPostAt, m.IsUnread, m.ManuallyUnread,
	)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

func upsertThread(ctx context.Context, tx pgx.Tx, t *models.Thread) error {
	query := `
		INSERT INTO threads (id, reply_count, last_reply_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			reply_count = EXCLUDED.reply_count,
			last_reply_at = GREATEST(threads.last_reply_at, EXCLUDED.last_reply_at)`

	_, err := tx.Exec(ctx, query, t.ID, t.ReplyCount, t.LastReplyAt)
	if err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}
	return nil
}

func upsertThreadParticipant(ctx context.Context, tx pgx.Tx, tp *models.ThreadParticipant) error {
	// Participant membership is a set: re-adding is a no-op, not an error.
	query := `
		INSERT INTO thread_participants (thread_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (thread_id, user_id) DO NOTHING`

	_, err := tx.Exec(ctx, query, tp.ThreadID, tp.UserID)
	if err != nil {
		return fmt.Errorf("upsert thread participant: %w", err)
	}
	return nil
}

func upsertUser(ctx context.Context, tx pgx.Tx, u *models.User) error {
	query := `
		INSERT INTO users (id, username, nickname, update_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			nickname = EXCLUDED.nickname,
			update_at = EXCLUDED.update_at`

	_, err := tx.Exec(ctx, query, u.ID, u.Username, u.Nickname, u.UpdateAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
