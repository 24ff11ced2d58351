package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// SendPost is the optimistic send path. The post is committed locally under
// a client-generated pending id before the network round trip, then replaced
// by the server's record. The websocket echo of the same post arrives with
// the pending id attached and is dropped by the new-post dedup check.
func (e *Engine) SendPost(ctx context.Context, channelID, rootID, message string) (*models.Post, error) {
	pendingID := uuid.NewString()
	now := e.now()

	pending := models.Post{
		ID:            pendingID,
		ChannelID:     channelID,
		RootID:        rootID,
		UserID:        e.opts.CurrentUserID,
		Message:       message,
		CreateAt:      now,
		UpdateAt:      now,
		PendingPostID: pendingID,
	}
	if err := e.commit(ctx, &repository.Batch{Posts: []models.Post{pending}}); err != nil {
		return nil, fmt.Errorf("stage pending post: %w", err)
	}

	created, err := e.fetcher.CreatePost(ctx, &pending)
	if err != nil {
		// The placeholder stays; a retry or the next full sync settles it.
		return nil, fmt.Errorf("create post: %w", err)
	}

	swap := &repository.Batch{
		Posts:         []models.Post{*created},
		RetirePostIDs: []string{pendingID},
	}
	if err := e.commit(ctx, swap); err != nil {
		return nil, fmt.Errorf("replace pending post: %w", err)
	}
	return created, nil
}
