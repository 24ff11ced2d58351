package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/event"
	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/notify"
	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// HandleNewPost reconciles a "posted" event. Ordering matters: the dedup
// check runs before any fetch to bound the duplicate-application window, and
// membership existence is established before the read-state decision needs
// it. A failed membership fetch aborts the event with nothing committed.
func (e *Engine) HandleNewPost(ctx context.Context, view View, ev *event.Event) error {
	post, err := ev.Post()
	if err != nil {
		e.drop(ev.Kind, "malformed")
		e.logger.Debug("discarding undecodable post event", zap.Error(err))
		return nil
	}

	// The server echo of an optimistic local post carries the same pending
	// id; the record is already here, so the whole event is a no-op.
	if post.PendingPostID != "" {
		existing, err := e.store.PostByPendingID(ctx, post.PendingPostID)
		if err != nil {
			return fmt.Errorf("dedup lookup: %w", err)
		}
		if existing != nil {
			e.drop(ev.Kind, "duplicate")
			return nil
		}
	}

	batch := &repository.Batch{}
	batch.Posts = append(batch.Posts, *post)

	if e.opts.ThreadsEnabled {
		e.stageThread(batch, post)
	}

	membership, err := e.ensureMembership(ctx, ev.Broadcast.TeamID, post)
	if err != nil {
		return err
	}

	member := *membership
	if post.CreateAt > member.LastPostAt {
		member.LastPostAt = post.CreateAt
	}
	memberChanged := member.LastPostAt != membership.LastPostAt

	// Backfill a missing thread parent without gating this event's commit.
	if post.IsReply() {
		if parent, err := e.store.PostByID(ctx, post.RootID); err == nil && parent == nil {
			e.fetchMissingParent(post.RootID)
		}
	}

	if post.ChannelID == view.ChannelID {
		e.notifier.TypingStopped(ctx, notify.Typing{
			ChannelID: post.ChannelID,
			RootID:    post.RootID,
			UserID:    post.UserID,
			At:        e.now(),
		})
	}

	// Unknown authors are fetched best-effort; a profile that fails to load
	// renders as a placeholder until the next event carries it.
	if err := e.stageMissingAuthors(ctx, batch, post); err != nil {
		e.logger.Debug("author fetch failed", zap.String("user_id", post.UserID), zap.Error(err))
	}

	if !ShouldIgnorePost(post, e.opts.CurrentUserID) {
		switch decideTransition(&member, post, view, e.opts.CurrentUserID) {
		case transitionViewed:
			markViewed(&member, e.now())
			memberChanged = true
			e.ackViewed(post.ChannelID)
		case transitionRead:
			// Counters converge when the server answers with its own
			// channel-viewed event; nothing staged locally.
			e.ackRead(post.ChannelID)
		case transitionUnread:
			mention := containsString(ev.Mentions(), e.opts.CurrentUserID)
			markUnread(&member,
				member.MsgCount+1,
				member.MentionCount+boolToInt(mention),
				member.LastViewedAt,
			)
			memberChanged = true
		case transitionNone:
			// manually unread: sticky, leave everything alone.
		}
	}

	if memberChanged {
		batch.Memberships = append(batch.Memberships, member)
	}

	if err := e.commit(ctx, batch); err != nil {
		return fmt.Errorf("commit new post: %w", err)
	}
	return nil
}

// HandlePostEdited reconciles a "post_edited" event. Edits never touch
// read-state or thread counters.
func (e *Engine) HandlePostEdited(ctx context.Context, ev *event.Event) error {
	post, err := ev.Post()
	if err != nil {
		e.drop(ev.Kind, "malformed")
		e.logger.Debug("discarding undecodable edit event", zap.Error(err))
		return nil
	}

	batch := &repository.Batch{}
	if err := e.stageMissingAuthors(ctx, batch, post); err != nil {
		e.logger.Debug("author fetch failed", zap.String("user_id", post.UserID), zap.Error(err))
	}
	batch.Posts = append(batch.Posts, *post)

	if err := e.commit(ctx, batch); err != nil {
		return fmt.Errorf("commit edited post: %w", err)
	}
	return nil
}

// HandlePostDeleted reconciles a "post_deleted" event. Deletion is
// best-effort: any failure is swallowed and the normal resync path corrects
// a missed tombstone later.
func (e *Engine) HandlePostDeleted(ctx context.Context, ev *event.Event) error {
	post, err := ev.Post()
	if err != nil {
		e.drop(ev.Kind, "malformed")
		e.logger.Debug("discarding undecodable delete event", zap.Error(err))
		return nil
	}

	if err := e.applyPostDeleted(ctx, post); err != nil {
		e.drop(ev.Kind, "aborted")
		e.logger.Debug("discarding failed delete event", zap.String("post_id", post.ID), zap.Error(err))
	}
	return nil
}

func (e *Engine) applyPostDeleted(ctx context.Context, post *models.Post) error {
	tomb := *post
	if tomb.DeleteAt == 0 {
		tomb.DeleteAt = e.now()
	}

	batch := &repository.Batch{}
	batch.Posts = append(batch.Posts, tomb)

	if post.IsReply() && e.opts.ThreadsEnabled {
		// The server's reply_count at delete time still includes the deleted
		// reply, so subtract one. The decrement is a heuristic that can
		// drift under concurrent events; the thread refresh below is the
		// authoritative correction.
		batch.Threads = append(batch.Threads, models.Thread{
			ID:         post.RootID,
			ReplyCount: max(post.ReplyCount-1, 0),
		})

		if channel, err := e.store.ChannelByID(ctx, post.ChannelID); err == nil && channel != nil {
			e.refreshThread(channel.TeamID, post.RootID)
		}
	}

	return e.commit(ctx, batch)
}

// HandlePostUnread reconciles a server-initiated unread marker not tied to a
// specific post, e.g. "mark unread" triggered from another client. The
// event's msg_count is the server's read watermark; the unread delta is the
// channel total minus that watermark when the total is known.
func (e *Engine) HandlePostUnread(ctx context.Context, ev *event.Event) error {
	channelID := ev.Broadcast.ChannelID
	mentionCount := ev.Int("mention_count")
	msgCount := ev.Int64("msg_count")
	lastViewedAt := ev.Int64("last_viewed_at")

	m, err := e.store.Membership(ctx, channelID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if m == nil {
		// Nothing local to mark; the membership arrives with the channel's
		// next post event or the next full sync.
		e.drop(ev.Kind, "no_membership")
		return nil
	}

	var total int64
	channels, _, err := e.fetcher.FetchChannelMembership(ctx, ev.Broadcast.TeamID, channelID)
	if err != nil {
		e.logger.Debug("channel fetch failed, using event count as delta",
			zap.String("channel_id", channelID), zap.Error(err))
	} else if len(channels) > 0 {
		total = channels[0].TotalMsgCount
	}

	delta := msgCount
	if total > 0 {
		delta = total - msgCount
	}

	member := *m
	markUnread(&member, int(delta), mentionCount, lastViewedAt)

	batch := &repository.Batch{Memberships: []models.ChannelMembership{member}}
	if err := e.commit(ctx, batch); err != nil {
		return fmt.Errorf("commit unread marker: %w", err)
	}
	return nil
}

// stageThread stages thread bookkeeping for a new post: replies pin the
// stored count to the server-supplied reply_count and add the author as a
// participant; a new root initializes its thread record.
func (e *Engine) stageThread(batch *repository.Batch, post *models.Post) {
	if post.IsReply() {
		batch.Threads = append(batch.Threads, models.Thread{
			ID:          post.RootID,
			ReplyCount:  post.ReplyCount,
			LastReplyAt: post.CreateAt,
		})
		batch.ThreadParticipants = append(batch.ThreadParticipants, models.ThreadParticipant{
			ThreadID: post.RootID,
			UserID:   post.UserID,
		})
		return
	}
	batch.Threads = append(batch.Threads, models.Thread{
		ID:         post.ID,
		ReplyCount: post.ReplyCount,
	})
	batch.ThreadParticipants = append(batch.ThreadParticipants, models.ThreadParticipant{
		ThreadID: post.ID,
		UserID:   post.UserID,
	})
}

// stageMissingAuthors fetches the post author's profile if it is not cached
// locally and stages the upsert.
func (e *Engine) stageMissingAuthors(ctx context.Context, batch *repository.Batch, post *models.Post) error {
	if post.UserID == "" {
		return nil
	}
	known, err := e.store.UserByID(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("author lookup: %w", err)
	}
	if known != nil {
		return nil
	}
	authors, err := e.fetcher.FetchProfiles(ctx, []string{post.UserID})
	if err != nil {
		return fmt.Errorf("fetch profiles: %w", err)
	}
	batch.Users = append(batch.Users, authors...)
	return nil
}

func (e *Engine) fetchMissingParent(postID string) {
	e.spawn("fetch parent post", func(ctx context.Context) error {
		parent, err := e.fetcher.FetchPost(ctx, postID)
		if err != nil {
			return err
		}
		return e.commit(ctx, &repository.Batch{Posts: []models.Post{*parent}})
	})
}

func (e *Engine) refreshThread(teamID, rootID string) {
	e.spawn("refresh thread", func(ctx context.Context) error {
		thread, participants, err := e.fetcher.FetchThread(ctx, teamID, rootID)
		if err != nil {
			return err
		}
		return e.commit(ctx, &repository.Batch{
			Threads:            []models.Thread{*thread},
			ThreadParticipants: participants,
		})
	})
}

func (e *Engine) ackRead(channelID string) {
	e.spawn("mark channel read", func(ctx context.Context) error {
		return e.fetcher.MarkChannelRead(ctx, channelID)
	})
}

func (e *Engine) ackViewed(channelID string) {
	e.spawn("mark channel viewed", func(ctx context.Context) error {
		return e.fetcher.MarkChannelViewed(ctx, channelID)
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
