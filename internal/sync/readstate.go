package sync

import (
	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

// The read-state machine shared by the new-post and unread-marker handlers.
// Each event computes its target state from current state plus event content;
// there is no queued automaton. MANUALLY_UNREAD is sticky and suppresses
// every automatic transition until a user action clears it.
//
// VIEWED and READ both clear unread counters but are distinct outbound
// operations: viewed means "I am looking at it now", read means "mark as
// read without necessarily looking". The server acknowledges them
// differently, so the engine keeps them apart.

type transition int

const (
	transitionNone transition = iota
	transitionViewed
	transitionRead
	transitionUnread
)

// decideTransition picks the target state for one new post.
func decideTransition(m *models.ChannelMembership, post *models.Post, view View, currentUserID string) transition {
	if m.ManuallyUnread {
		return transitionNone
	}
	if post.UserID == currentUserID && !IsSystemMessage(post) && !IsFromWebhook(post) {
		return transitionViewed
	}
	if post.ChannelID == view.ChannelID {
		return transitionRead
	}
	return transitionUnread
}

// markViewed clears the unread counters for an active look at the channel.
func markViewed(m *models.ChannelMembership, now int64) {
	m.MsgCount = 0
	m.MentionCount = 0
	m.IsUnread = false
	m.LastViewedAt = now
}

// markUnread sets absolute unread counters, pinned to lastViewedAt so the
// "new messages" line stays where the user last looked.
func markUnread(m *models.ChannelMembership, msgCount, mentionCount int, lastViewedAt int64) {
	if msgCount < 0 {
		msgCount = 0
	}
	if mentionCount < 0 {
		mentionCount = 0
	}
	m.MsgCount = msgCount
	m.MentionCount = mentionCount
	m.IsUnread = true
	m.LastViewedAt = lastViewedAt
}
