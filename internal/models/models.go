package models

// Server-assigned entity ids are opaque strings. Timestamps are unix
// milliseconds, matching the server wire format; the store never converts
// them, so a record round-trips unchanged.

// Post is a single message as the server reports it. Edits bump UpdateAt and
// deletes set DeleteAt: posts are tombstoned, never removed, so the UI can
// render a "deleted" placeholder in place.
//
// PendingPostID is the client-generated correlation id set on optimistic
// sends. When the server echoes the post back over the websocket, the echo
// carries the same pending id and is dropped as a duplicate.
type Post struct {
	ID            string         `json:"id"`
	ChannelID     string         `json:"channel_id"`
	RootID        string         `json:"root_id"`
	UserID        string         `json:"user_id"`
	Message       string         `json:"message"`
	Type          string         `json:"type"`
	CreateAt      int64          `json:"create_at"`
	UpdateAt      int64          `json:"update_at"`
	DeleteAt      int64          `json:"delete_at"`
	ReplyCount    int            `json:"reply_count"`
	PendingPostID string         `json:"pending_post_id"`
	Props         map[string]any `json:"props,omitempty"`
}

// IsReply reports whether the post belongs to a thread rooted at another post.
func (p *Post) IsReply() bool {
	return p.RootID != ""
}

// Channel carries the subset of server channel state the engine needs.
// TotalMsgCount is the server's authoritative message total, used to derive
// unread deltas for unread-marker events.
type Channel struct {
	ID            string `json:"id"`
	TeamID        string `json:"team_id"`
	DisplayName   string `json:"display_name"`
	Type          string `json:"type"`
	TotalMsgCount int64  `json:"total_msg_count"`
}

// ChannelMembership is the client's per-channel read state. There is exactly
// one row per channel; the store belongs to a single user session.
//
// MsgCount and MentionCount are unread counters, not totals. ManuallyUnread is
// sticky: while set, reconciliation never flips the channel back to read.
type ChannelMembership struct {
	ChannelID      string `json:"channel_id"`
	MsgCount       int    `json:"msg_count"`
	MentionCount   int    `json:"mention_count"`
	LastViewedAt   int64  `json:"last_viewed_at"`
	LastPostAt     int64  `json:"last_post_at"`
	IsUnread       bool   `json:"is_unread"`
	ManuallyUnread bool   `json:"manually_unread"`
}

// Thread tracks reply bookkeeping for one root post. ReplyCount mirrors the
// server's count as last observed, corrected locally on new/deleted replies.
type Thread struct {
	ID          string `json:"id"` // root post id
	ReplyCount  int    `json:"reply_count"`
	LastReplyAt int64  `json:"last_reply_at"`
}

// ThreadParticipant is the (thread, user) join row. Insertion is idempotent.
type ThreadParticipant struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
}

// User is an author profile, cached locally so posts can render without a
// network round trip.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	UpdateAt int64  `json:"update_at"`
}
