package repository

import (
	"context"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

// The store is the only mutation boundary in the engine: handlers stage
// records into a Batch and commit it atomically. Point lookups return
// (nil, nil) when the record is absent; absence is a normal answer during
// reconciliation, not an error.

// RecordKind names a record table for change publication.
type RecordKind string

const (
	KindPost              RecordKind = "post"
	KindChannel           RecordKind = "channel"
	KindMembership        RecordKind = "membership"
	KindThread            RecordKind = "thread"
	KindThreadParticipant RecordKind = "thread_participant"
	KindUser              RecordKind = "user"
)

// RecordID identifies one changed record. Commit returns the full set so a
// subscription registry can notify observers after the fact; the store
// itself knows nothing about who is watching.
type RecordID struct {
	Kind RecordKind
	ID   string
}

// Batch accumulates staged mutations for a single event. All writes are
// upserts; committing the same batch twice converges to the same state.
type Batch struct {
	Posts              []models.Post
	Channels           []models.Channel
	Memberships        []models.ChannelMembership
	Threads            []models.Thread
	ThreadParticipants []models.ThreadParticipant
	Users              []models.User

	// RetirePostIDs removes optimistic placeholder rows once the server's
	// copy of the same post has been committed under its real id. This is
	// the one physical delete in the store; event-driven deletions always
	// tombstone instead.
	RetirePostIDs []string
}

func (b *Batch) Empty() bool {
	return len(b.Posts) == 0 &&
		len(b.Channels) == 0 &&
		len(b.Memberships) == 0 &&
		len(b.Threads) == 0 &&
		len(b.ThreadParticipants) == 0 &&
		len(b.Users) == 0 &&
		len(b.RetirePostIDs) == 0
}

// Size returns the number of staged records.
func (b *Batch) Size() int {
	return len(b.Posts) + len(b.Channels) + len(b.Memberships) +
		len(b.Threads) + len(b.ThreadParticipants) + len(b.Users) +
		len(b.RetirePostIDs)
}

// Store is the local materialized view.
type Store interface {
	// PostByID returns a post by server id, tombstones included.
	PostByID(ctx context.Context, id string) (*models.Post, error)

	// PostByPendingID returns the post created with the given client
	// correlation id, whichever id it is stored under now.
	PostByPendingID(ctx context.Context, pendingID string) (*models.Post, error)

	// ChannelByID returns a channel record.
	ChannelByID(ctx context.Context, id string) (*models.Channel, error)

	// Membership returns the read state for a channel.
	Membership(ctx context.Context, channelID string) (*models.ChannelMembership, error)

	// ThreadByID returns thread bookkeeping for a root post.
	ThreadByID(ctx context.Context, rootID string) (*models.Thread, error)

	// UserByID returns a cached author profile.
	UserByID(ctx context.Context, id string) (*models.User, error)

	// Commit applies the batch in one transaction and returns the ids of
	// every record written. An empty batch commits nothing and returns nil.
	Commit(ctx context.Context, batch *Batch) ([]RecordID, error)
}
