package db

import (
	"context"
	"fmt"
)

// The local store is a materialized view the daemon owns outright, so it
// bootstraps its own schema instead of relying on external migrations.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id              text PRIMARY KEY,
	channel_id      text NOT NULL,
	root_id         text NOT NULL DEFAULT '',
	user_id         text NOT NULL,
	message         text NOT NULL DEFAULT '',
	type            text NOT NULL DEFAULT '',
	create_at       bigint NOT NULL DEFAULT 0,
	update_at       bigint NOT NULL DEFAULT 0,
	delete_at       bigint NOT NULL DEFAULT 0,
	reply_count     integer NOT NULL DEFAULT 0,
	pending_post_id text NOT NULL DEFAULT '',
	props           jsonb
);
CREATE INDEX IF NOT EXISTS idx_posts_channel_create ON posts (channel_id, create_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_pending ON posts (pending_post_id) WHERE pending_post_id <> '';
CREATE INDEX IF NOT EXISTS idx_posts_root ON posts (root_id) WHERE root_id <> '';

CREATE TABLE IF NOT EXISTS channels (
	id              text PRIMARY KEY,
	team_id         text NOT NULL DEFAULT '',
	display_name    text NOT NULL DEFAULT '',
	type            text NOT NULL DEFAULT '',
	total_msg_count bigint NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS channel_memberships (
	channel_id      text PRIMARY KEY,
	msg_count       integer NOT NULL DEFAULT 0,
	mention_count   integer NOT NULL DEFAULT 0,
	last_viewed_at  bigint NOT NULL DEFAULT 0,
	last_post_at    bigint NOT NULL DEFAULT 0,
	is_unread       boolean NOT NULL DEFAULT false,
	manually_unread boolean NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS threads (
	id            text PRIMARY KEY,
	reply_count   integer NOT NULL DEFAULT 0,
	last_reply_at bigint NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS thread_participants (
	thread_id text NOT NULL,
	user_id   text NOT NULL,
	PRIMARY KEY (thread_id, user_id)
);

CREATE TABLE IF NOT EXISTS users (
	id        text PRIMARY KEY,
	username  text NOT NULL DEFAULT '',
	nickname  text NOT NULL DEFAULT '',
	update_at bigint NOT NULL DEFAULT 0
);
`

func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
