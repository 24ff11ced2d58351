package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// Pub/sub channels consumed by UI processes.
const (
	ChannelStoreChanged  = "syncd.store.changed"
	ChannelTypingStopped = "syncd.typing.stopped"
)

// Notifier fans signals out to in-process subscribers and, when a redis
// client is configured, to external observers over pub/sub. Publication is
// best-effort on both paths: a lost signal never fails the commit that
// produced it.
type Notifier struct {
	hub    *Hub
	client *redis.Client
	logger *zap.Logger
}

func NewNotifier(hub *Hub, client *redis.Client, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, client: client, logger: logger}
}

// Hub exposes the in-process registry for local subscribers.
func (n *Notifier) Hub() *Hub {
	return n.hub
}

// RecordsChanged publishes the record ids written by one commit.
func (n *Notifier) RecordsChanged(ctx context.Context, records []repository.RecordID) {
	if len(records) == 0 {
		return
	}
	change := StoreChange{Records: records}
	n.hub.Publish(change)
	n.publish(ctx, ChannelStoreChanged, change)
}

// TypingStopped publishes the stop-typing signal for the open channel.
func (n *Notifier) TypingStopped(ctx context.Context, t Typing) {
	n.publish(ctx, ChannelTypingStopped, t)
}

func (n *Notifier) publish(ctx context.Context, channel string, payload any) {
	if n.client == nil {
		return
	}
	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		n.logger.Warn("encode notification", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := n.client.Publish(ctx, channel, encoded).Err(); err != nil {
		n.logger.Warn("publish notification", zap.String("channel", channel), zap.Error(err))
	}
}
