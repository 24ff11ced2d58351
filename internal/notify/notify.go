// Package notify carries the engine's outbound signals: which store records
// changed after a commit, and best-effort UI events that are never persisted.
// The UI binds to these instead of watching the store directly.
package notify

import (
	"sync"

	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// Typing is the "user stopped typing" signal emitted when a post lands in
// the channel being viewed.
type Typing struct {
	ChannelID string `msgpack:"channel_id"`
	RootID    string `msgpack:"root_id"`
	UserID    string `msgpack:"user_id"`
	At        int64  `msgpack:"at"`
}

// StoreChange lists the records one atomic commit wrote.
type StoreChange struct {
	Records []repository.RecordID `msgpack:"records"`
}

// Hub is the in-process subscription registry. Subscribers that fall behind
// miss changes rather than blocking the event stream; the store remains the
// source of truth, so a missed signal only delays a re-render.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan StoreChange
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan StoreChange)}
}

// Subscribe registers an observer. The returned cancel func must be called
// when the observer goes away.
func (h *Hub) Subscribe() (<-chan StoreChange, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan StoreChange, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans a change out to every subscriber without blocking.
func (h *Hub) Publish(change StoreChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub <- change:
		default:
		}
	}
}
