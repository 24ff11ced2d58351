// Package event defines the typed websocket events the reconciliation engine
// consumes and the decoding from raw frames.
//
// The wire format wraps every frame in {event, seq, broadcast, data}. Post
// payloads arrive as a JSON-encoded *string* inside data ("post": "{...}"),
// so decoding a post is a two-step unwrap.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

// Kind identifies an event type. Values match the server's event names.
type Kind string

const (
	KindPosted      Kind = "posted"
	KindPostEdited  Kind = "post_edited"
	KindPostDeleted Kind = "post_deleted"
	KindPostUnread  Kind = "post_unread"
)

// Broadcast is the transport envelope attached by the server. Its ChannelID
// is supplied independently of the payload's own channel_id field; both refer
// to the same channel but differ in provenance.
type Broadcast struct {
	TeamID    string `json:"team_id"`
	ChannelID string `json:"channel_id"`
}

// Event is one decoded frame. Data keys are kept raw; accessors below decode
// the fields each handler needs.
type Event struct {
	Kind      Kind                       `json:"event"`
	Seq       int64                      `json:"seq"`
	Broadcast Broadcast                  `json:"broadcast"`
	Data      map[string]json.RawMessage `json:"data"`
}

// Decode parses a raw websocket frame.
func Decode(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("decode frame: missing event kind")
	}
	return &ev, nil
}

// Post unwraps the string-encoded post payload under data.post.
func (e *Event) Post() (*models.Post, error) {
	raw, ok := e.Data["post"]
	if !ok {
		return nil, fmt.Errorf("event %s: no post payload", e.Kind)
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("event %s: unwrap post payload: %w", e.Kind, err)
	}
	var post models.Post
	if err := json.Unmarshal([]byte(encoded), &post); err != nil {
		return nil, fmt.Errorf("event %s: decode post: %w", e.Kind, err)
	}
	if post.ID == "" {
		return nil, fmt.Errorf("event %s: post without id", e.Kind)
	}
	return &post, nil
}

// Mentions returns the user ids mentioned by the post, if the server included
// them. The field is string-encoded like the post payload. A missing or
// malformed field is an empty list; mentions are additive, never required.
func (e *Event) Mentions() []string {
	raw, ok := e.Data["mentions"]
	if !ok {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil
	}
	return ids
}

// Int64 reads a numeric data field, returning 0 when absent or malformed.
func (e *Event) Int64(key string) int64 {
	raw, ok := e.Data[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// Int reads a numeric data field as int.
func (e *Event) Int(key string) int {
	return int(e.Int64(key))
}
