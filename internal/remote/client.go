// Package remote is the on-demand fetch side of reconciliation: everything
// the event stream does not carry (memberships, missing parents, author
// profiles, threads) is pulled from the server's REST API here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/observ"
)

type Client struct {
	httpc   *http.Client
	baseURL string
	session *Session
	logger  *zap.Logger
	metrics *observ.Metrics
}

func NewClient(baseURL string, session *Session, logger *zap.Logger, metrics *observ.Metrics) *Client {
	return &Client{
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		session: session,
		logger:  logger,
		metrics: metrics,
	}
}

// wire shapes: the server reports totals, the local store keeps unread
// counters. toMembership does the translation.

type wireMember struct {
	ChannelID    string `json:"channel_id"`
	MsgCount     int64  `json:"msg_count"`
	MentionCount int    `json:"mention_count"`
	LastViewedAt int64  `json:"last_viewed_at"`
	LastPostAt   int64  `json:"last_post_at"`
}

func toMembership(ch *models.Channel, wm *wireMember) models.ChannelMembership {
	unread := ch.TotalMsgCount - wm.MsgCount
	if unread < 0 {
		unread = 0
	}
	return models.ChannelMembership{
		ChannelID:    wm.ChannelID,
		MsgCount:     int(unread),
		MentionCount: wm.MentionCount,
		LastViewedAt: wm.LastViewedAt,
		LastPostAt:   wm.LastPostAt,
		IsUnread:     unread > 0,
	}
}

// FetchChannelMembership retrieves a channel and the session user's
// membership in it. The returned membership carries derived unread counters.
func (c *Client) FetchChannelMembership(ctx context.Context, teamID, channelID string) ([]models.Channel, []models.ChannelMembership, error) {
	var ch models.Channel
	if err := c.get(ctx, "fetch_channel", "/api/v4/channels/"+channelID, &ch); err != nil {
		return nil, nil, err
	}

	var wm wireMember
	if err := c.get(ctx, "fetch_member", "/api/v4/channels/"+channelID+"/members/me", &wm); err != nil {
		return nil, nil, err
	}

	return []models.Channel{ch}, []models.ChannelMembership{toMembership(&ch, &wm)}, nil
}

// FetchPost retrieves a single post, used to backfill a missing thread parent.
func (c *Client) FetchPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := c.get(ctx, "fetch_post", "/api/v4/posts/"+postID, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// FetchProfiles retrieves author profiles by id.
func (c *Client) FetchProfiles(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := c.post(ctx, "fetch_profiles", "/api/v4/users/ids", userIDs, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type wireThread struct {
	ID           string        `json:"id"`
	ReplyCount   int           `json:"reply_count"`
	LastReplyAt  int64         `json:"last_reply_at"`
	Participants []models.User `json:"participants"`
}

// FetchThread retrieves authoritative thread state for a root post. Used as
// the compensating refresh after the local reply-count decrement heuristic.
func (c *Client) FetchThread(ctx context.Context, teamID, rootID string) (*models.Thread, []models.ThreadParticipant, error) {
	path := fmt.Sprintf("/api/v4/users/me/teams/%s/threads/%s", teamID, rootID)
	var wt wireThread
	if err := c.get(ctx, "fetch_thread", path, &wt); err != nil {
		return nil, nil, err
	}

	thread := &models.Thread{
		ID:          wt.ID,
		ReplyCount:  wt.ReplyCount,
		LastReplyAt: wt.LastReplyAt,
	}
	participants := make([]models.ThreadParticipant, 0, len(wt.Participants))
	for _, u := range wt.Participants {
		participants = append(participants, models.ThreadParticipant{ThreadID: wt.ID, UserID: u.ID})
	}
	return thread, participants, nil
}

// MarkChannelRead acknowledges the channel as read server-side without
// claiming the user is looking at it.
func (c *Client) MarkChannelRead(ctx context.Context, channelID string) error {
	body := map[string]string{"channel_id": channelID}
	return c.post(ctx, "mark_read", "/api/v4/channels/members/me/mark_read", body, nil)
}

// MarkChannelViewed acknowledges an active view of the channel. The server
// treats view and read differently, so they stay separate operations.
func (c *Client) MarkChannelViewed(ctx context.Context, channelID string) error {
	body := map[string]string{"channel_id": channelID}
	return c.post(ctx, "mark_viewed", "/api/v4/channels/members/me/view", body, nil)
}

// CreatePost submits a locally-composed post. The response is the server's
// version of the record, pending id included.
func (c *Client) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	var created models.Post
	if err := c.post(ctx, "create_post", "/api/v4/posts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	if err := c.session.Valid(); err != nil {
		c.count(op, "session_invalid")
		return fmt.Errorf("%s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.count(op, "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.count(op, "error")
		return fmt.Errorf("%s: server returned %d", op, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.count(op, "error")
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	c.count(op, "ok")
	return nil
}

func (c *Client) count(op, outcome string) {
	if c.metrics != nil {
		c.metrics.RemoteCalls.WithLabelValues(op, outcome).Inc()
	}
}
