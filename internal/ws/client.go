// Package ws is the connection layer: it owns the websocket dial, the auth
// handshake, keepalives, and reconnects, and turns raw frames into typed
// events for the engine. Retry policy lives here so the reconciliation core
// never sees it.
package ws

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/event"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingPeriod       = 30 * time.Second
	maxBackoff       = 30 * time.Second
)

// Handler receives each decoded event, in arrival order.
type Handler func(ctx context.Context, ev *event.Event)

type Client struct {
	url       string
	token     string
	onEvent   Handler
	logger    *zap.Logger
	connected atomic.Bool
}

func NewClient(url, token string, onEvent Handler, logger *zap.Logger) *Client {
	return &Client{
		url:     url,
		token:   token,
		onEvent: onEvent,
		logger:  logger,
	}
}

// Connected reports whether a websocket session is currently established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run connects and consumes events until ctx is cancelled, reconnecting with
// capped exponential backoff after any failure.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("websocket disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

type authChallenge struct {
	Seq    int64             `json:"seq"`
	Action string            `json:"action"`
	Data   map[string]string `json:"data"`
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Authenticate in-band; the server answers with a hello event once the
	// session is accepted.
	challenge := authChallenge{
		Seq:    1,
		Action: "authentication_challenge",
		Data:   map[string]string{"token": c.token},
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(challenge); err != nil {
		return err
	}

	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Info("websocket connected", zap.String("url", c.url))

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	// Close the connection when ctx ends so the read loop unblocks, and keep
	// the server's pong timer fed.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		c.handleFrame(ctx, raw)
	}
}

// handleFrame decodes one frame and hands it to the engine. Frames that are
// not events (ack responses to our own writes) and undecodable frames are
// skipped; nothing a peer sends may take the read loop down.
func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	ev, err := event.Decode(raw)
	if err != nil {
		c.logger.Debug("skipping non-event frame", zap.Error(err))
		return
	}
	c.onEvent(ctx, ev)
}
