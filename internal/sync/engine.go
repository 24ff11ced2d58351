// Package sync is the reconciliation core: one handler per websocket event
// kind, each a decision procedure over current local state, the event
// payload, and lazily-fetched dependencies, producing a batch of record
// mutations committed atomically.
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/event"
	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/notify"
	"github.com/vanhieuu/mattermost-mobile/internal/observ"
	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

// Fetcher is the remote collaborator for on-demand fetches. Implemented by
// remote.Client; faked in tests.
type Fetcher interface {
	FetchChannelMembership(ctx context.Context, teamID, channelID string) ([]models.Channel, []models.ChannelMembership, error)
	FetchPost(ctx context.Context, postID string) (*models.Post, error)
	FetchProfiles(ctx context.Context, userIDs []string) ([]models.User, error)
	FetchThread(ctx context.Context, teamID, rootID string) (*models.Thread, []models.ThreadParticipant, error)
	MarkChannelRead(ctx context.Context, channelID string) error
	MarkChannelViewed(ctx context.Context, channelID string) error
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
}

// Notifier is the side-channel for signals that are not persisted state.
type Notifier interface {
	RecordsChanged(ctx context.Context, records []repository.RecordID)
	TypingStopped(ctx context.Context, t notify.Typing)
}

// View is the snapshot of what the UI is displaying, captured when an event
// starts processing. If the user switches channels mid-event the snapshot
// goes stale; that window is tolerated, not eliminated.
type View struct {
	ChannelID string
}

// ViewTracker holds the current view for snapshotting. The UI layer sets it
// on navigation; the dispatch loop reads it per event.
type ViewTracker struct {
	mu        sync.RWMutex
	channelID string
}

func (t *ViewTracker) Set(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channelID = channelID
}

func (t *ViewTracker) Snapshot() View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return View{ChannelID: t.channelID}
}

type Options struct {
	// CurrentUserID is the user this session belongs to.
	CurrentUserID string

	// ThreadsEnabled toggles all thread bookkeeping.
	ThreadsEnabled bool

	// FetchTimeout bounds fire-and-forget remote calls.
	FetchTimeout time.Duration
}

// Engine owns the reconciliation handlers and their shared collaborators.
type Engine struct {
	store    repository.Store
	fetcher  Fetcher
	notifier Notifier
	logger   *zap.Logger
	metrics  *observ.Metrics
	opts     Options

	// now is swappable so tests control timestamps (unix millis).
	now func() int64

	wg            sync.WaitGroup
	eventsHandled atomic.Uint64
	lastEventAt   atomic.Int64
}

func NewEngine(store repository.Store, fetcher Fetcher, notifier Notifier, logger *zap.Logger, metrics *observ.Metrics, opts Options) *Engine {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	return &Engine{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Dispatch routes one decoded event to its handler. Handler errors abort that
// event only; nothing propagates to the stream consumer.
func (e *Engine) Dispatch(ctx context.Context, view View, ev *event.Event) {
	var err error
	switch ev.Kind {
	case event.KindPosted:
		err = e.HandleNewPost(ctx, view, ev)
	case event.KindPostEdited:
		err = e.HandlePostEdited(ctx, ev)
	case event.KindPostDeleted:
		err = e.HandlePostDeleted(ctx, ev)
	case event.KindPostUnread:
		err = e.HandlePostUnread(ctx, ev)
	default:
		e.logger.Debug("unhandled event kind", zap.String("kind", string(ev.Kind)))
		return
	}

	e.eventsHandled.Add(1)
	e.lastEventAt.Store(e.now())

	if err != nil {
		e.drop(ev.Kind, "aborted")
		e.logger.Warn("event aborted",
			zap.String("kind", string(ev.Kind)),
			zap.Int64("seq", ev.Seq),
			zap.Error(err),
		)
		return
	}
	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// Status is a snapshot for the admin surface.
type Status struct {
	EventsHandled uint64 `json:"events_handled"`
	LastEventAt   int64  `json:"last_event_at"`
}

func (e *Engine) Status() Status {
	return Status{
		EventsHandled: e.eventsHandled.Load(),
		LastEventAt:   e.lastEventAt.Load(),
	}
}

// Close waits for in-flight fire-and-forget tasks to drain.
func (e *Engine) Close() {
	e.wg.Wait()
}

// commit applies a batch and publishes the changed record ids. Empty batches
// are skipped entirely.
func (e *Engine) commit(ctx context.Context, batch *repository.Batch) error {
	if batch.Empty() {
		return nil
	}
	changed, err := e.store.Commit(ctx, batch)
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.CommitsTotal.Inc()
		e.metrics.RecordsWritten.Add(float64(len(changed)))
	}
	e.notifier.RecordsChanged(ctx, changed)
	return nil
}

// spawn runs a fire-and-forget task. Its failure is logged and otherwise
// invisible to the event that triggered it.
func (e *Engine) spawn(name string, fn func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.FetchTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.logger.Debug("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

func (e *Engine) drop(kind event.Kind, reason string) {
	if e.metrics != nil {
		e.metrics.EventsDropped.WithLabelValues(string(kind), reason).Inc()
	}
}

// ensureMembership guarantees a local membership row exists for the post's
// channel before any read-state decision needs it. A fetch or store failure
// here aborts the whole event: committing the post without its membership
// would leave the view inconsistent.
func (e *Engine) ensureMembership(ctx context.Context, teamID string, post *models.Post) (*models.ChannelMembership, error) {
	m, err := e.store.Membership(ctx, post.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if m != nil {
		return m, nil
	}

	channels, memberships, err := e.fetcher.FetchChannelMembership(ctx, teamID, post.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("fetch membership: %w", err)
	}
	seed := &repository.Batch{Channels: channels, Memberships: memberships}
	if err := e.commit(ctx, seed); err != nil {
		return nil, fmt.Errorf("store membership: %w", err)
	}

	// Re-read so later mutations start from what actually landed. Two events
	// racing this path both write the same logical record; last writer wins.
	m, err = e.store.Membership(ctx, post.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("membership re-read: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("membership for channel %s missing after fetch", post.ChannelID)
	}
	return m, nil
}
