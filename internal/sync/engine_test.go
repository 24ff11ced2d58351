package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/event"
	"github.com/vanhieuu/mattermost-mobile/internal/models"
	"github.com/vanhieuu/mattermost-mobile/internal/notify"
	"github.com/vanhieuu/mattermost-mobile/internal/repository"
)

const (
	testUserID    = "user-me"
	testOtherUser = "user-other"
	testNow       = int64(1700000000000)
)

// fakeStore is an in-memory repository.Store that records every commit.
type fakeStore struct {
	mu           sync.Mutex
	posts        map[string]models.Post
	channels     map[string]models.Channel
	memberships  map[string]models.ChannelMembership
	threads      map[string]models.Thread
	participants map[string]map[string]bool
	users        map[string]models.User

	commits    int
	failCommit bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:        make(map[string]models.Post),
		channels:     make(map[string]models.Channel),
		memberships:  make(map[string]models.ChannelMembership),
		threads:      make(map[string]models.Thread),
		participants: make(map[string]map[string]bool),
		users:        make(map[string]models.User),
	}
}

func (s *fakeStore) PostByID(ctx context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *fakeStore) PostByPendingID(ctx context.Context, pendingID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pendingID == "" {
		return nil, nil
	}
	for _, p := range s.posts {
		if p.PendingPostID == pendingID {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[id]; ok {
		return &ch, nil
	}
	return nil, nil
}

func (s *fakeStore) Membership(ctx context.Context, channelID string) (*models.ChannelMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memberships[channelID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (s *fakeStore) ThreadByID(ctx context.Context, rootID string) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[rootID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *fakeStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *fakeStore) Commit(ctx context.Context, batch *repository.Batch) ([]repository.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch == nil || batch.Empty() {
		return nil, nil
	}
	if s.failCommit {
		return nil, errors.New("commit failed")
	}

	changed := make([]repository.RecordID, 0, batch.Size())
	for _, p := range batch.Posts {
		s.posts[p.ID] = p
		changed = append(changed, repository.RecordID{Kind: repository.KindPost, ID: p.ID})
	}
	for _, ch := range batch.Channels {
		s.channels[ch.ID] = ch
		changed = append(changed, repository.RecordID{Kind: repository.KindChannel, ID: ch.ID})
	}
	for _, m := range batch.Memberships {
		s.memberships[m.ChannelID] = m
		changed = append(changed, repository.RecordID{Kind: repository.KindMembership, ID: m.ChannelID})
	}
	for _, t := range batch.Threads {
		if existing, ok := s.threads[t.ID]; ok && existing.LastReplyAt > t.LastReplyAt {
			t.LastReplyAt = existing.LastReplyAt
		}
		s.threads[t.ID] = t
		changed = append(changed, repository.RecordID{Kind: repository.KindThread, ID: t.ID})
	}
	for _, tp := range batch.ThreadParticipants {
		if s.participants[tp.ThreadID] == nil {
			s.participants[tp.ThreadID] = make(map[string]bool)
		}
		s.participants[tp.ThreadID][tp.UserID] = true
		changed = append(changed, repository.RecordID{Kind: repository.KindThreadParticipant, ID: tp.ThreadID + "/" + tp.UserID})
	}
	for _, id := range batch.RetirePostIDs {
		delete(s.posts, id)
		changed = append(changed, repository.RecordID{Kind: repository.KindPost, ID: id})
	}
	for _, u := range batch.Users {
		s.users[u.ID] = u
		changed = append(changed, repository.RecordID{Kind: repository.KindUser, ID: u.ID})
	}
	s.commits++
	return changed, nil
}

func (s *fakeStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts) + len(s.channels) + len(s.memberships) + len(s.threads) + len(s.users)
}

// fakeFetcher is a canned remote.Client that records the operations invoked.
type fakeFetcher struct {
	mu sync.Mutex

	channels      []models.Channel
	memberships   []models.ChannelMembership
	membershipErr error

	post       *models.Post
	postErr    error
	profiles   []models.User
	profileErr error

	thread             *models.Thread
	threadParticipants []models.ThreadParticipant
	threadErr          error

	created   *models.Post
	createErr error

	calls []string
}

func (f *fakeFetcher) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeFetcher) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) FetchChannelMembership(ctx context.Context, teamID, channelID string) ([]models.Channel, []models.ChannelMembership, error) {
	f.record("fetch_membership")
	if f.membershipErr != nil {
		return nil, nil, f.membershipErr
	}
	return f.channels, f.memberships, nil
}

func (f *fakeFetcher) FetchPost(ctx context.Context, postID string) (*models.Post, error) {
	f.record("fetch_post")
	if f.postErr != nil {
		return nil, f.postErr
	}
	if f.post == nil {
		return nil, errors.New("no post configured")
	}
	return f.post, nil
}

func (f *fakeFetcher) FetchProfiles(ctx context.Context, userIDs []string) ([]models.User, error) {
	f.record("fetch_profiles")
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profiles, nil
}

func (f *fakeFetcher) FetchThread(ctx context.Context, teamID, rootID string) (*models.Thread, []models.ThreadParticipant, error) {
	f.record("fetch_thread")
	if f.threadErr != nil {
		return nil, nil, f.threadErr
	}
	if f.thread == nil {
		return nil, nil, errors.New("no thread configured")
	}
	return f.thread, f.threadParticipants, nil
}

func (f *fakeFetcher) MarkChannelRead(ctx context.Context, channelID string) error {
	f.record("mark_read")
	return nil
}

func (f *fakeFetcher) MarkChannelViewed(ctx context.Context, channelID string) error {
	f.record("mark_viewed")
	return nil
}

func (f *fakeFetcher) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	f.record("create_post")
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	created := *post
	created.ID = "server-" + post.PendingPostID
	return &created, nil
}

// fakeNotifier records signals.
type fakeNotifier struct {
	mu      sync.Mutex
	typing  []notify.Typing
	changes [][]repository.RecordID
}

func (n *fakeNotifier) RecordsChanged(ctx context.Context, records []repository.RecordID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, records)
}

func (n *fakeNotifier) TypingStopped(ctx context.Context, t notify.Typing) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typing = append(n.typing, t)
}

func (n *fakeNotifier) typingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.typing)
}

func newTestEngine(t *testing.T, store *fakeStore, fetcher *fakeFetcher, notifier *fakeNotifier) *Engine {
	t.Helper()
	e := NewEngine(store, fetcher, notifier, zap.NewNop(), nil, Options{
		CurrentUserID:  testUserID,
		ThreadsEnabled: true,
		FetchTimeout:   time.Second,
	})
	e.now = func() int64 { return testNow }
	return e
}

// postEvent builds an event whose post payload is string-wrapped the way the
// server sends it.
func postEvent(t *testing.T, kind event.Kind, post *models.Post, mentions []string) *event.Event {
	t.Helper()
	data := make(map[string]json.RawMessage)

	encoded, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("marshal post: %v", err)
	}
	wrapped, err := json.Marshal(string(encoded))
	if err != nil {
		t.Fatalf("wrap post: %v", err)
	}
	data["post"] = wrapped

	if mentions != nil {
		m, err := json.Marshal(mentions)
		if err != nil {
			t.Fatalf("marshal mentions: %v", err)
		}
		wm, err := json.Marshal(string(m))
		if err != nil {
			t.Fatalf("wrap mentions: %v", err)
		}
		data["mentions"] = wm
	}

	return &event.Event{
		Kind:      kind,
		Broadcast: event.Broadcast{TeamID: "team-1", ChannelID: post.ChannelID},
		Data:      data,
	}
}

func seedMembership(s *fakeStore, channelID string) models.ChannelMembership {
	m := models.ChannelMembership{
		ChannelID:    channelID,
		MsgCount:     3,
		MentionCount: 1,
		LastViewedAt: testNow - 60000,
		LastPostAt:   testNow - 30000,
		IsUnread:     true,
	}
	s.memberships[channelID] = m
	return m
}
