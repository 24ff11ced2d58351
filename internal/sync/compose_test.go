package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/vanhieuu/mattermost-mobile/internal/event"
)

func TestSendPostSwapsPendingForServerRecord(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{}
	e := newTestEngine(t, store, fetcher, &fakeNotifier{})

	created, err := e.SendPost(context.Background(), "ch-1", "", "hello")
	if err != nil {
		t.Fatalf("SendPost: %v", err)
	}
	if created.PendingPostID == "" {
		t.Fatal("expected the server record to carry the pending id")
	}
	if created.ID == created.PendingPostID {
		t.Fatal("expected a server-assigned id distinct from the pending id")
	}

	if _, ok := store.posts[created.ID]; !ok {
		t.Fatal("expected the server record persisted")
	}
	if _, ok := store.posts[created.PendingPostID]; ok {
		t.Fatal("expected the pending placeholder retired")
	}
	if store.commits != 2 {
		t.Fatalf("expected stage + swap commits, got %d", store.commits)
	}
}

func TestSendPostKeepsPlaceholderOnNetworkFailure(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{createErr: errors.New("network down")}
	e := newTestEngine(t, store, fetcher, &fakeNotifier{})

	if _, err := e.SendPost(context.Background(), "ch-1", "", "hello"); err == nil {
		t.Fatal("expected an error when the create fails")
	}
	if len(store.posts) != 1 {
		t.Fatalf("expected the placeholder to survive, got %d posts", len(store.posts))
	}
	for _, p := range store.posts {
		if p.PendingPostID == "" {
			t.Fatal("surviving post should be the pending placeholder")
		}
	}
}

func TestSendPostEchoIsDeduplicated(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{}
	e := newTestEngine(t, store, fetcher, &fakeNotifier{})

	created, err := e.SendPost(context.Background(), "ch-1", "", "hello")
	if err != nil {
		t.Fatalf("SendPost: %v", err)
	}
	commitsBefore := store.commits

	// The server broadcasts the post back over the websocket, pending id
	// attached. The new-post handler must treat it as already applied.
	if err := e.HandleNewPost(context.Background(), View{}, postEvent(t, event.KindPosted, created, nil)); err != nil {
		t.Fatalf("HandleNewPost: %v", err)
	}
	if store.commits != commitsBefore {
		t.Fatalf("expected the echo to commit nothing, commits went %d -> %d", commitsBefore, store.commits)
	}
}
