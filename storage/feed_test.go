package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"prism-board/domain"
)

func TestRedisFeedDeliversChanges(t *testing.T) {
	_, rc := newRedis(t)
	logger, _ := test.NewNullLogger()
	feed := NewRedisFeed(rc, "prism", logger)

	var mu sync.Mutex
	var got []Change
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = feed.Listen(ctx, func(ch Change) {
			mu.Lock()
			got = append(got, ch)
			mu.Unlock()
		})
		close(done)
	}()
	select {
	case <-feed.Ready():
	case <-time.After(time.Second):
		t.Fatal("feed did not subscribe")
	}

	if err := feed.Publish(context.Background(), Change{Collection: domain.Tasks, ID: "t1", Op: OpCreate}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// unknown collections are ignored
	_ = rc.Publish(context.Background(), feed.Channel(), `{"collection":"users","id":"u"}`).Err()
	_ = rc.Publish(context.Background(), feed.Channel(), `garbage`).Err()
	if err := feed.Publish(context.Background(), Change{Collection: domain.Team, ID: "m1", Op: OpDelete}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	if len(got) != 2 || got[0].ID != "t1" || got[1].Collection != domain.Team {
		t.Fatalf("unexpected changes %+v", got)
	}
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not exit")
	}
}

func TestLocalFeed(t *testing.T) {
	feed := NewLocalFeed()
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Change, 1)
	done := make(chan struct{})
	go func() {
		_ = feed.Listen(ctx, func(ch Change) { got <- ch })
		close(done)
	}()
	waitListeners(t, feed, 1)

	_ = feed.Publish(context.Background(), Change{Collection: domain.Projects, ID: "p1", Op: OpUpdate})
	if ch := <-got; ch.ID != "p1" {
		t.Fatalf("unexpected change %+v", ch)
	}
	cancel()
	<-done
	waitListeners(t, feed, 0)
}

func waitListeners(t *testing.T, feed *LocalFeed, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if feed.Listeners() == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d listeners", n)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (r *recordingPublisher) Publish(ctx context.Context, ch Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
	return r.err
}

func TestNotifyingPublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	pub := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("queue down")}
	st := NewNotifying(NewMemory(), logger, pub, failing)

	id, err := st.Create(ctx, domain.Tasks, map[string]any{"title": "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Update(ctx, domain.Tasks, id, map[string]any{"title": "b"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := st.Delete(ctx, domain.Tasks, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Delete(ctx, domain.Tasks, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []Op{OpCreate, OpUpdate, OpDelete}
	if len(pub.changes) != len(want) {
		t.Fatalf("expected %d changes, got %+v", len(want), pub.changes)
	}
	for i, op := range want {
		if pub.changes[i].Op != op || pub.changes[i].ID != id {
			t.Fatalf("change %d: unexpected %+v", i, pub.changes[i])
		}
	}
	if len(hook.AllEntries()) != 3 {
		t.Fatalf("expected each failed publish logged, got %d", len(hook.AllEntries()))
	}
}
