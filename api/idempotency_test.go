package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newDeduper(t *testing.T) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return NewRedisDeduper(client, "prism", time.Minute), m
}

func TestRedisDeduperAddTwice(t *testing.T) {
	deduper, _ := newDeduper(t)
	ctx := context.Background()

	first, err := deduper.Add(ctx, "user", "k1")
	if err != nil || !first {
		t.Fatalf("expected first add to succeed, got %v %v", first, err)
	}
	second, err := deduper.Add(ctx, "user", "k1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second {
		t.Fatal("expected duplicate on second add")
	}
}

func TestRedisDeduperKeyNamespacing(t *testing.T) {
	deduper, m := newDeduper(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "alice", "k"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !m.Exists("prism:idem:alice:k") {
		t.Fatalf("expected namespaced key, have %v", m.Keys())
	}
	added, err := deduper.Add(ctx, "bob", "k")
	if err != nil || !added {
		t.Fatalf("expected same key for another user to be added, got %v %v", added, err)
	}
	if ttl := m.TTL("prism:idem:alice:k"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestRedisDeduperRemove(t *testing.T) {
	deduper, _ := newDeduper(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "user", "k"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := deduper.Remove(ctx, "user", "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err := deduper.Add(ctx, "user", "k")
	if err != nil || !added {
		t.Fatalf("expected key to be reusable after remove, got %v %v", added, err)
	}
}
