package storage

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Op is the kind of write a change reports.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change announces a successful write to a collection.
type Change struct {
	Collection domain.Collection `json:"collection"`
	ID         string            `json:"id"`
	Op         Op                `json:"op"`
}

// Publisher announces changes.
type Publisher interface {
	Publish(ctx context.Context, ch Change) error
}

// Feed delivers published changes to listeners.
type Feed interface {
	Publisher
	// Listen calls handle for every change until ctx is done. handle must
	// not block.
	Listen(ctx context.Context, handle func(Change)) error
}

// LocalFeed delivers changes within a single process.
type LocalFeed struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(Change)
}

// NewLocalFeed returns a feed with no listeners.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[int]func(Change))}
}

func (f *LocalFeed) Publish(ctx context.Context, ch Change) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, h := range f.listeners {
		h(ch)
	}
	return nil
}

// Listeners returns the number of attached listeners.
func (f *LocalFeed) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

func (f *LocalFeed) Listen(ctx context.Context, handle func(Change)) error {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = handle
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	delete(f.listeners, id)
	f.mu.Unlock()
	return nil
}

// RedisFeed fans changes out across instances over Redis pub/sub.
type RedisFeed struct {
	rc      *redis.Client
	channel string
	log     *log.Logger
	// ready is closed once the first subscription is confirmed.
	ready chan struct{}
	once  sync.Once
}

// NewRedisFeed publishes and listens on "<prefix>:changes".
func NewRedisFeed(rc *redis.Client, prefix string, logger *log.Logger) *RedisFeed {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisFeed{rc: rc, channel: prefix + ":changes", log: logger, ready: make(chan struct{})}
}

// Channel returns the pub/sub channel name.
func (f *RedisFeed) Channel() string { return f.channel }

// Ready is closed once Listen holds a confirmed subscription.
func (f *RedisFeed) Ready() <-chan struct{} { return f.ready }

func (f *RedisFeed) Publish(ctx context.Context, ch Change) error {
	data, err := sonic.ConfigStd.Marshal(ch)
	if err != nil {
		return err
	}
	return f.rc.Publish(ctx, f.channel, data).Err()
}

// Listen subscribes to the change channel and resubscribes whenever the
// connection drops.
func (f *RedisFeed) Listen(ctx context.Context, handle func(Change)) error {
	for {
		sub := f.rc.Subscribe(ctx, f.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return nil
			}
			f.log.WithError(err).Error("subscribe to change feed")
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		f.once.Do(func() { close(f.ready) })

		f.consume(ctx, sub.Channel(), handle)
		_ = sub.Close()
		if ctx.Err() != nil {
			return nil
		}
		f.log.Error("change feed closed, reconnecting")
		if !sleep(ctx, time.Second) {
			return nil
		}
	}
}

func (f *RedisFeed) consume(ctx context.Context, msgs <-chan *redis.Message, handle func(Change)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ch Change
			if err := sonic.ConfigStd.UnmarshalFromString(msg.Payload, &ch); err != nil {
				f.log.WithError(err).Error("unable to parse change")
				continue
			}
			if !ch.Collection.Valid() {
				f.log.WithField("collection", ch.Collection).Warn("change for unknown collection")
				continue
			}
			handle(ch)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
