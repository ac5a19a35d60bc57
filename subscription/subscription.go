// Package subscription pushes full collection snapshots to listeners every
// time the collection changes.
package subscription

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/storage"
)

// DefaultBuffer is the number of undelivered snapshots kept per listener.
const DefaultBuffer = 4

// Snapshotter reads whole collections.
type Snapshotter interface {
	Snapshot(ctx context.Context, c domain.Collection) ([]storage.Document, error)
}

// Snapshot is one delivery to a listener. Err is set when the collection
// could not be read; the subscription stays attached and retries on the next
// change.
type Snapshot struct {
	Docs []storage.Document
	Err  error
}

// Manager routes change notifications from a feed to the listeners of the
// affected collection.
type Manager struct {
	store  Snapshotter
	feed   storage.Feed
	buffer int
	log    *log.Logger

	mu   sync.Mutex
	subs map[domain.Collection]map[*Subscription]struct{}
}

// NewManager builds a manager reading snapshots from store and change
// notifications from feed. A buffer of zero or less uses DefaultBuffer.
func NewManager(store Snapshotter, feed storage.Feed, buffer int, logger *log.Logger) *Manager {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		store:  store,
		feed:   feed,
		buffer: buffer,
		log:    logger,
		subs:   make(map[domain.Collection]map[*Subscription]struct{}),
	}
}

// Run consumes the change feed until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	return m.feed.Listen(ctx, m.route)
}

func (m *Manager) route(ch storage.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.subs[ch.Collection] {
		s.notify()
	}
}

// Listeners returns the number of attached listeners for c.
func (m *Manager) Listeners(c domain.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[c])
}

// Subscribe attaches a listener to c. The current snapshot is delivered
// first, then one snapshot per change. The listener stays attached until
// Close is called or ctx is done.
func (m *Manager) Subscribe(ctx context.Context, c domain.Collection) (*Subscription, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		collection: c,
		m:          m,
		out:        make(chan Snapshot, m.buffer),
		pending:    make(chan struct{}, m.buffer),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	m.mu.Lock()
	if m.subs[c] == nil {
		m.subs[c] = make(map[*Subscription]struct{})
	}
	m.subs[c][s] = struct{}{}
	m.mu.Unlock()

	go s.run(sctx)
	return s, nil
}

func (m *Manager) detach(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs[s.collection], s)
	if len(m.subs[s.collection]) == 0 {
		delete(m.subs, s.collection)
	}
}

// Subscription is a live listener on one collection.
type Subscription struct {
	collection domain.Collection
	m          *Manager
	out        chan Snapshot
	pending    chan struct{}
	cancel     context.CancelFunc
	done       chan struct{}
}

// C delivers snapshots and read failures. It is closed once the
// subscription ends.
func (s *Subscription) C() <-chan Snapshot { return s.out }

// Collection returns the collection being watched.
func (s *Subscription) Collection() domain.Collection { return s.collection }

// Close detaches the listener. Nothing is delivered after Close returns.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Done is closed when the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// notify records a pending change. When enough fetches are already queued
// the next one covers this change too.
func (s *Subscription) notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.m.detach(s)
		for {
			select {
			case <-s.out:
			default:
				close(s.out)
				return
			}
		}
	}()

	entry := s.m.log.WithField("collection", s.collection)
	s.fetch(ctx, entry)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
			s.fetch(ctx, entry)
		}
	}
}

func (s *Subscription) fetch(ctx context.Context, entry *log.Entry) {
	docs, err := s.m.store.Snapshot(ctx, s.collection)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		entry.WithError(err).Error("fetch snapshot")
		s.deliver(Snapshot{Err: err})
		return
	}
	s.deliver(Snapshot{Docs: docs})
}

// deliver never blocks: when the listener is behind, the oldest undelivered
// snapshot is dropped in favour of the newest.
func (s *Subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.out <- snap:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}
