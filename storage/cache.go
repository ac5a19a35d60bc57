package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"prism-board/domain"
)

// Cache keeps collection snapshots in Redis and evicts them on every write
// that goes through it. Each write also bumps a per-collection generation
// counter; a snapshot read from the backing store is only cached when no
// write happened while it was being read.
type Cache struct {
	Store
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

type cachedDoc struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// NewCache wraps base. A zero ttl keeps snapshots until the next write.
func NewCache(base Store, client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl, prefix: prefix}
}

func (c *Cache) key(col domain.Collection) string {
	return c.prefix + ":snapshot:" + string(col)
}

func (c *Cache) genKey(col domain.Collection) string {
	return c.prefix + ":gen:" + string(col)
}

func (c *Cache) Snapshot(ctx context.Context, col domain.Collection) ([]Document, error) {
	if docs, ok := c.load(ctx, col); ok {
		return docs, nil
	}
	gen, genOK := c.generation(ctx, col)
	docs, err := c.Store.Snapshot(ctx, col)
	if err != nil {
		return nil, err
	}
	if genOK {
		c.save(ctx, col, gen, docs)
	}
	return docs, nil
}

func (c *Cache) Create(ctx context.Context, col domain.Collection, fields map[string]any) (string, error) {
	id, err := c.Store.Create(ctx, col, fields)
	if err != nil {
		return "", err
	}
	c.evict(ctx, col)
	return id, nil
}

func (c *Cache) Insert(ctx context.Context, col domain.Collection, id string, fields map[string]any) error {
	if err := c.Store.Insert(ctx, col, id, fields); err != nil {
		return err
	}
	c.evict(ctx, col)
	return nil
}

func (c *Cache) Update(ctx context.Context, col domain.Collection, id string, fields map[string]any) error {
	err := c.Store.Update(ctx, col, id, fields)
	// a failed merge may still have landed; drop the snapshot either way
	c.evict(ctx, col)
	return err
}

func (c *Cache) Delete(ctx context.Context, col domain.Collection, id string) error {
	err := c.Store.Delete(ctx, col, id)
	c.evict(ctx, col)
	return err
}

func (c *Cache) load(ctx context.Context, col domain.Collection) ([]Document, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.key(col)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, c.key(col)).Err()
		}
		return nil, false
	}
	var cached []cachedDoc
	if err := sonic.ConfigStd.Unmarshal(data, &cached); err != nil {
		_ = c.redis.Del(ctx, c.key(col)).Err()
		return nil, false
	}
	docs := make([]Document, len(cached))
	for i, d := range cached {
		docs[i] = Document{ID: d.ID, Data: d.Data}
	}
	return docs, true
}

// generation returns the write counter of col. ok is false when it cannot
// be read, in which case nothing read afterwards may be cached.
func (c *Cache) generation(ctx context.Context, col domain.Collection) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, c.genKey(col)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	return gen, err == nil
}

// save stores docs unless the generation moved past gen, meaning a write
// landed after docs were read.
func (c *Cache) save(ctx context.Context, col domain.Collection, gen int64, docs []Document) {
	cached := make([]cachedDoc, len(docs))
	for i, d := range docs {
		cached[i] = cachedDoc{ID: d.ID, Data: d.Data}
	}
	data, err := sonic.ConfigStd.Marshal(cached)
	if err != nil {
		return
	}
	genKey := c.genKey(col)
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(col), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

func (c *Cache) evict(ctx context.Context, col domain.Collection) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(col))
		pipe.Del(ctx, c.key(col))
		return nil
	})
}
