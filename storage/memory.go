package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"prism-board/domain"
)

// Memory is an in-process Store. Documents are kept in key order.
type Memory struct {
	mu    sync.RWMutex
	order map[domain.Collection][]string
	docs  map[domain.Collection]map[string][]byte
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		order: make(map[domain.Collection][]string),
		docs:  make(map[domain.Collection]map[string][]byte),
	}
}

func (m *Memory) Snapshot(ctx context.Context, c domain.Collection) ([]Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.order[c]))
	for _, id := range m.order[c] {
		data := m.docs[c][id]
		docs = append(docs, Document{ID: id, Data: append([]byte(nil), data...)})
	}
	return docs, nil
}

func (m *Memory) Create(ctx context.Context, c domain.Collection, fields map[string]any) (string, error) {
	id := NewID()
	if err := m.Insert(ctx, c, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Insert(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c][id]; ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrConflict)
	}
	if m.docs[c] == nil {
		m.docs[c] = make(map[string][]byte)
	}
	m.docs[c][id] = data
	i, _ := slices.BinarySearch(m.order[c], id)
	m.order[c] = slices.Insert(m.order[c], i, id)
	return nil
}

func (m *Memory) Update(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[c][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	merged, err := mergeFields(data, fields)
	if err != nil {
		return err
	}
	m.docs[c][id] = merged
	return nil
}

func (m *Memory) Delete(ctx context.Context, c domain.Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c][id]; !ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	delete(m.docs[c], id)
	ids := m.order[c]
	for i, v := range ids {
		if v == id {
			m.order[c] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
