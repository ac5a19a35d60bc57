// Package storage holds the document collections behind the board and the
// feed that announces changes to them.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"prism-board/domain"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write races another writer and loses, or
	// when an inserted id is already taken.
	ErrConflict = errors.New("document conflict")
)

// Document is one keyed record of a collection. Data holds the JSON object
// of its fields; the id is not part of Data.
type Document struct {
	ID   string
	Data []byte
}

// Store is the remote document store boundary.
type Store interface {
	// Snapshot returns the whole collection in key order.
	Snapshot(ctx context.Context, c domain.Collection) ([]Document, error)
	// Create inserts a new document and returns the id the store assigned.
	Create(ctx context.Context, c domain.Collection, fields map[string]any) (string, error)
	// Insert adds a new document under an id the caller allocated with NewID.
	// It fails with ErrConflict when the id is taken.
	Insert(ctx context.Context, c domain.Collection, id string, fields map[string]any) error
	// Update merges fields into an existing document. Nested values replace
	// whatever was stored under the same key.
	Update(ctx context.Context, c domain.Collection, id string, fields map[string]any) error
	// Delete removes a document.
	Delete(ctx context.Context, c domain.Collection, id string) error
}

// NewID returns a time-ordered document id, so key order follows insertion
// order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func encodeFields(fields map[string]any) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(withoutID(fields))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// mergeFields overlays fields onto the stored JSON object.
func mergeFields(data []byte, fields map[string]any) ([]byte, error) {
	current := map[string]any{}
	if len(data) > 0 {
		if err := sonic.ConfigStd.Unmarshal(data, &current); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	for k, v := range withoutID(fields) {
		current[k] = v
	}
	return encodeFields(current)
}

func withoutID(fields map[string]any) map[string]any {
	if _, ok := fields["id"]; !ok {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}

func checkCollection(c domain.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", c)
	}
	return nil
}
