package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"

	"prism-board/domain"
)

func decodeTask(t *testing.T, d Document) domain.Task {
	t.Helper()
	var task domain.Task
	if err := sonic.ConfigStd.Unmarshal(d.Data, &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	task.ID = d.ID
	return task
}

func TestMemoryCreateSnapshotOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		id, err := m.Create(ctx, domain.Tasks, map[string]any{"title": title, "status": "todo"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, id)
	}
	docs, err := m.Snapshot(ctx, domain.Tasks)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	for i, d := range docs {
		if d.ID != ids[i] {
			t.Fatalf("doc %d: expected %s, got %s", i, ids[i], d.ID)
		}
	}
	if got := decodeTask(t, docs[1]).Title; got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}

func TestMemoryUpdateMergesTopLevel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, _ := m.Create(ctx, domain.Tasks, map[string]any{
		"title":    "x",
		"status":   "todo",
		"assignee": map[string]any{"name": "Ana", "avatar": "a.png"},
	})
	if err := m.Update(ctx, domain.Tasks, id, map[string]any{"assignee": map[string]any{"name": "Bo"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	docs, _ := m.Snapshot(ctx, domain.Tasks)
	task := decodeTask(t, docs[0])
	if task.Title != "x" || task.Status != domain.StatusTodo {
		t.Fatalf("untouched fields changed: %+v", task)
	}
	if task.Assignee.Name != "Bo" || task.Assignee.Avatar != "" {
		t.Fatalf("assignee should be replaced wholesale: %+v", task.Assignee)
	}
}

func TestMemoryMissingDocument(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Update(ctx, domain.Tasks, "nope", map[string]any{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Delete(ctx, domain.Tasks, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, _ := m.Create(ctx, domain.Team, map[string]any{"name": "a"})
	b, _ := m.Create(ctx, domain.Team, map[string]any{"name": "b"})
	if err := m.Delete(ctx, domain.Team, a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	docs, _ := m.Snapshot(ctx, domain.Team)
	if len(docs) != 1 || docs[0].ID != b {
		t.Fatalf("unexpected docs %+v", docs)
	}
}

func TestMemoryRejectsUnknownCollection(t *testing.T) {
	if _, err := NewMemory().Snapshot(context.Background(), "users"); err == nil {
		t.Fatal("expected error for unknown collection")
	}
}

func TestCreateStripsID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, _ := m.Create(ctx, domain.Projects, map[string]any{"id": "forged", "name": "p"})
	docs, _ := m.Snapshot(ctx, domain.Projects)
	var raw map[string]any
	if err := sonic.ConfigStd.Unmarshal(docs[0].Data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["id"]; ok || docs[0].ID != id {
		t.Fatalf("id must come from the store, got %v / %s", raw, docs[0].ID)
	}
}

func TestMemoryInsertKeepsKeyOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ids := []string{NewID(), NewID(), NewID()}
	for _, i := range []int{2, 0, 1} {
		if err := m.Insert(ctx, domain.Tasks, ids[i], map[string]any{"title": ids[i], "status": "todo"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	docs, err := m.Snapshot(ctx, domain.Tasks)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for i, d := range docs {
		if d.ID != ids[i] {
			t.Fatalf("doc %d: expected %s, got %s", i, ids[i], d.ID)
		}
	}
	if err := m.Insert(ctx, domain.Tasks, ids[0], map[string]any{"title": "dup"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
