package api

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"prism-board/domain"
	"prism-board/storage"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	ev, err := nextEvent(r)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return ev
}

func nextEvent(r *bufio.Reader) (sseEvent, error) {
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return ev, err
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev, nil
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, s *server, collection string) *bufio.Reader {
	t.Helper()
	ts := httptest.NewServer(s.echo)
	ctx, cancel := context.WithCancel(context.Background())
	url := ts.URL + "/api/stream/" + collection + "?token=" + signToken(t, "user")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
		ts.Close()
	})
	return bufio.NewReader(resp.Body)
}

func TestStreamTasksSendsBoardOnEveryChange(t *testing.T) {
	s := newServer(t, nil)
	r := openStream(t, s, "tasks")

	first := readEvent(t, r)
	if first.name != "tasks" {
		t.Fatalf("unexpected event name %q", first.name)
	}
	var board boardResponse
	if err := sonic.ConfigStd.UnmarshalFromString(first.data, &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board.Columns) != 4 || len(board.Columns[0].Tasks) != 0 {
		t.Fatalf("unexpected initial board %+v", board)
	}

	if rec := s.do(t, http.MethodPost, "/api/tasks", `{"title":"live"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	done := make(chan sseEvent, 1)
	go func() {
		if ev, err := nextEvent(r); err == nil {
			done <- ev
		}
	}()
	select {
	case ev := <-done:
		if err := sonic.ConfigStd.UnmarshalFromString(ev.data, &board); err != nil {
			t.Fatalf("decode board: %v", err)
		}
		if len(board.Columns[0].Tasks) != 1 || board.Columns[0].Tasks[0].Title != "live" {
			t.Fatalf("unexpected board after create %+v", board.Columns[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestStreamTeamPayload(t *testing.T) {
	s := newServer(t, nil)
	s.do(t, http.MethodPost, "/api/team", `{"name":"Ana","email":"ana@example.com"}`)
	r := openStream(t, s, "team")
	ev := readEvent(t, r)
	var team teamResponse
	if err := sonic.ConfigStd.UnmarshalFromString(ev.data, &team); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	if len(team.Team) != 1 || team.Team[0].Status != domain.MemberInvited {
		t.Fatalf("unexpected team %+v", team)
	}
}

func TestStreamUnknownCollection(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stream/invoices?token="+signToken(t, "user"), nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSSEFrame(t *testing.T) {
	got := string(sseFrame("projects", []byte(`{"projects":[]}`)))
	want := "event: projects\ndata: {\"projects\":[]}\n\n"
	if got != want {
		t.Fatalf("unexpected frame %q", got)
	}
}

// unreadableStore fails every snapshot read.
type unreadableStore struct {
	*storage.Memory
}

func (unreadableStore) Snapshot(context.Context, domain.Collection) ([]storage.Document, error) {
	return nil, errors.New("table unavailable")
}

func TestStreamReportsReadFailure(t *testing.T) {
	for _, tc := range []struct {
		collection string
		message    string
	}{
		{"tasks", "Failed to load board."},
		{"projects", "Failed to load projects."},
		{"team", "Failed to load team."},
	} {
		s := newServer(t, unreadableStore{Memory: storage.NewMemory()})
		r := openStream(t, s, tc.collection)
		ev := readEvent(t, r)
		if ev.name != errorEvent {
			t.Fatalf("%s: expected error event, got %q", tc.collection, ev.name)
		}
		var body errorBody
		if err := sonic.ConfigStd.UnmarshalFromString(ev.data, &body); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if body.Message != tc.message {
			t.Fatalf("%s: unexpected message %q", tc.collection, body.Message)
		}
		if strings.Contains(ev.data, "table unavailable") {
			t.Fatal("store error leaked to client")
		}
	}
}
