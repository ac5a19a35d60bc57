package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"prism-board/domain"
)

type fakeQueue struct {
	messages []string
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	f.messages = append(f.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func TestQueueLogEnqueuesChange(t *testing.T) {
	q := &fakeQueue{}
	log := &QueueLog{queue: q}
	if err := log.Publish(context.Background(), Change{Collection: domain.Tasks, ID: "t1", Op: OpDelete}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(q.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(q.messages))
	}
	msg := q.messages[0]
	for _, want := range []string{`"collection":"tasks"`, `"id":"t1"`, `"op":"delete"`, `"at":`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %s missing %s", msg, want)
		}
	}
}
