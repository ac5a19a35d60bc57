package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
)

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// QueueLog appends every change to an Azure Storage queue so that
// downstream consumers can replay writes.
type QueueLog struct {
	queue queueClient
}

// NewQueueLog connects to the named queue.
func NewQueueLog(connStr, queue string) (*QueueLog, error) {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, &azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &QueueLog{queue: q}, nil
}

type changeRecord struct {
	Change
	At time.Time `json:"at"`
}

func (q *QueueLog) Publish(ctx context.Context, ch Change) error {
	data, err := sonic.ConfigStd.Marshal(changeRecord{Change: ch, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = q.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}
