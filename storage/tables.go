package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"prism-board/domain"
)

const maxUpdateAttempts = 5

// tableClient is the subset of *aztables.Client used by Tables.
type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Tables stores each collection in its own Azure table. Every document lives
// in the partition named after its collection; the row key is the document
// id and the fields are kept as a JSON body.
type Tables struct {
	tables map[domain.Collection]tableClient
}

// TableNames maps collections to table names.
type TableNames map[domain.Collection]string

type docEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Body         string `json:"Body"`
}

// NewTables connects to the tables named for each collection.
func NewTables(connStr string, names TableNames) (*Tables, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	t := &Tables{tables: make(map[domain.Collection]tableClient, len(names))}
	for _, c := range domain.Collections {
		name, ok := names[c]
		if !ok || name == "" {
			return nil, fmt.Errorf("no table configured for %s", c)
		}
		t.tables[c] = svc.NewClient(name)
	}
	return t, nil
}

func (t *Tables) client(c domain.Collection) (tableClient, error) {
	tc, ok := t.tables[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	return tc, nil
}

func (t *Tables) Snapshot(ctx context.Context, c domain.Collection) ([]Document, error) {
	tc, err := t.client(c)
	if err != nil {
		return nil, err
	}
	filter := "PartitionKey eq '" + string(c) + "'"
	pager := tc.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	docs := []Document{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, raw := range resp.Entities {
			var ent docEntity
			if err := sonic.ConfigStd.Unmarshal(raw, &ent); err != nil {
				return nil, fmt.Errorf("decode %s entity: %w", c, err)
			}
			docs = append(docs, Document{ID: ent.RowKey, Data: []byte(ent.Body)})
		}
	}
	return docs, nil
}

func (t *Tables) Create(ctx context.Context, c domain.Collection, fields map[string]any) (string, error) {
	id := NewID()
	if err := t.Insert(ctx, c, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (t *Tables) Insert(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	tc, err := t.client(c)
	if err != nil {
		return err
	}
	body, err := encodeFields(fields)
	if err != nil {
		return err
	}
	payload, err := sonic.ConfigStd.Marshal(docEntity{PartitionKey: string(c), RowKey: id, Body: string(body)})
	if err != nil {
		return err
	}
	if _, err := tc.AddEntity(ctx, payload, nil); err != nil {
		return fmt.Errorf("%s/%s: %w", c, id, mapError(err))
	}
	return nil
}

// Update reads the stored body, merges fields and writes it back guarded by
// the read ETag. A lost race is retried against the fresh body.
func (t *Tables) Update(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	tc, err := t.client(c)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		resp, err := tc.GetEntity(ctx, string(c), id, nil)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", c, id, mapError(err))
		}
		var ent docEntity
		if err := sonic.ConfigStd.Unmarshal(resp.Value, &ent); err != nil {
			return fmt.Errorf("decode %s entity: %w", c, err)
		}
		merged, err := mergeFields([]byte(ent.Body), fields)
		if err != nil {
			return err
		}
		payload, err := sonic.ConfigStd.Marshal(docEntity{PartitionKey: string(c), RowKey: id, Body: string(merged)})
		if err != nil {
			return err
		}
		etag := resp.ETag
		_, err = tc.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
		if err == nil {
			return nil
		}
		if err = mapError(err); !errors.Is(err, ErrConflict) {
			return fmt.Errorf("%s/%s: %w", c, id, err)
		}
	}
	return fmt.Errorf("%s/%s: %w", c, id, ErrConflict)
}

func (t *Tables) Delete(ctx context.Context, c domain.Collection, id string) error {
	tc, err := t.client(c)
	if err != nil {
		return err
	}
	if _, err := tc.DeleteEntity(ctx, string(c), id, nil); err != nil {
		return fmt.Errorf("%s/%s: %w", c, id, mapError(err))
	}
	return nil
}

// mapError translates Azure status codes into the package sentinels.
func mapError(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, respErr.ErrorCode)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", ErrConflict, respErr.ErrorCode)
	}
	return err
}
