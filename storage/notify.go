package storage

import (
	"context"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Notifying publishes a Change after every successful write to the wrapped
// store. A failed publish is logged; the write itself already happened.
type Notifying struct {
	Store
	publishers []Publisher
	log        *log.Logger
}

// NewNotifying wraps base so every successful write is sent to each of
// publishers.
func NewNotifying(base Store, logger *log.Logger, publishers ...Publisher) *Notifying {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Notifying{Store: base, publishers: publishers, log: logger}
}

func (n *Notifying) Create(ctx context.Context, c domain.Collection, fields map[string]any) (string, error) {
	id, err := n.Store.Create(ctx, c, fields)
	if err != nil {
		return "", err
	}
	n.publish(ctx, Change{Collection: c, ID: id, Op: OpCreate})
	return id, nil
}

func (n *Notifying) Insert(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	if err := n.Store.Insert(ctx, c, id, fields); err != nil {
		return err
	}
	n.publish(ctx, Change{Collection: c, ID: id, Op: OpCreate})
	return nil
}

func (n *Notifying) Update(ctx context.Context, c domain.Collection, id string, fields map[string]any) error {
	if err := n.Store.Update(ctx, c, id, fields); err != nil {
		return err
	}
	n.publish(ctx, Change{Collection: c, ID: id, Op: OpUpdate})
	return nil
}

func (n *Notifying) Delete(ctx context.Context, c domain.Collection, id string) error {
	if err := n.Store.Delete(ctx, c, id); err != nil {
		return err
	}
	n.publish(ctx, Change{Collection: c, ID: id, Op: OpDelete})
	return nil
}

func (n *Notifying) publish(ctx context.Context, ch Change) {
	for _, p := range n.publishers {
		if err := p.Publish(ctx, ch); err != nil {
			n.log.WithError(err).WithFields(log.Fields{
				"collection": ch.Collection,
				"id":         ch.ID,
				"op":         ch.Op,
			}).Error("publish change")
		}
	}
}
