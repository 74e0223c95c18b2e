package application

import (
	"context"

	"github.com/launchbase/launchbase/pkg/helpers"
	"github.com/launchbase/launchbase/pkg/mailer"
)

// Dispatcher enqueues account email jobs. Dispatch is fire-and-forget from
// the caller's point of view; the queue's redelivery policy owns failures
// past the publish.
type Dispatcher interface {
	Dispatch(ctx context.Context, job mailer.DeliveryJob) error
}

// QueueDispatcher publishes delivery jobs to RabbitMQ.
type QueueDispatcher struct {
	Pub *helpers.RabbitPublisher
}

func NewQueueDispatcher(pub *helpers.RabbitPublisher) *QueueDispatcher {
	return &QueueDispatcher{Pub: pub}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job mailer.DeliveryJob) error {
	return d.Pub.PublishJSON(ctx, job)
}

var _ Dispatcher = (*QueueDispatcher)(nil)
