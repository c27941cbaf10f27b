package lifecycle

import (
	"context"

	q "github.com/voluntree/voluntree-api/internal/queue"
	queue_publisher "github.com/voluntree/voluntree-api/internal/service"
)

// AMQPPublisher implements Publisher on top of the RabbitMQ publish
// functions.  Publish errors are already logged there, so the adapter
// discards them; a broker outage must not fail the request.
type AMQPPublisher struct{}

func (AMQPPublisher) WorkshopCreated(ctx context.Context, event q.WorkshopCreatedEvent) {
	_ = queue_publisher.PublishWorkshopCreated(ctx, event)
}

func (AMQPPublisher) BookingConfirmed(ctx context.Context, event q.BookingConfirmedEvent) {
	_ = queue_publisher.PublishBookingConfirmed(ctx, event)
}

func (AMQPPublisher) BookingCancelled(ctx context.Context, event q.BookingCancelledEvent) {
	_ = queue_publisher.PublishBookingCancelled(ctx, event)
}
