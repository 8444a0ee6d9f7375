package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/events"
	"github.com/Banditcantcode/Banditbot/internal/observability"
)

// NotificationService records lifecycle events for operators: structured
// logs plus the interaction counters surfaced by the ops server.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to every lifecycle event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketClosed,
		events.EventTicketDeleted,
		events.EventUserAdded,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Bool("by_creator", event.Actor.IsCreator),
		zap.Any("payload", event.Payload))
	n.metrics.RecordInteraction(string(event.Type), "ok")
	return nil
}
