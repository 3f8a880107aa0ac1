package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/domain/event"
)

// AuditTrail writes one structured log line per committed budget event
type AuditTrail struct {
	logger *zap.Logger
}

// NewAuditTrail creates an audit trail and subscribes it to d
func NewAuditTrail(d dispatcher.Dispatcher, logger *zap.Logger) *AuditTrail {
	a := &AuditTrail{logger: logger.Named("audit")}
	d.SubscribeAll("audit-trail", a.Record)
	return a
}

// Record logs evt
func (a *AuditTrail) Record(ctx context.Context, evt *event.Event) error {
	fields := []zap.Field{
		zap.String("event_type", evt.Type.String()),
		zap.String("event_id", evt.EventID),
		zap.String("budget_id", evt.BudgetID),
		zap.String("actor_id", evt.ActorID),
		zap.Time("at", evt.Timestamp),
	}
	if evt.ItemID != "" {
		fields = append(fields, zap.String("item_id", evt.ItemID))
	}
	if len(evt.Payload) > 0 {
		fields = append(fields, zap.Any("payload", evt.Payload))
	}
	a.logger.Info("Budget event", fields...)
	return nil
}
