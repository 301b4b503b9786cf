// Package notify delivers order events to the user-facing transport. The
// bot transport plugs in its own implementation; LogNotifier is the default
// sink so the engine always has somewhere to report.
package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/vasiliy-maslov/telegram-storefront/internal/order"
)

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPlaced(ctx context.Context, o *order.Order) {
	n.logger.Info().
		Stringer("order_id", o.ID).
		Str("order_number", o.Number).
		Int64("user_id", o.UserID).
		Str("total", o.Total.String()).
		Msg("notify: order placed")
}

func (n *LogNotifier) StatusChanged(ctx context.Context, o *order.Order, previous order.Status) {
	n.logger.Info().
		Stringer("order_id", o.ID).
		Str("order_number", o.Number).
		Int64("user_id", o.UserID).
		Stringer("old_status", previous).
		Stringer("new_status", o.Status).
		Str("message_key", o.Status.MessageKey()).
		Msg("notify: order status changed")
}
