package notify

import (
	"context"
	"fmt"

	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
)

// Dispatcher turns reconciliation events into chat messages. Delivery is
// best effort: a failed send is logged and dropped, never propagated back
// to the already-committed transition.
type Dispatcher struct {
	logger   logger.Logger
	sink     Sink
	adminRef string
}

func (d *Dispatcher) LoggerComponent() string {
	return "Notify.Dispatcher"
}

func NewDispatcher(sink Sink, adminRef string, l logger.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   l.WithComponent("Notify.Dispatcher"),
		sink:     sink,
		adminRef: adminRef,
	}
}

// Dispatch delivers the batch derived from one applied transition.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *model.Transaction, events []model.Event) {
	for _, ev := range events {
		recipient := tx.UserRef
		if ev.Audience == model.AudienceAdmin {
			recipient = d.adminRef
		}
		if recipient == "" {
			d.logger.Debug().
				Str("event_id", ev.ID).
				Str("audience", string(ev.Audience)).
				Msg("No recipient configured, notification dropped")
			continue
		}

		text := Compose(tx, ev)
		if err := d.sink.Send(ctx, recipient, text); err != nil {
			d.logger.Error().Err(err).
				Str("event_id", ev.ID).
				Str("transaction_id", ev.TransactionID).
				Msg("Notification delivery failed")
		}
	}
}

// Compose renders the message text for one event.
func Compose(tx *model.Transaction, ev model.Event) string {
	short := shortID(ev.TransactionID)

	switch ev.Kind {
	case model.KindPartialPayment:
		return fmt.Sprintf("Order %s: partial payment received, waiting for the remainder (%s %s expected).",
			short, tx.PayAmount.String(), tx.PayCurrency)
	case model.KindDepositDetected:
		return fmt.Sprintf("Order %s: deposit detected, confirming on the network (%s/%s confirmations).",
			short, ev.Payload["confirmations"], ev.Payload["required_confirmations"])
	case model.KindConfirmed:
		return fmt.Sprintf("Order %s: payment confirmed. Your payout is being prepared.", short)
	case model.KindPayoutNeeded:
		return fmt.Sprintf("Payout needed for order %s: %s %s.",
			short, ev.Payload["price_amount"], ev.Payload["price_currency"])
	case model.KindCompleted:
		return fmt.Sprintf("Order %s: completed. Thank you!", short)
	case model.KindCancelled:
		return fmt.Sprintf("Order %s: cancelled (payment window expired).", short)
	case model.KindFailed:
		return fmt.Sprintf("Order %s: payment failed. Contact support if you already sent funds.", short)
	case model.KindFailedAlert:
		return fmt.Sprintf("Order %s failed (was %s), manual review needed.", short, ev.Payload["from"])
	case model.KindRefunded:
		return fmt.Sprintf("Order %s: payment refunded.", short)
	}

	return fmt.Sprintf("Order %s: status changed to %s.", short, ev.To)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
