package model

import "github.com/shopspring/decimal"

// Source identifies the channel a status report arrived on.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourcePoll    Source = "poll"
)

// StatusEvent is a single status report from either channel, as handed to
// the reconciliation engine. Not persisted.
type StatusEvent struct {
	TransactionID string
	PaymentID     string
	RawStatus     string
	Confirmations int
	Amount        decimal.NullDecimal
	Source        Source
}

// Kind names the notification-worthy fact behind an Event.
type Kind string

const (
	KindPartialPayment  Kind = "partial_payment"
	KindDepositDetected Kind = "deposit_detected"
	KindConfirmed       Kind = "confirmed"
	KindPayoutNeeded    Kind = "payout_needed"
	KindCompleted       Kind = "completed"
	KindCancelled       Kind = "cancelled"
	KindFailed          Kind = "failed"
	KindFailedAlert     Kind = "failed_alert"
	KindRefunded        Kind = "refunded"
)

// Audience selects the recipient of an Event's notification.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// Event is a side effect derived from a specific applied transition,
// consumed exactly once by the notification dispatcher. Not persisted.
type Event struct {
	ID            string
	TransactionID string
	From          State
	To            State
	Kind          Kind
	Audience      Audience
	Payload       map[string]string
}
