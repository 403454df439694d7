package ipn

import (
	"strings"

	"github.com/shopspring/decimal"

	"paybridge/internal/app/model"
)

// Payload is the webhook body pushed by the gateway. OrderID carries the
// internal transaction id; the order creator sets it when registering the
// payment with the gateway.
type Payload struct {
	PaymentID     string              `json:"payment_id" validate:"required"`
	PaymentStatus string              `json:"payment_status" validate:"required"`
	OrderID       string              `json:"order_id" validate:"required"`
	PriceAmount   decimal.Decimal     `json:"price_amount"`
	PriceCurrency string              `json:"price_currency"`
	PayAmount     decimal.Decimal     `json:"pay_amount"`
	PayCurrency   string              `json:"pay_currency"`
	ActuallyPaid  decimal.NullDecimal `json:"actually_paid,omitempty"`
	Confirmations int                 `json:"confirmations,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
	UpdatedAt     string              `json:"updated_at,omitempty"`
}

// canonical is the ordered field concatenation the signature covers.
func (p *Payload) canonical() string {
	return strings.Join([]string{
		p.PriceAmount.String(),
		p.PayAmount.String(),
		p.PriceCurrency,
		p.PayCurrency,
		p.OrderID,
		p.CreatedAt,
		p.UpdatedAt,
	}, "|")
}

// StatusEvent converts the payload to the engine's input.
func (p *Payload) StatusEvent() model.StatusEvent {
	return model.StatusEvent{
		TransactionID: p.OrderID,
		PaymentID:     p.PaymentID,
		RawStatus:     p.PaymentStatus,
		Confirmations: p.Confirmations,
		Amount:        p.ActuallyPaid,
		Source:        model.SourceWebhook,
	}
}
