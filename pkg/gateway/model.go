package gateway

import "github.com/shopspring/decimal"

type GetPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type GetPaymentResponse struct {
	PaymentID     string              `json:"payment_id"`
	PaymentStatus string              `json:"payment_status"`
	OrderID       string              `json:"order_id"`
	PriceAmount   decimal.Decimal     `json:"price_amount"`
	PriceCurrency string              `json:"price_currency"`
	PayAmount     decimal.Decimal     `json:"pay_amount"`
	PayCurrency   string              `json:"pay_currency"`
	ActuallyPaid  decimal.NullDecimal `json:"actually_paid,omitempty"`
	Confirmations int                 `json:"confirmations,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
	UpdatedAt     string              `json:"updated_at,omitempty"`
}
