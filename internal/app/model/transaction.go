package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a crypto-to-fiat exchange order tracked from creation
// through settlement. Mutated exclusively by the reconciliation engine
// under the optimistic Version check.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	PaymentID string    `json:"payment_id,omitempty"`
	UserRef   string    `json:"-"`

	State                 State `json:"state"`
	Confirmations         int   `json:"confirmations"`
	RequiredConfirmations int   `json:"required_confirmations"`

	PriceAmount    decimal.Decimal     `json:"price_amount"`
	PriceCurrency  string              `json:"price_currency"`
	PayAmount      decimal.Decimal     `json:"pay_amount"`
	PayCurrency    string              `json:"pay_currency"`
	ObservedAmount decimal.NullDecimal `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Version int64 `json:"-"`
}

// MarshalJSON implements the json.Marshaler interface.
func (t Transaction) MarshalJSON() ([]byte, error) {
	o := struct {
		ID                    uuid.UUID  `json:"id"`
		PaymentID             string     `json:"payment_id,omitempty"`
		State                 State      `json:"state"`
		Confirmations         int        `json:"confirmations"`
		RequiredConfirmations int        `json:"required_confirmations"`
		PriceAmount           string     `json:"price_amount"`
		PriceCurrency         string     `json:"price_currency"`
		PayAmount             string     `json:"pay_amount"`
		PayCurrency           string     `json:"pay_currency"`
		ObservedAmount        string     `json:"observed_amount,omitempty"`
		CreatedAt             time.Time  `json:"created_at"`
		UpdatedAt             time.Time  `json:"updated_at"`
		CompletedAt           *time.Time `json:"completed_at,omitempty"`
	}{
		ID:                    t.ID,
		PaymentID:             t.PaymentID,
		State:                 t.State,
		Confirmations:         t.Confirmations,
		RequiredConfirmations: t.RequiredConfirmations,
		PriceAmount:           t.PriceAmount.String(),
		PriceCurrency:         t.PriceCurrency,
		PayAmount:             t.PayAmount.String(),
		PayCurrency:           t.PayCurrency,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		CompletedAt:           t.CompletedAt,
	}
	if t.ObservedAmount.Valid {
		o.ObservedAmount = t.ObservedAmount.Decimal.String()
	}

	return json.Marshal(o)
}

// OpenStates are the states in which a gateway update is still expected;
// the polling loop enumerates these.
func OpenStates() []State {
	return []State{StatePending, StateProcessing, StateConfirming}
}
