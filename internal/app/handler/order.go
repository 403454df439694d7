package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/storage"
)

// OrderHandler is the shim the external ordering flow calls to register a
// new exchange order, plus the public read.
type OrderHandler struct {
	transactions storage.TransactionRepository
}

func NewOrderHandler(transactions storage.TransactionRepository) *OrderHandler {
	return &OrderHandler{
		transactions: transactions,
	}
}

type createOrderRequest struct {
	UserRef               string          `json:"user_ref" validate:"required"`
	PaymentID             string          `json:"payment_id"`
	PriceAmount           decimal.Decimal `json:"price_amount" validate:"required"`
	PriceCurrency         string          `json:"price_currency" validate:"required,uppercase"`
	PayAmount             decimal.Decimal `json:"pay_amount"`
	PayCurrency           string          `json:"pay_currency" validate:"required,uppercase"`
	RequiredConfirmations int             `json:"required_confirmations" validate:"required,min=1"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Order.Create")
	l.Debug().Send()

	var in createOrderRequest
	if err := readBody(r, &in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteError(w, apperr.ErrInvalidInput, http.StatusBadRequest)
		return
	}
	if !validateData(w, &in) {
		return
	}

	m, err := h.transactions.Create(ctx, &model.Transaction{
		ID:                    uuid.New(),
		PaymentID:             in.PaymentID,
		UserRef:               in.UserRef,
		State:                 model.StatePending,
		RequiredConfirmations: in.RequiredConfirmations,
		PriceAmount:           in.PriceAmount,
		PriceCurrency:         in.PriceCurrency,
		PayAmount:             in.PayAmount,
		PayCurrency:           in.PayCurrency,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			l.Debug().Err(err).Msg("Validation error")
			WriteError(w, err, http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, apperr.ErrConflict) {
			l.Debug().Err(err).Msg("Conflict")
			WriteError(w, err, http.StatusConflict)
			return
		}

		l.Error().Err(err).Msg("Internal error")
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	WriteResponse(w, m, http.StatusCreated)
}

func (h *OrderHandler) Read(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Order.Read")
	l.Debug().Send()

	id, err := uuidOf(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, apperr.ErrInvalidInput, http.StatusBadRequest)
		return
	}

	m, err := h.transactions.Read(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			WriteError(w, err, http.StatusNotFound)
			return
		}
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	WriteResponse(w, m, http.StatusOK)
}

func uuidOf(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
