package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/ipn"
	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/notify"
	"paybridge/internal/app/service/reconcile"
	"paybridge/internal/app/storage"
)

const signatureHeader = "X-Ipn-Signature"

// WebhookHandler ingests pushed status reports from the gateway.
//
// Response policy: 200 for every durable outcome (applied, stale,
// malformed, unmapped status, unknown order, payment-id mismatch) so the
// gateway stops redelivering; 403 for a bad signature; 503 only for
// transient local failures, which the gateway answers with a retry.
type WebhookHandler struct {
	verifier     *ipn.Verifier
	engine       *reconcile.Service
	dispatcher   *notify.Dispatcher
	transactions storage.TransactionRepository
}

func NewWebhookHandler(
	verifier *ipn.Verifier,
	engine *reconcile.Service,
	dispatcher *notify.Dispatcher,
	transactions storage.TransactionRepository,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		engine:       engine,
		dispatcher:   dispatcher,
		transactions: transactions,
	}
}

func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Webhook.Ingest")
	l.Debug().Send()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		l.Warn().Err(err).Msg("Body read failed")
		w.WriteHeader(http.StatusOK)
		return
	}

	var p ipn.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		l.Warn().Err(err).Msg("Malformed webhook payload, acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.verifier.Verify(&p, r.Header.Get(signatureHeader)); err != nil {
		l.Warn().Str("order_id", p.OrderID).Msg("Webhook signature rejected")
		WriteError(w, apperr.ErrUnauthorized, http.StatusForbidden)
		return
	}

	if p.OrderID == "" && p.PaymentID != "" {
		// some gateways omit the order reference on later reports;
		// fall back to the recorded payment id
		if tx, err := h.transactions.ReadByPaymentID(ctx, p.PaymentID); err == nil {
			p.OrderID = tx.ID.String()
		}
	}

	if p.OrderID == "" || p.PaymentStatus == "" || p.PaymentID == "" {
		l.Warn().Str("order_id", p.OrderID).Msg("Incomplete webhook payload, acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	}

	ev := p.StatusEvent()
	events, err := h.engine.Reconcile(ctx, ev)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnmappedStatus),
			errors.Is(err, apperr.ErrPaymentIDMismatch),
			errors.Is(err, apperr.ErrNotFound),
			errors.Is(err, apperr.ErrInvalidInput):
			// durable: redelivery can never succeed
			l.Warn().Err(err).Str("order_id", p.OrderID).Msg("Webhook rejected, acknowledged")
			w.WriteHeader(http.StatusOK)
			return
		default:
			l.Error().Err(err).Str("order_id", p.OrderID).Msg("Transient reconcile failure, asking for redelivery")
			WriteError(w, err, http.StatusServiceUnavailable)
			return
		}
	}

	if len(events) > 0 {
		h.notifyApplied(r, l, events)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) notifyApplied(r *http.Request, l logger.Logger, events []model.Event) {
	ctx := r.Context()

	id, err := uuidOf(events[0].TransactionID)
	if err != nil {
		l.Error().Err(err).Msg("Bad transaction id on event")
		return
	}

	tx, err := h.transactions.Read(ctx, id)
	if err != nil {
		l.Error().Err(err).Msg("Post-transition read failed, notifications dropped")
		return
	}

	h.dispatcher.Dispatch(ctx, tx, events)
}
