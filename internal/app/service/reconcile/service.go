package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/storage"
	"paybridge/pkg/gateway"
)

const defaultMaxAttempts = 3

// Service is the reconciliation engine: the single component allowed to
// mutate transaction state. Both delivery channels feed it StatusEvents;
// it admits only forward transitions and derives notification events from
// the specific transition that occurred.
type Service struct {
	logger       logger.Logger
	transactions storage.TransactionRepository
	maxAttempts  int

	wg      sync.WaitGroup
	closed  int32
	applied int64
	stale   int64
	retries int64
}

func (s *Service) LoggerComponent() string {
	return "Reconcile.Service"
}

func New(transactions storage.TransactionRepository, opts ...Option) *Service {
	s := &Service{
		logger:       logger.Global().WithComponent("Reconcile.Service"),
		transactions: transactions,
		maxAttempts:  defaultMaxAttempts,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l.WithComponent("Reconcile.Service")
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		s.maxAttempts = n
	}
}

// Stop refuses new reconciles and waits for in-flight ones to finish.
func (s *Service) Stop() {
	atomic.StoreInt32(&s.closed, 1)
	s.wg.Wait()
	s.logger.Debug().Msg("Service shutdown")
}

// Counters reports applied transitions, stale no-ops and CAS retries since
// start, for the health surface.
func (s *Service) Counters() (applied, stale, retries int64) {
	return atomic.LoadInt64(&s.applied), atomic.LoadInt64(&s.stale), atomic.LoadInt64(&s.retries)
}

// Reconcile merges one status report into the transaction it references.
//
// Outcomes:
//   - applied: state advanced, returns the derived events;
//   - no-op: nil events, nil error (duplicate, out-of-order, terminal,
//     or a same-state report carrying nothing new);
//   - apperr.ErrPaymentIDMismatch, apperr.ErrUnmappedStatus,
//     apperr.ErrNotFound: durable rejections, transaction untouched;
//   - apperr.ErrVersionConflict (after bounded retries), store errors,
//     apperr.ErrShuttingDown: transient, caller should retry later.
func (s *Service) Reconcile(ctx context.Context, ev model.StatusEvent) ([]model.Event, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, apperr.ErrShuttingDown
	}
	s.wg.Add(1)
	defer s.wg.Done()

	l := logger.Logger{Logger: s.logger.With().
		Str("transaction_id", ev.TransactionID).
		Str("raw_status", ev.RawStatus).
		Str("source", string(ev.Source)).
		Logger()}

	id, err := uuid.Parse(ev.TransactionID)
	if err != nil {
		l.Warn().Err(err).Msg("Bad transaction id in status report")
		return nil, fmt.Errorf("transaction id: %w", apperr.ErrInvalidInput)
	}

	target, err := gateway.MapStatus(ev.RawStatus)
	if err != nil {
		l.Warn().Msg("Unmapped gateway status")
		return nil, err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		events, err := s.attempt(ctx, l, id, target, ev)
		if err == nil {
			return events, nil
		}
		if errors.Is(err, apperr.ErrVersionConflict) {
			atomic.AddInt64(&s.retries, 1)
			l.Debug().Int("attempt", attempt+1).Msg("Version conflict, retrying")
			continue
		}
		return nil, err
	}

	l.Error().Int("attempts", s.maxAttempts).Msg("Version conflict retries exhausted")
	return nil, fmt.Errorf("reconcile %s: %w", ev.TransactionID, apperr.ErrVersionConflict)
}

func (s *Service) attempt(ctx context.Context, l logger.Logger, id uuid.UUID, target model.State, ev model.StatusEvent) ([]model.Event, error) {
	tx, err := s.transactions.Read(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Warn().Msg("Status report for unknown transaction")
		}
		return nil, err
	}

	if tx.PaymentID != "" && ev.PaymentID != "" && tx.PaymentID != ev.PaymentID {
		l.Warn().
			Str("recorded_payment_id", tx.PaymentID).
			Str("reported_payment_id", ev.PaymentID).
			Msg("Payment id mismatch, report dropped")
		return nil, apperr.ErrPaymentIDMismatch
	}

	from := tx.State
	advance := model.CanAdvance(from, target)
	if !advance {
		if !s.refresh(tx, target, ev) {
			atomic.AddInt64(&s.stale, 1)
			l.Debug().
				Str("state", string(from)).
				Str("target", string(target)).
				Msg("Stale status report, no-op")
			return nil, nil
		}
		// same-state report carrying new confirmations or amount:
		// write it back, emit nothing
		if _, err := s.transactions.CompareAndSwap(ctx, tx.Version, tx); err != nil {
			return nil, err
		}
		l.Debug().Int("confirmations", tx.Confirmations).Msg("Progress refreshed")
		return nil, nil
	}

	expected := tx.Version
	s.apply(tx, target, ev)

	if _, err := s.transactions.CompareAndSwap(ctx, expected, tx); err != nil {
		return nil, err
	}

	atomic.AddInt64(&s.applied, 1)
	l.Info().
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("Transition applied")

	return deriveEvents(tx, from, target), nil
}

// refresh merges confirmation and amount progress from a same-state report
// into tx, reporting whether anything changed. Only Confirming accepts
// progress without a state change.
func (s *Service) refresh(tx *model.Transaction, target model.State, ev model.StatusEvent) bool {
	if tx.State != target || tx.State != model.StateConfirming {
		return false
	}

	changed := false
	if c := clampConfirmations(reportedConfirmations(ev, tx.RequiredConfirmations), tx.RequiredConfirmations); c > tx.Confirmations {
		tx.Confirmations = c
		changed = true
	}
	if ev.Amount.Valid && (!tx.ObservedAmount.Valid || !tx.ObservedAmount.Decimal.Equal(ev.Amount.Decimal)) {
		tx.ObservedAmount = ev.Amount
		changed = true
	}

	return changed
}

// apply mutates tx in place for an admitted transition.
func (s *Service) apply(tx *model.Transaction, target model.State, ev model.StatusEvent) {
	tx.State = target

	if tx.PaymentID == "" && ev.PaymentID != "" {
		tx.PaymentID = ev.PaymentID
	}
	if ev.Amount.Valid {
		tx.ObservedAmount = ev.Amount
	}

	switch target {
	case model.StateConfirming, model.StateConfirmed:
		c := clampConfirmations(reportedConfirmations(ev, tx.RequiredConfirmations), tx.RequiredConfirmations)
		if c > tx.Confirmations {
			tx.Confirmations = c
		}
	case model.StateCompleted:
		tx.Confirmations = tx.RequiredConfirmations
		now := time.Now()
		tx.CompletedAt = &now
	}
}

func reportedConfirmations(ev model.StatusEvent, required int) int {
	if ev.Confirmations > 0 {
		return ev.Confirmations
	}
	return gateway.EstimateConfirmations(ev.RawStatus, required)
}

func clampConfirmations(n, required int) int {
	if n < 0 {
		return 0
	}
	if n > required {
		return required
	}
	return n
}

// deriveEvents builds the notification batch for the applied transition.
// Called exactly once per applied transition, never for no-ops, which is
// what keeps delivery effectively exactly-once.
func deriveEvents(tx *model.Transaction, from, to model.State) []model.Event {
	base := func(kind model.Kind, aud model.Audience, payload map[string]string) model.Event {
		return model.Event{
			ID:            xid.New().String(),
			TransactionID: tx.ID.String(),
			From:          from,
			To:            to,
			Kind:          kind,
			Audience:      aud,
			Payload:       payload,
		}
	}

	switch to {
	case model.StateProcessing:
		p := map[string]string{"pay_currency": tx.PayCurrency}
		if tx.ObservedAmount.Valid {
			p["observed_amount"] = tx.ObservedAmount.Decimal.String()
		}
		return []model.Event{base(model.KindPartialPayment, model.AudienceUser, p)}
	case model.StateConfirming:
		return []model.Event{base(model.KindDepositDetected, model.AudienceUser, map[string]string{
			"confirmations":          fmt.Sprintf("%d", tx.Confirmations),
			"required_confirmations": fmt.Sprintf("%d", tx.RequiredConfirmations),
		})}
	case model.StateConfirmed:
		return []model.Event{
			base(model.KindConfirmed, model.AudienceUser, nil),
			base(model.KindPayoutNeeded, model.AudienceAdmin, map[string]string{
				"price_amount":   tx.PriceAmount.String(),
				"price_currency": tx.PriceCurrency,
			}),
		}
	case model.StateCompleted:
		return []model.Event{base(model.KindCompleted, model.AudienceUser, nil)}
	case model.StateCancelled:
		return []model.Event{base(model.KindCancelled, model.AudienceUser, nil)}
	case model.StateFailed:
		return []model.Event{
			base(model.KindFailed, model.AudienceUser, nil),
			base(model.KindFailedAlert, model.AudienceAdmin, map[string]string{
				"from": string(from),
			}),
		}
	case model.StateRefunded:
		return []model.Event{base(model.KindRefunded, model.AudienceUser, nil)}
	}

	return nil
}
