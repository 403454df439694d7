package gateway

import (
	"paybridge/internal/app/apperr"
	"paybridge/internal/app/model"
)

// Status vocabulary reported by the gateway, in webhook payloads and in
// GetPayment responses alike.
const (
	StatusWaiting       = "waiting"
	StatusPartiallyPaid = "partially_paid"
	StatusConfirming    = "confirming"
	StatusConfirmed     = "confirmed"
	StatusSending       = "sending"
	StatusFinished      = "finished"
	StatusFailed        = "failed"
	StatusExpired       = "expired"
	StatusRefunded      = "refunded"
)

var statusMap = map[string]model.State{
	StatusWaiting:       model.StatePending,
	StatusPartiallyPaid: model.StateProcessing,
	StatusConfirming:    model.StateConfirming,
	StatusConfirmed:     model.StateConfirmed,
	StatusSending:       model.StateConfirmed,
	StatusFinished:      model.StateCompleted,
	StatusFailed:        model.StateFailed,
	StatusExpired:       model.StateCancelled,
	StatusRefunded:      model.StateRefunded,
}

// MapStatus translates a gateway status string to the internal state.
// Unknown strings return apperr.ErrUnmappedStatus and must not be applied.
func MapStatus(raw string) (model.State, error) {
	s, ok := statusMap[raw]
	if !ok {
		return "", apperr.ErrUnmappedStatus
	}
	return s, nil
}

// EstimateConfirmations gives a conservative confirmation count for
// statuses where the gateway does not report an exact number: a confirmed
// payment has all required confirmations, a confirming one is assumed
// halfway (at least one).
func EstimateConfirmations(raw string, required int) int {
	st, err := MapStatus(raw)
	if err != nil {
		return 0
	}

	switch {
	case st.Rank() >= model.StateConfirmed.Rank():
		return required
	case st == model.StateConfirming:
		n := required / 2
		if n < 1 {
			n = 1
		}
		return n
	}

	return 0
}
