package handler

import (
	"context"
	"net/http"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/service/poller"
	"paybridge/internal/app/storage"
)

// AdminHandler serves the operator surface: open-order listing and a
// manual poll trigger. Mounted behind the admin JWT middleware.
type AdminHandler struct {
	transactions storage.TransactionRepository
	poller       *poller.Service
}

func NewAdminHandler(transactions storage.TransactionRepository, p *poller.Service) *AdminHandler {
	return &AdminHandler{
		transactions: transactions,
		poller:       p,
	}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Admin.List")
	l.Debug().Send()

	states := model.OpenStates()
	if q := r.URL.Query().Get("state"); q != "" {
		s := model.State(q)
		if !s.Valid() {
			WriteError(w, apperr.ErrInvalidInput, http.StatusBadRequest)
			return
		}
		states = []model.State{s}
	}

	mm, err := h.transactions.ListByStates(ctx, states)
	if err != nil {
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	if len(mm) == 0 {
		WriteResponse(w, []struct{}{}, http.StatusOK)
		return
	}

	WriteResponse(w, mm, http.StatusOK)
}

func (h *AdminHandler) Poll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Admin.Poll")
	l.Debug().Send()

	// detached from the request: the tick outlives the response
	go h.poller.Tick(context.Background())

	w.WriteHeader(http.StatusAccepted)
}
