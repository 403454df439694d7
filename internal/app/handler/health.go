package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"paybridge/internal/app/service/poller"
	"paybridge/internal/app/service/reconcile"
)

// HealthHandler reports liveness plus the reconciliation counters.
type HealthHandler struct {
	db     *sql.DB
	engine *reconcile.Service
	poller *poller.Service
}

func NewHealthHandler(db *sql.DB, engine *reconcile.Service, p *poller.Service) *HealthHandler {
	return &HealthHandler{
		db:     db,
		engine: engine,
		poller: p,
	}
}

type healthResponse struct {
	Status  string       `json:"status"`
	Applied int64        `json:"transitions_applied"`
	Stale   int64        `json:"transitions_rejected"`
	Retries int64        `json:"cas_retries"`
	Poller  poller.Stats `json:"poller"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	applied, stale, retries := h.engine.Counters()
	out := healthResponse{
		Status:  "ok",
		Applied: applied,
		Stale:   stale,
		Retries: retries,
		Poller:  h.poller.Stats(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			out.Status = "database_unreachable"
			WriteResponse(w, out, http.StatusServiceUnavailable)
			return
		}
	}

	WriteResponse(w, out, http.StatusOK)
}
