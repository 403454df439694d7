package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"paybridge/internal/app/handler"
	mw "paybridge/internal/app/middleware"
)

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.RequestID)
	r.Use(mw.Log(a.logger))

	wh := handler.NewWebhookHandler(a.verifier, a.engine, a.dispatcher, a.transactions)
	oh := handler.NewOrderHandler(a.transactions)
	ah := handler.NewAdminHandler(a.transactions, a.poller)
	hh := handler.NewHealthHandler(a.db, a.engine, a.poller)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ipn", wh.Ingest)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", oh.Create)
			r.Get("/{id}", oh.Read)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.Auth(a.config.SecretKey))
			r.Get("/orders", ah.List)
			r.Post("/poll", ah.Poll)
		})
	})

	r.Method(http.MethodGet, "/healthz", hh)

	return r
}
