package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"paybridge/internal/app/model"
	"paybridge/internal/app/storage/memory"
)

func orderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/orders", h.Create)
	r.Get("/api/orders/{id}", h.Read)
	return r
}

func TestOrderCreate(t *testing.T) {
	repo := memory.NewTransactionRepository()
	router := orderRouter(NewOrderHandler(repo))

	t.Run("created", func(t *testing.T) {
		body := []byte(`{
			"user_ref": "chat-42",
			"price_amount": "100",
			"price_currency": "EUR",
			"pay_amount": "0.0025",
			"pay_currency": "BTC",
			"required_confirmations": 3
		}`)
		r := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
		}

		var out struct {
			ID    string      `json:"id"`
			State model.State `json:"state"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("response decode: %v", err)
		}
		if out.State != model.StatePending {
			t.Errorf("state = %s, want pending", out.State)
		}

		id, err := uuid.Parse(out.ID)
		if err != nil {
			t.Fatalf("bad id in response: %v", err)
		}
		if _, err := repo.Read(context.Background(), id); err != nil {
			t.Errorf("created order not readable: %v", err)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		body := []byte(`{"user_ref": "", "price_currency": "eur"}`)
		r := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestOrderRead(t *testing.T) {
	repo := memory.NewTransactionRepository()
	router := orderRouter(NewOrderHandler(repo))
	tx := createTx(t, repo)

	t.Run("found", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders/"+tx.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
