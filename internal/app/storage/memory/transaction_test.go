package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/model"
)

func sample() *model.Transaction {
	return &model.Transaction{
		ID:                    uuid.New(),
		PaymentID:             "pay-1",
		UserRef:               "chat-42",
		State:                 model.StatePending,
		RequiredConfirmations: 3,
		PriceAmount:           decimal.NewFromInt(100),
		PriceCurrency:         "EUR",
		PayAmount:             decimal.NewFromFloat(0.0025),
		PayCurrency:           "BTC",
	}
}

func TestCreateAndRead(t *testing.T) {
	ctx := context.Background()
	r := NewTransactionRepository()

	m, err := r.Create(ctx, sample())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("version = %d, want 1", m.Version)
	}

	got, err := r.Read(ctx, m.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.State != model.StatePending {
		t.Errorf("state = %s", got.State)
	}

	byPayment, err := r.ReadByPaymentID(ctx, "pay-1")
	if err != nil {
		t.Fatalf("read by payment id: %v", err)
	}
	if byPayment.ID != m.ID {
		t.Errorf("wrong record by payment id")
	}

	if _, err := r.Read(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestCreateConflicts(t *testing.T) {
	ctx := context.Background()
	r := NewTransactionRepository()

	m, err := r.Create(ctx, sample())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("duplicate id", func(t *testing.T) {
		dup := sample()
		dup.ID = m.ID
		if _, err := r.Create(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("want ErrConflict, got %v", err)
		}
	})

	t.Run("duplicate payment id", func(t *testing.T) {
		dup := sample()
		if _, err := r.Create(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("want ErrConflict, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		bad := sample()
		bad.UserRef = ""
		if _, err := r.Create(ctx, bad); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("want ErrInvalidInput, got %v", err)
		}
	})
}

func TestCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	r := NewTransactionRepository()

	m, err := r.Create(ctx, sample())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("version matches", func(t *testing.T) {
		m.State = model.StateConfirming
		m.Confirmations = 1
		got, err := r.CompareAndSwap(ctx, 1, m)
		if err != nil {
			t.Fatalf("cas: %v", err)
		}
		if got.Version != 2 {
			t.Errorf("version = %d, want 2", got.Version)
		}
	})

	t.Run("stale version rejected", func(t *testing.T) {
		m.State = model.StateConfirmed
		if _, err := r.CompareAndSwap(ctx, 1, m); !errors.Is(err, apperr.ErrVersionConflict) {
			t.Errorf("want ErrVersionConflict, got %v", err)
		}

		cur, _ := r.Read(ctx, m.ID)
		if cur.State != model.StateConfirming {
			t.Errorf("losing write mutated the record: %s", cur.State)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		ghost := sample()
		ghost.ID = uuid.New()
		if _, err := r.CompareAndSwap(ctx, 1, ghost); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
	})
}

func TestListByStates(t *testing.T) {
	ctx := context.Background()
	r := NewTransactionRepository()

	a := sample()
	a.PaymentID = "pay-a"
	b := sample()
	b.PaymentID = "pay-b"

	if _, err := r.Create(ctx, a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	created, err := r.Create(ctx, b)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	created.State = model.StateCompleted
	if _, err := r.CompareAndSwap(ctx, created.Version, created); err != nil {
		t.Fatalf("cas: %v", err)
	}

	open, err := r.ListByStates(ctx, model.OpenStates())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 || open[0].ID != a.ID {
		t.Errorf("open listing wrong: %+v", open)
	}

	completed, err := r.ListByStates(ctx, []model.State{model.StateCompleted})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Errorf("completed listing wrong: %+v", completed)
	}
}
