package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/model"
	"paybridge/internal/app/storage"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository keeps transactions in process memory with the same
// compare-and-swap semantics as the postgres implementation. Used in dev
// mode and by tests.
type TransactionRepository struct {
	mu sync.RWMutex
	db map[uuid.UUID]model.Transaction
}

func (r *TransactionRepository) LoggerComponent() string {
	return "MemoryTransactionRepository"
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		db: make(map[uuid.UUID]model.Transaction),
	}
}

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(_ context.Context, m *model.Transaction) (*model.Transaction, error) {
	if m.UserRef == "" || m.PriceCurrency == "" || m.PayCurrency == "" || m.RequiredConfirmations <= 0 {
		return nil, apperr.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.db[m.ID]; ok {
		return nil, apperr.ErrConflict
	}
	if m.PaymentID != "" {
		for _, e := range r.db {
			if e.PaymentID == m.PaymentID {
				return nil, apperr.ErrConflict
			}
		}
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Version = 1
	r.db[m.ID] = *m

	cp := *m
	return &cp, nil
}

// Read implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Read(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.db[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	cp := m
	return &cp, nil
}

// ReadByPaymentID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ReadByPaymentID(_ context.Context, paymentID string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.db {
		if m.PaymentID != "" && m.PaymentID == paymentID {
			cp := m
			return &cp, nil
		}
	}

	return nil, apperr.ErrNotFound
}

// ListByStates implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ListByStates(_ context.Context, states []model.State) ([]*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[model.State]struct{}, len(states))
	for _, s := range states {
		want[s] = struct{}{}
	}

	mm := make([]*model.Transaction, 0)
	for _, m := range r.db {
		if _, ok := want[m.State]; ok {
			cp := m
			mm = append(mm, &cp)
		}
	}

	return mm, nil
}

// CompareAndSwap implementation of interface storage.TransactionRepository
func (r *TransactionRepository) CompareAndSwap(_ context.Context, expectedVersion int64, m *model.Transaction) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.db[m.ID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return nil, apperr.ErrVersionConflict
	}

	m.Version = cur.Version + 1
	m.UpdatedAt = time.Now()
	r.db[m.ID] = *m

	cp := *m
	return &cp, nil
}
