//go:generate mockgen -source=./interface.go -destination=./mock/storage.go -package=storagemock
package storage

import (
	"context"

	"github.com/google/uuid"

	"paybridge/internal/app/model"
)

type TransactionRepository interface {
	// Create a new model.Transaction
	Create(ctx context.Context, m *model.Transaction) (*model.Transaction, error)
	// Read instance of model.Transaction
	Read(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// ReadByPaymentID instance of model.Transaction
	ReadByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error)
	// ListByStates returns all transactions currently in any of the states
	ListByStates(ctx context.Context, states []model.State) ([]*model.Transaction, error)
	// CompareAndSwap writes m only if the stored version equals
	// expectedVersion, bumping m.Version and m.UpdatedAt on success.
	// Returns apperr.ErrVersionConflict when the check fails.
	CompareAndSwap(ctx context.Context, expectedVersion int64, m *model.Transaction) (*model.Transaction, error)
}
