package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/model"
	"paybridge/internal/app/storage"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

type TransactionRepository struct {
	db *sql.DB
}

func (r *TransactionRepository) LoggerComponent() string {
	return "TransactionRepository"
}

func NewTransactionRepository(db *sql.DB) (*TransactionRepository, error) {
	s := &TransactionRepository{
		db: db,
	}
	return s, nil
}

const txColumns = `id, payment_id, user_ref, state, confirmations, required_confirmations,
		price_amount, price_currency, pay_amount, pay_currency, observed_amount,
		created_at, updated_at, completed_at, version`

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(ctx context.Context, m *model.Transaction) (*model.Transaction, error) {
	if m.UserRef == "" || m.PriceCurrency == "" || m.PayCurrency == "" || m.RequiredConfirmations <= 0 {
		return nil, apperr.ErrInvalidInput
	}

	const SQL = `
		INSERT INTO transactions
			(id, payment_id, user_ref, state, required_confirmations,
			 price_amount, price_currency, pay_amount, pay_currency)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at, version
`
	err := r.db.QueryRowContext(ctx, SQL,
		m.ID, m.PaymentID, m.UserRef, m.State, m.RequiredConfirmations,
		m.PriceAmount, m.PriceCurrency, m.PayAmount, m.PayCurrency,
	).Scan(&m.CreatedAt, &m.UpdatedAt, &m.Version)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok {
			if pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
				return nil, apperr.ErrConflict
			}
		}

		return nil, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}

// Read implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Read(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	const SQL = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE id=$1
`
	return r.scanOne(r.db.QueryRowContext(ctx, SQL, id))
}

// ReadByPaymentID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ReadByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error) {
	const SQL = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE payment_id=$1
`
	return r.scanOne(r.db.QueryRowContext(ctx, SQL, paymentID))
}

// ListByStates implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ListByStates(ctx context.Context, states []model.State) ([]*model.Transaction, error) {
	const SQL = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE state = ANY($1)
		ORDER BY created_at
`
	ss := make([]string, 0, len(states))
	for _, s := range states {
		ss = append(ss, string(s))
	}

	rows, err := r.db.QueryContext(ctx, SQL, pg.Array(ss))
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	mm := make([]*model.Transaction, 0)
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		mm = append(mm, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return mm, nil
}

// CompareAndSwap implementation of interface storage.TransactionRepository
func (r *TransactionRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, m *model.Transaction) (*model.Transaction, error) {
	const SQL = `
		UPDATE transactions
		SET payment_id=NULLIF($1, ''), state=$2, confirmations=$3,
			observed_amount=$4, completed_at=$5, updated_at=now(), version=version+1
		WHERE id=$6 AND version=$7
		RETURNING updated_at, version
`
	err := r.db.QueryRowContext(ctx, SQL,
		m.PaymentID, m.State, m.Confirmations,
		m.ObservedAmount, m.CompletedAt, m.ID, expectedVersion,
	).Scan(&m.UpdatedAt, &m.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrVersionConflict
		}
		return nil, fmt.Errorf("update: %w", err)
	}

	return m, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *TransactionRepository) scanOne(row *sql.Row) (*model.Transaction, error) {
	m, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *TransactionRepository) scan(row scanner) (*model.Transaction, error) {
	m := &model.Transaction{}
	var (
		paymentID   sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&m.ID, &paymentID, &m.UserRef, &m.State, &m.Confirmations, &m.RequiredConfirmations,
		&m.PriceAmount, &m.PriceCurrency, &m.PayAmount, &m.PayCurrency, &m.ObservedAmount,
		&m.CreatedAt, &m.UpdatedAt, &completedAt, &m.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	if paymentID.Valid {
		m.PaymentID = paymentID.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}

	return m, nil
}
