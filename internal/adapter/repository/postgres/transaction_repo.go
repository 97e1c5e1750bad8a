package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/money"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db  *DB
	ctx money.Context
}

// NewTransactionRepository creates a new transaction repository.
// Amounts read back are bound to the given money context.
func NewTransactionRepository(db *DB, moneyCtx money.Context) domain.TransactionRepository {
	return &transactionRepository{db: db, ctx: moneyCtx}
}

// Create creates a new transaction with all its transfers in a database transaction
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertTxQuery := `
		INSERT INTO transactions (id, description, date, source, currency, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = dbTx.ExecContext(ctx, insertTxQuery,
		tx.ID,
		tx.Description,
		tx.Date,
		tx.Source,
		tx.Currency,
		tx.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	insertTransferQuery := `
		INSERT INTO transfers (transaction_id, position, source, destination, amount, currency, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, t := range tx.Transfers {
		_, err = dbTx.ExecContext(ctx, insertTransferQuery,
			tx.ID,
			i,
			t.Source,
			t.Destination,
			t.Amount.String(),
			t.Currency,
			t.Comment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transfer %d: %w", i, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction and its transfers in their original order
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txQuery := `
		SELECT id, description, date, source, currency, amount
		FROM transactions
		WHERE id = $1
	`

	var tx domain.Transaction
	var amountStr string
	err := r.db.QueryRowContext(ctx, txQuery, id).Scan(
		&tx.ID,
		&tx.Description,
		&tx.Date,
		&tx.Source,
		&tx.Currency,
		&amountStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if tx.Amount, err = r.ctx.Parse(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
	}

	transfersQuery := `
		SELECT source, destination, amount, currency, comment
		FROM transfers
		WHERE transaction_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, transfersQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := domain.Transfer{Type: domain.TransferType}
		var transferAmount string

		if err := rows.Scan(&t.Source, &t.Destination, &transferAmount, &t.Currency, &t.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}

		if t.Amount, err = r.ctx.Parse(transferAmount); err != nil {
			return nil, fmt.Errorf("failed to parse transfer amount: %w", err)
		}

		tx.Transfers = append(tx.Transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}

	return &tx, nil
}
