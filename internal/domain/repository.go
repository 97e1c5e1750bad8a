package domain

import (
	"context"

	"github.com/google/uuid"
)

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// Create stores a transaction together with its transfers
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction and its transfers
	// Returns ErrTransactionNotFound if no such transaction exists
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
}

// PayeeScheduleRepository defines the interface for payee schedule persistence operations
type PayeeScheduleRepository interface {
	// GetByName retrieves a schedule by its unique name
	// Returns ErrScheduleNotFound if no such schedule exists
	GetByName(ctx context.Context, name string) (*PayeeSchedule, error)

	// Save creates or replaces a schedule
	Save(ctx context.Context, schedule *PayeeSchedule) error
}
