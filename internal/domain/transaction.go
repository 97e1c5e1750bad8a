package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/payswarm-backend/internal/money"
)

// TransferType is the fixed type tag carried by every transfer
const TransferType = "Transfer"

// Transfer is one resolved money movement from a source to a payee destination
type Transfer struct {
	Type        string      `json:"type" yaml:"type"`
	Source      string      `json:"source" yaml:"source"`
	Destination string      `json:"destination" yaml:"destination"`
	Amount      money.Money `json:"amount" yaml:"amount"`
	Currency    string      `json:"currency" yaml:"currency"`
	Comment     string      `json:"comment" yaml:"comment"`
}

// Transaction is the document transfers are written onto.
// Currency must be set before resolution; Amount and Transfers are owned by the transfer engine.
type Transaction struct {
	ID          uuid.UUID   `json:"id" yaml:"id"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Date        time.Time   `json:"date" yaml:"date"`
	Source      string      `json:"source" yaml:"source"`
	Currency    string      `json:"currency" yaml:"currency"`
	Amount      money.Money `json:"amount" yaml:"amount"`
	Transfers   []Transfer  `json:"transfer" yaml:"transfer"`
}

// Validate ensures the transaction adheres to domain rules
// CRITICAL: the sum of transfer amounts must equal the transaction amount exactly
func (t *Transaction) Validate() error {
	if t.Currency == "" {
		return NewError(KindInvalidTransaction, "currency", "transaction currency is required")
	}

	if t.Amount.IsNegative() {
		return errors.New("transaction amount must not be negative")
	}

	total := t.Amount.Context().Zero()
	for i, transfer := range t.Transfers {
		if transfer.Type != TransferType {
			return fmt.Errorf("transfer %d has invalid type %q", i, transfer.Type)
		}

		if transfer.Currency != t.Currency {
			return NewError(KindInvalidTransaction, fmt.Sprintf("transfer[%d].currency", i),
				"transfer currency must match transaction currency")
		}

		if transfer.Amount.IsNegative() {
			return fmt.Errorf("transfer %d amount must not be negative", i)
		}

		total = total.Add(transfer.Amount)
	}

	if !total.Equal(t.Amount) {
		return fmt.Errorf("sum of transfers %s does not equal transaction amount %s", total, t.Amount)
	}

	return nil
}
