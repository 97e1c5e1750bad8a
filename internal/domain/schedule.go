package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// DefaultScheduleName names the schedule used when a payment does not choose one
const DefaultScheduleName = "default"

// PayeeSchedule is the authority's own fee payees for one currency plus the
// rules externally supplied payees must satisfy to join a transaction.
type PayeeSchedule struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Currency string      `json:"currency"`
	Payees   []Payee     `json:"payees"`
	Rules    []PayeeRule `json:"rules,omitempty"`
}

// Validate ensures the schedule adheres to domain rules
func (s *PayeeSchedule) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("payee schedule name cannot be empty")
	}

	if s.Currency == "" {
		return errors.New("payee schedule currency cannot be empty")
	}

	for i := range s.Payees {
		if s.Payees[i].Currency != s.Currency {
			return NewError(KindInvalidPayee, "payees", "schedule payee currency must match schedule currency")
		}

		if err := s.Payees[i].Validate(fieldIndex("payees", i)); err != nil {
			return err
		}
	}

	return nil
}
