package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/metrics"
	"github.com/simaogato/payswarm-backend/internal/usecase/transfer"
)

// QuoteInput represents the input for quoting or processing a payment
type QuoteInput struct {
	Currency    string
	SourceID    string
	Description string

	// Payees supplied by the caller (vendor listing, asset fees...).
	// They may not use reserved groups and must satisfy the schedule's rules.
	Payees []domain.Payee

	// Schedule names the authority payee schedule to append; empty means domain.DefaultScheduleName
	Schedule string
}

// Recorder receives resolution outcomes
type Recorder interface {
	ObserveResolution(outcome string, transfers int, d time.Duration)
}

// PaymentService builds transactions from payee lists and persists them
type PaymentService struct {
	TransactionRepo domain.TransactionRepository
	ScheduleRepo    domain.PayeeScheduleRepository
	Engine          *transfer.Engine
	Recorder        Recorder
	Logger          *zap.Logger

	now func() time.Time
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(
	transactionRepo domain.TransactionRepository,
	scheduleRepo domain.PayeeScheduleRepository,
	engine *transfer.Engine,
	recorder Recorder,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PaymentService{
		TransactionRepo: transactionRepo,
		ScheduleRepo:    scheduleRepo,
		Engine:          engine,
		Recorder:        recorder,
		Logger:          logger,
		now:             time.Now,
	}
}

// Quote resolves a payment into an unsaved transaction
// Logic:
//  1. Reject caller payees that use reserved groups
//  2. Load the payee schedule and check every caller payee against its rules
//  3. Append the schedule payees after the caller payees
//  4. Resolve all payees into transfers
func (s *PaymentService) Quote(ctx context.Context, input QuoteInput) (*domain.Transaction, error) {
	if strings.TrimSpace(input.SourceID) == "" {
		return nil, domain.NewError(domain.KindInvalidTransaction, "source", "payment source is required")
	}

	if err := domain.CheckPayeeGroups(input.Payees); err != nil {
		return nil, err
	}

	name := input.Schedule
	if name == "" {
		name = domain.DefaultScheduleName
	}

	schedule, err := s.ScheduleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load payee schedule %q: %w", name, err)
	}

	if schedule.Currency != input.Currency {
		return nil, fmt.Errorf("%w: %q has no payees for currency %q", domain.ErrScheduleNotFound, schedule.Name, input.Currency)
	}

	for i, p := range input.Payees {
		if !domain.MatchesAnyPayeeRule(schedule.Rules, p) {
			return nil, domain.NewError(domain.KindInvalidPayee, fmt.Sprintf("payees[%d]", i),
				fmt.Sprintf("payee %q is not permitted by payee schedule %q", p.Destination, schedule.Name))
		}
	}

	payees := make([]domain.Payee, 0, len(input.Payees)+len(schedule.Payees))
	payees = append(payees, input.Payees...)
	payees = append(payees, schedule.Payees...)

	tx := &domain.Transaction{
		ID:          uuid.New(),
		Description: input.Description,
		Date:        s.now().UTC(),
		Source:      input.SourceID,
		Currency:    input.Currency,
	}

	start := time.Now()
	err = s.Engine.CreateTransfers(tx, input.SourceID, payees)
	s.observe(err, len(tx.Transfers), time.Since(start))
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// ProcessPayment quotes the payment, checks the result balances and saves it
func (s *PaymentService) ProcessPayment(ctx context.Context, input QuoteInput) (*domain.Transaction, error) {
	tx, err := s.Quote(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Validate(); err != nil {
		s.Logger.Error("generated transaction failed validation",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.Logger.Info("payment processed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("source", tx.Source),
		zap.String("amount", tx.Amount.String()),
		zap.String("currency", tx.Currency),
		zap.Int("transfers", len(tx.Transfers)),
	)

	return tx, nil
}

// GetTransaction returns a saved transaction
func (s *PaymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if id == uuid.Nil {
		return nil, domain.ErrTransactionNotFound
	}

	return s.TransactionRepo.GetByID(ctx, id)
}

func (s *PaymentService) observe(err error, transfers int, d time.Duration) {
	if s.Recorder == nil {
		return
	}

	outcome := metrics.OutcomeOK
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		outcome = string(domainErr.Kind)
	} else if err != nil {
		outcome = "error"
	}

	s.Recorder.ObserveResolution(outcome, transfers, d)
}
