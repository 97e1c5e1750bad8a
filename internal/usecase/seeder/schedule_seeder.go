package seeder

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/payswarm-backend/internal/domain"
)

// DefaultScheduleID is fixed so the seeded schedule keeps its identity across restarts
var DefaultScheduleID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ScheduleSeeder makes sure the authority's default payee schedule exists
type ScheduleSeeder struct {
	repo      domain.PayeeScheduleRepository
	currency  string
	authority string
	logger    *zap.Logger
}

// NewScheduleSeeder creates a new ScheduleSeeder instance
func NewScheduleSeeder(repo domain.PayeeScheduleRepository, currency, authority string, logger *zap.Logger) *ScheduleSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScheduleSeeder{
		repo:      repo,
		currency:  currency,
		authority: authority,
		logger:    logger,
	}
}

// DefaultSchedule is the schedule seeded on first start: a 2% authority fee
// taken on top of every other payee, no less than 0.01, and rules admitting
// flat amounts and percentages of at most 100
func DefaultSchedule(currency, authority string) *domain.PayeeSchedule {
	minimum := decimal.RequireFromString("0.01")
	maxRate := decimal.NewFromInt(100)

	return &domain.PayeeSchedule{
		ID:       DefaultScheduleID,
		Name:     domain.DefaultScheduleName,
		Currency: currency,
		Payees: []domain.Payee{
			{
				Destination:   authority,
				Currency:      currency,
				RateType:      domain.RateTypePercentage,
				ApplyType:     domain.ApplyExclusively,
				Rate:          decimal.NewFromInt(2),
				Group:         []string{"authority"},
				ExemptGroup:   []string{"authority"},
				MinimumAmount: &minimum,
				Comment:       "Payment processing",
			},
		},
		Rules: []domain.PayeeRule{
			{PayeeRateType: []domain.RateType{domain.RateTypeFlat}},
			{PayeeRateType: []domain.RateType{domain.RateTypePercentage}, MaximumPayeeRate: &maxRate},
		},
	}
}

// Seed creates the default schedule if it does not exist.
// An existing schedule is never overwritten, even when its currency no longer
// matches the configured one; that case is logged as a warning.
func (s *ScheduleSeeder) Seed(ctx context.Context) error {
	existing, err := s.repo.GetByName(ctx, domain.DefaultScheduleName)
	if err == nil {
		if existing.Currency != s.currency {
			// quotes in the configured currency will fail with ErrScheduleNotFound
			s.logger.Warn("default payee schedule currency differs from configured currency",
				zap.String("schedule", existing.Name),
				zap.String("schedule_currency", existing.Currency),
				zap.String("configured_currency", s.currency),
			)
			return nil
		}

		s.logger.Debug("payee schedule already present",
			zap.String("schedule", existing.Name),
			zap.String("currency", existing.Currency),
		)
		return nil
	}
	if !errors.Is(err, domain.ErrScheduleNotFound) {
		return err
	}

	schedule := DefaultSchedule(s.currency, s.authority)
	if err := schedule.Validate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, schedule); err != nil {
		return err
	}

	s.logger.Info("seeded default payee schedule",
		zap.String("currency", schedule.Currency),
		zap.String("authority", s.authority),
	)

	return nil
}
