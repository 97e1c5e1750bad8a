package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/metrics"
	"github.com/simaogato/payswarm-backend/internal/money"
	"github.com/simaogato/payswarm-backend/internal/usecase/transfer"
)

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockPayeeScheduleRepository is a mock implementation of PayeeScheduleRepository for testing
type MockPayeeScheduleRepository struct {
	mock.Mock
}

func (m *MockPayeeScheduleRepository) GetByName(ctx context.Context, name string) (*domain.PayeeSchedule, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayeeSchedule), args.Error(1)
}

func (m *MockPayeeScheduleRepository) Save(ctx context.Context, schedule *domain.PayeeSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

// MockRecorder is a mock implementation of Recorder for testing
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveResolution(outcome string, transfers int, d time.Duration) {
	m.Called(outcome, transfers, d)
}

func testSchedule() *domain.PayeeSchedule {
	minimum := decimal.RequireFromString("0.01")
	maxRate := decimal.RequireFromString("50")

	return &domain.PayeeSchedule{
		ID:       uuid.New(),
		Name:     domain.DefaultScheduleName,
		Currency: "USD",
		Payees: []domain.Payee{
			{
				Destination:   "urn:authority",
				Currency:      "USD",
				RateType:      domain.RateTypePercentage,
				ApplyType:     domain.ApplyExclusively,
				Rate:          decimal.RequireFromString("2"),
				Group:         []string{"authority"},
				ExemptGroup:   []string{"authority"},
				MinimumAmount: &minimum,
				Comment:       "authority fee",
			},
		},
		Rules: []domain.PayeeRule{
			{PayeeRateType: []domain.RateType{domain.RateTypeFlat}},
			{PayeeRateType: []domain.RateType{domain.RateTypePercentage}, MaximumPayeeRate: &maxRate},
		},
	}
}

func vendorPayee(rate string) domain.Payee {
	return domain.Payee{
		Destination: "urn:vendor",
		Currency:    "USD",
		RateType:    domain.RateTypeFlat,
		ApplyType:   domain.ApplyExclusively,
		Rate:        decimal.RequireFromString(rate),
		Group:       []string{"vendor"},
	}
}

func newTestService() (*PaymentService, *MockTransactionRepository, *MockPayeeScheduleRepository, *MockRecorder) {
	txRepo := new(MockTransactionRepository)
	scheduleRepo := new(MockPayeeScheduleRepository)
	recorder := new(MockRecorder)

	service := NewPaymentService(txRepo, scheduleRepo, transfer.NewEngine(money.Default, nil), recorder, nil)
	service.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	return service, txRepo, scheduleRepo, recorder
}

func TestQuote_AppendsSchedulePayees(t *testing.T) {
	ctx := context.Background()
	service, txRepo, scheduleRepo, recorder := newTestService()

	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)
	recorder.On("ObserveResolution", metrics.OutcomeOK, 2, mock.Anything).Return()

	tx, err := service.Quote(ctx, QuoteInput{
		Currency:    "USD",
		SourceID:    "urn:buyer",
		Description: "asset purchase",
		Payees:      []domain.Payee{vendorPayee("10.00")},
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, "urn:buyer", tx.Source)
	assert.Equal(t, "asset purchase", tx.Description)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), tx.Date)
	assert.Equal(t, "10.2000000", tx.Amount.String())
	require.Len(t, tx.Transfers, 2)
	assert.Equal(t, "urn:vendor", tx.Transfers[0].Destination)
	assert.Equal(t, "urn:authority", tx.Transfers[1].Destination)
	assert.Equal(t, "0.2000000", tx.Transfers[1].Amount.String())
	assert.Equal(t, "authority fee", tx.Transfers[1].Comment)
	assert.NoError(t, tx.Validate())

	scheduleRepo.AssertExpectations(t)
	recorder.AssertExpectations(t)
	txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQuote_NamedSchedule(t *testing.T) {
	ctx := context.Background()
	service, _, scheduleRepo, recorder := newTestService()

	schedule := testSchedule()
	schedule.Name = "deposit"
	scheduleRepo.On("GetByName", ctx, "deposit").Return(schedule, nil)
	recorder.On("ObserveResolution", metrics.OutcomeOK, 2, mock.Anything).Return()

	tx, err := service.Quote(ctx, QuoteInput{
		Currency: "USD",
		SourceID: "urn:buyer",
		Payees:   []domain.Payee{vendorPayee("1.00")},
		Schedule: "deposit",
	})

	require.NoError(t, err)
	assert.Equal(t, "1.0200000", tx.Amount.String())
	scheduleRepo.AssertExpectations(t)
}

func TestQuote_ScheduleMinimum(t *testing.T) {
	ctx := context.Background()
	service, _, scheduleRepo, recorder := newTestService()

	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)
	recorder.On("ObserveResolution", metrics.OutcomeOK, 2, mock.Anything).Return()

	tx, err := service.Quote(ctx, QuoteInput{
		Currency: "USD",
		SourceID: "urn:buyer",
		Payees:   []domain.Payee{vendorPayee("0.10")},
	})

	require.NoError(t, err)
	assert.Equal(t, "0.0100000", tx.Transfers[1].Amount.String())
	assert.Equal(t, "0.1100000", tx.Amount.String())
}

func TestQuote_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		input    QuoteInput
		schedule func() (*domain.PayeeSchedule, error)
		wantErr  error
	}{
		{
			name:    "missing source",
			input:   QuoteInput{Currency: "USD", Payees: []domain.Payee{vendorPayee("1")}},
			wantErr: domain.ErrInvalidTransaction,
		},
		{
			name: "reserved group",
			input: func() QuoteInput {
				p := vendorPayee("1")
				p.Group = []string{"authority-fee"}
				return QuoteInput{Currency: "USD", SourceID: "urn:buyer", Payees: []domain.Payee{p}}
			}(),
			wantErr: domain.ErrInvalidPayeeGroup,
		},
		{
			name:     "unknown schedule",
			input:    QuoteInput{Currency: "USD", SourceID: "urn:buyer", Payees: []domain.Payee{vendorPayee("1")}},
			schedule: func() (*domain.PayeeSchedule, error) { return nil, domain.ErrScheduleNotFound },
			wantErr:  domain.ErrScheduleNotFound,
		},
		{
			name:     "schedule currency differs",
			input:    QuoteInput{Currency: "EUR", SourceID: "urn:buyer", Payees: []domain.Payee{vendorPayee("1")}},
			schedule: func() (*domain.PayeeSchedule, error) { return testSchedule(), nil },
			wantErr:  domain.ErrScheduleNotFound,
		},
		{
			name: "payee not permitted by rules",
			input: func() QuoteInput {
				p := vendorPayee("75")
				p.RateType = domain.RateTypePercentage
				return QuoteInput{Currency: "USD", SourceID: "urn:buyer", Payees: []domain.Payee{vendorPayee("1"), p}}
			}(),
			schedule: func() (*domain.PayeeSchedule, error) { return testSchedule(), nil },
			wantErr:  domain.ErrInvalidPayee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			service, _, scheduleRepo, recorder := newTestService()
			if tt.schedule != nil {
				schedule, err := tt.schedule()
				scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(schedule, err)
			}

			tx, err := service.Quote(ctx, tt.input)

			assert.Nil(t, tx)
			assert.ErrorIs(t, err, tt.wantErr)
			recorder.AssertNotCalled(t, "ObserveResolution", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestQuote_ResolutionFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	service, _, scheduleRepo, recorder := newTestService()

	a := vendorPayee("10")
	a.RateType = domain.RateTypePercentage
	a.Group = []string{"a"}
	a.ApplyGroup = []string{"b"}
	b := vendorPayee("10")
	b.RateType = domain.RateTypePercentage
	b.Group = []string{"b"}
	b.ApplyGroup = []string{"a"}

	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)
	recorder.On("ObserveResolution", string(domain.KindInvalidPayeeDependency), 0, mock.Anything).Return()

	_, err := service.Quote(ctx, QuoteInput{Currency: "USD", SourceID: "urn:buyer", Payees: []domain.Payee{a, b}})

	assert.ErrorIs(t, err, domain.ErrInvalidPayeeDependency)
	recorder.AssertExpectations(t)
}

func TestProcessPayment_SavesTransaction(t *testing.T) {
	ctx := context.Background()
	service, txRepo, scheduleRepo, recorder := newTestService()

	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)
	recorder.On("ObserveResolution", metrics.OutcomeOK, 2, mock.Anything).Return()
	txRepo.On("Create", ctx, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.Amount.Equal(money.MustParse("5.10")) && len(tx.Transfers) == 2
	})).Return(nil)

	tx, err := service.ProcessPayment(ctx, QuoteInput{
		Currency: "USD",
		SourceID: "urn:buyer",
		Payees:   []domain.Payee{vendorPayee("5.00")},
	})

	require.NoError(t, err)
	assert.Equal(t, "5.1000000", tx.Amount.String())
	txRepo.AssertExpectations(t)
}

func TestProcessPayment_SaveError(t *testing.T) {
	ctx := context.Background()
	service, txRepo, scheduleRepo, recorder := newTestService()

	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)
	recorder.On("ObserveResolution", metrics.OutcomeOK, 2, mock.Anything).Return()
	txRepo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	tx, err := service.ProcessPayment(ctx, QuoteInput{
		Currency: "USD",
		SourceID: "urn:buyer",
		Payees:   []domain.Payee{vendorPayee("5.00")},
	})

	assert.Nil(t, tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save transaction")
}

func TestProcessPayment_QuoteErrorSkipsSave(t *testing.T) {
	ctx := context.Background()
	service, txRepo, _, _ := newTestService()

	p := vendorPayee("1")
	p.Group = []string{"payswarm"}

	_, err := service.ProcessPayment(ctx, QuoteInput{Currency: "USD", SourceID: "urn:buyer", Payees: []domain.Payee{p}})

	assert.ErrorIs(t, err, domain.ErrInvalidPayeeGroup)
	txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetTransaction(t *testing.T) {
	ctx := context.Background()
	service, txRepo, _, _ := newTestService()

	id := uuid.New()
	saved := &domain.Transaction{ID: id, Currency: "USD", Amount: money.Zero()}
	txRepo.On("GetByID", ctx, id).Return(saved, nil)

	tx, err := service.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, saved, tx)

	_, err = service.GetTransaction(ctx, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestQuote_NilRecorder(t *testing.T) {
	ctx := context.Background()
	scheduleRepo := new(MockPayeeScheduleRepository)
	scheduleRepo.On("GetByName", ctx, domain.DefaultScheduleName).Return(testSchedule(), nil)

	service := NewPaymentService(new(MockTransactionRepository), scheduleRepo, transfer.NewEngine(money.Default, nil), nil, nil)

	tx, err := service.Quote(ctx, QuoteInput{Currency: "USD", SourceID: "urn:buyer"})
	require.NoError(t, err)
	// nothing to take 2% of, so the authority minimum applies
	assert.Equal(t, "0.0100000", tx.Amount.String())
}
