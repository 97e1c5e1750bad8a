package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/money"
	"github.com/simaogato/payswarm-backend/internal/usecase/payment"
)

// MockPaymentService is a mock implementation of PaymentService for testing
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Quote(ctx context.Context, input payment.QuoteInput) (*domain.Transaction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPaymentService) ProcessPayment(ctx context.Context, input payment.QuoteInput) (*domain.Transaction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPaymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func startServer(t *testing.T, svc PaymentService) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop(), nil)))
	RegisterTransferServiceServer(srv, NewServer(svc, nil))

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()

	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func quotedTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:       uuid.MustParse("6a0b3b0e-8a3f-4b52-9a41-0b7f0e3b9d21"),
		Date:     time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
		Source:   "urn:buyer",
		Currency: "USD",
		Amount:   money.MustParse("1.02"),
		Transfers: []domain.Transfer{
			{Type: domain.TransferType, Source: "urn:buyer", Destination: "urn:vendor", Amount: money.MustParse("1.00"), Currency: "USD"},
			{Type: domain.TransferType, Source: "urn:buyer", Destination: "urn:authority", Amount: money.MustParse("0.02"), Currency: "USD"},
		},
	}
}

var quoteRequest = map[string]interface{}{
	"currency":    "USD",
	"source":      "urn:buyer",
	"description": "asset purchase",
	"payee": []interface{}{
		map[string]interface{}{
			"destination":    "urn:vendor",
			"currency":       "USD",
			"payeeRateType":  "FlatAmount",
			"payeeApplyType": "ApplyExclusively",
			"payeeRate":      "1.00",
			"payeeGroup":     []interface{}{"vendor"},
		},
	},
}

func TestServer_Quote(t *testing.T) {
	svc := new(MockPaymentService)
	client := startServer(t, svc)

	svc.On("Quote", mock.Anything, mock.MatchedBy(func(in payment.QuoteInput) bool {
		return in.Currency == "USD" &&
			in.SourceID == "urn:buyer" &&
			in.Description == "asset purchase" &&
			len(in.Payees) == 1 &&
			in.Payees[0].Rate.Equal(decimal.NewFromInt(1)) &&
			in.Payees[0].RateType == domain.RateTypeFlat
	})).Return(quotedTransaction(), nil)

	resp, err := client.Quote(context.Background(), mustStruct(t, quoteRequest))
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Equal(t, "6a0b3b0e-8a3f-4b52-9a41-0b7f0e3b9d21", out["id"])
	assert.Equal(t, "1.0200000", out["amount"])
	transfers, ok := out["transfer"].([]interface{})
	require.True(t, ok)
	require.Len(t, transfers, 2)
	assert.Equal(t, "0.0200000", transfers[1].(map[string]interface{})["amount"])
	svc.AssertExpectations(t)
}

func TestServer_ProcessPayment(t *testing.T) {
	svc := new(MockPaymentService)
	client := startServer(t, svc)

	svc.On("ProcessPayment", mock.Anything, mock.Anything).Return(quotedTransaction(), nil)

	resp, err := client.ProcessPayment(context.Background(), mustStruct(t, quoteRequest))
	require.NoError(t, err)
	assert.Equal(t, "USD", resp.AsMap()["currency"])
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode codes.Code
	}{
		{name: "invalid payee", err: domain.NewError(domain.KindInvalidPayee, "payees[0]", "rate"), expectedCode: codes.InvalidArgument},
		{name: "reserved group", err: domain.NewError(domain.KindInvalidPayeeGroup, "payees[0].payeeGroup", "reserved"), expectedCode: codes.InvalidArgument},
		{name: "dependency cycle", err: domain.NewError(domain.KindInvalidPayeeDependency, "payees", "cycle"), expectedCode: codes.FailedPrecondition},
		{name: "schedule missing", err: domain.ErrScheduleNotFound, expectedCode: codes.NotFound},
		{name: "invalid transaction", err: domain.NewError(domain.KindInvalidTransaction, "currency", "secret detail"), expectedCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			client := startServer(t, svc)
			svc.On("Quote", mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := client.Quote(context.Background(), mustStruct(t, quoteRequest))

			assert.Equal(t, tt.expectedCode, status.Code(err))
			if tt.expectedCode == codes.Internal {
				assert.NotContains(t, err.Error(), "secret detail")
			}
		})
	}
}

func TestServer_RequestValidation(t *testing.T) {
	svc := new(MockPaymentService)
	client := startServer(t, svc)

	_, err := client.Quote(context.Background(), mustStruct(t, map[string]interface{}{"source": "urn:buyer"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Quote(context.Background(), mustStruct(t, map[string]interface{}{"currency": "USD"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Quote(context.Background(), mustStruct(t, map[string]interface{}{
		"currency": "USD",
		"source":   "urn:buyer",
		"payee":    "not a list",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	svc.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestServer_GetTransaction(t *testing.T) {
	svc := new(MockPaymentService)
	client := startServer(t, svc)
	tx := quotedTransaction()

	svc.On("GetTransaction", mock.Anything, tx.ID).Return(tx, nil)
	svc.On("GetTransaction", mock.Anything, mock.Anything).Return(nil, domain.ErrTransactionNotFound)

	resp, err := client.GetTransaction(context.Background(), mustStruct(t, map[string]interface{}{"id": tx.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-06T07:08:09Z", resp.AsMap()["date"])

	_, err = client.GetTransaction(context.Background(), mustStruct(t, map[string]interface{}{"id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetTransaction(context.Background(), mustStruct(t, map[string]interface{}{"id": "nope"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_CheckPayeeGroups(t *testing.T) {
	client := startServer(t, new(MockPaymentService))

	resp, err := client.CheckPayeeGroups(context.Background(), mustStruct(t, map[string]interface{}{
		"payee": quoteRequest["payee"],
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["valid"])

	_, err = client.CheckPayeeGroups(context.Background(), mustStruct(t, map[string]interface{}{
		"payee": []interface{}{
			map[string]interface{}{"destination": "urn:x", "payeeGroup": []interface{}{"payswarm-fees"}},
		},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "InvalidPayeeGroup")
}
