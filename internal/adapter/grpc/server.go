package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/usecase/payment"
)

// PaymentService is the use case the server exposes
type PaymentService interface {
	Quote(ctx context.Context, input payment.QuoteInput) (*domain.Transaction, error)
	ProcessPayment(ctx context.Context, input payment.QuoteInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// Server implements TransferServiceServer
type Server struct {
	PaymentService PaymentService
	Logger         *zap.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(paymentService PaymentService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		PaymentService: paymentService,
		Logger:         logger,
	}
}

// paymentRequest is the document accepted by Quote and ProcessPayment
type paymentRequest struct {
	Currency    string         `json:"currency"`
	Source      string         `json:"source"`
	Description string         `json:"description"`
	Schedule    string         `json:"schedule"`
	Payees      []domain.Payee `json:"payee"`
}

type transactionRequest struct {
	ID string `json:"id"`
}

type payeeGroupsRequest struct {
	Payees []domain.Payee `json:"payee"`
}

type payeeGroupsResponse struct {
	Valid bool `json:"valid"`
}

// Quote handles the Quote RPC
func (s *Server) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := decodePaymentRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.PaymentService.Quote(ctx, input)
	if err != nil {
		return nil, s.mapError(err)
	}

	return encode(tx)
}

// ProcessPayment handles the ProcessPayment RPC
func (s *Server) ProcessPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := decodePaymentRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.PaymentService.ProcessPayment(ctx, input)
	if err != nil {
		return nil, s.mapError(err)
	}

	return encode(tx)
}

// GetTransaction handles the GetTransaction RPC
func (s *Server) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in transactionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(in.ID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id format: %v", err)
	}

	tx, err := s.PaymentService.GetTransaction(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	return encode(tx)
}

// CheckPayeeGroups handles the CheckPayeeGroups RPC.
// Payees using a reserved group are rejected with InvalidArgument.
func (s *Server) CheckPayeeGroups(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in payeeGroupsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	if err := domain.CheckPayeeGroups(in.Payees); err != nil {
		return nil, s.mapError(err)
	}

	return encode(payeeGroupsResponse{Valid: true})
}

func decodePaymentRequest(req *structpb.Struct) (payment.QuoteInput, error) {
	var in paymentRequest
	if err := decode(req, &in); err != nil {
		return payment.QuoteInput{}, err
	}

	if strings.TrimSpace(in.Currency) == "" {
		return payment.QuoteInput{}, status.Error(codes.InvalidArgument, "currency is required")
	}

	if strings.TrimSpace(in.Source) == "" {
		return payment.QuoteInput{}, status.Error(codes.InvalidArgument, "source is required")
	}

	return payment.QuoteInput{
		Currency:    in.Currency,
		SourceID:    in.Source,
		Description: in.Description,
		Payees:      in.Payees,
		Schedule:    in.Schedule,
	}, nil
}

// decode converts a Struct document into v through its JSON form
func decode(req *structpb.Struct, v interface{}) error {
	data, err := protojson.Marshal(req)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	return nil
}

// encode converts v into a Struct document through its JSON form
func encode(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	return out, nil
}

// mapError converts domain errors to gRPC status errors
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.KindInvalidPayee, domain.KindInvalidPayeeGroup:
			return status.Error(codes.InvalidArgument, err.Error())
		case domain.KindInvalidPayeeDependency:
			return status.Error(codes.FailedPrecondition, err.Error())
		}
	}

	switch {
	case errors.Is(err, domain.ErrScheduleNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// InvalidTransaction and anything unexpected are server faults; keep the details in the log
	s.Logger.Error("request failed", zap.Error(err))

	return status.Error(codes.Internal, fmt.Sprintf("internal error (%s)", kindOf(err)))
}

func kindOf(err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return string(domainErr.Kind)
	}
	return "unexpected"
}
