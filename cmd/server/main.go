package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/payswarm-backend/internal/adapter/grpc"
	"github.com/simaogato/payswarm-backend/internal/adapter/repository/postgres"
	rediscache "github.com/simaogato/payswarm-backend/internal/adapter/repository/redis"
	"github.com/simaogato/payswarm-backend/internal/config"
	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/logger"
	"github.com/simaogato/payswarm-backend/internal/metrics"
	"github.com/simaogato/payswarm-backend/internal/usecase/payment"
	"github.com/simaogato/payswarm-backend/internal/usecase/seeder"
	"github.com/simaogato/payswarm-backend/internal/usecase/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	moneyCtx, err := cfg.MoneyContext()
	if err != nil {
		return err
	}

	// 1. Setup Database, retrying while Postgres starts
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := postgres.Connect(connectCtx, cfg.DSN(), 2*time.Second)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	// 2. Initialize Repositories (Postgres, optionally fronted by Redis)
	transactionRepo := postgres.NewTransactionRepository(db, moneyCtx)
	var scheduleRepo domain.PayeeScheduleRepository = postgres.NewPayeeScheduleRepository(db)

	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		scheduleRepo = rediscache.NewScheduleCache(client, scheduleRepo, cfg.ScheduleCacheTTL, log.Named("cache"))
		log.Info("payee schedule cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.ScheduleCacheTTL))
	}

	// 3. Initialize Services (Use Cases)
	m := metrics.New()
	engine := transfer.NewEngine(moneyCtx, log.Named("transfer"))
	paymentService := payment.NewPaymentService(transactionRepo, scheduleRepo, engine, m, log.Named("payment"))

	scheduleSeeder := seeder.NewScheduleSeeder(scheduleRepo, cfg.DefaultCurrency, cfg.AuthorityDestination, log.Named("seeder"))
	if err := scheduleSeeder.Seed(ctx); err != nil {
		return err
	}

	// 4. Start metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.LoggingInterceptor(log.Named("grpc"), m)),
	)
	grpcadapter.RegisterTransferServiceServer(grpcServer, grpcadapter.NewServer(paymentService, log.Named("grpc")))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		log.Info("shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return err
	}

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown", zap.Error(err))
	}

	log.Info("server stopped")

	return nil
}
