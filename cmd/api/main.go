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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/auth"
	"nurseconnect.org/internal/config"
	"nurseconnect.org/internal/facilities"
	"nurseconnect.org/internal/httpapi"
	"nurseconnect.org/internal/obs"
	"nurseconnect.org/internal/shifts"
	"nurseconnect.org/internal/store/memory"
	"nurseconnect.org/internal/store/pg"
	"nurseconnect.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// backend is satisfied by both the Postgres and the in-memory store.
type backend interface {
	shifts.Store
	facilities.Store
	auth.UserStore
	applications.Store
	httpapi.Clock
}

func main() {
	var configPath string
	root := &cobra.Command{
		Use:           "nurseconnect-api",
		Short:         "NurseConnect shift staffing API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", os.Getenv("NURSECONNECT_CONFIG"), "path to YAML config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "nurseconnect-api:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer obs.SetLogger(logger)()
	defer func() { _ = logger.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, closeStore, err := openBackend(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	events := stream.New()
	defer events.Close()

	api := httpapi.New(httpapi.Deps{
		Shifts:       shifts.NewService(store, events),
		Facilities:   store,
		Applications: applications.NewService(store, store),
		Auth:         auth.NewService(store, store, tokens, auth.WithHashCost(cfg.HashCost)),
		Stream:       events,
		Clock:        store,
		Version:      version,
	}, httpapi.Options{
		CORSOrigin:   cfg.CORSOrigin,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RatePerSec:   cfg.RateLimit.PerSecond,
		RateBurst:    cfg.RateLimit.Burst,
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Event streams stay open, so writes are not bounded here.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, httpapi.NewHealthServer(store))

	httpLis, grpcLis, err := bindListeners(cfg.HTTPAddr, cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", httpLis.Addr().String()), zap.String("version", version))
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	if grpcLis != nil {
		go func() {
			logger.Info("grpc listening", zap.String("addr", grpcLis.Addr().String()))
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		grpcSrv.Stop()
		_ = srv.Close()
		return err
	}

	// Unblock open event streams before draining HTTP connections.
	events.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	grpcSrv.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// bindListeners opens both ports before either server starts, so a bad gRPC
// address fails startup instead of leaving HTTP running alone. grpcAddr may
// be empty.
func bindListeners(httpAddr, grpcAddr string) (net.Listener, net.Listener, error) {
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("http listen: %w", err)
	}
	if grpcAddr == "" {
		return httpLis, nil, nil
	}
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return nil, nil, fmt.Errorf("grpc listen: %w", err)
	}
	return httpLis, grpcLis, nil
}

func openBackend(ctx context.Context, dsn string, logger *zap.Logger) (backend, func(), error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		return memory.New(), func() {}, nil
	}
	store, err := pg.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.DB().PingContext(pingCtx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
