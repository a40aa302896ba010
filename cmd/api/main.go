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

	"smartlotto.org/internal/auth"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/config"
	"smartlotto.org/internal/grpcapi"
	"smartlotto.org/internal/httpapi"
	"smartlotto.org/internal/obs"
	"smartlotto.org/internal/store/memory"
	"smartlotto.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type backend interface {
	backoffice.Stores
	Users() auth.UserStore
	Ping(ctx context.Context) error
}

func main() {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "smartlotto-api",
		Short:         "Smart Lotto back-office API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "YAML config file (env CONFIG_PATH)")
	root.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s (%s)\n", version, commit)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.App.Version != "" {
		version = cfg.App.Version
	}
	logger := obs.Init(obs.LogConfig{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "smartlotto-api",
		Version: version,
	})
	defer func() { _ = logger.Sync() }()
	obs.InitMetrics()
	obs.SetBuildInfo(version, commit)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(store.Users(), auth.NewHasher(cfg.Auth.BcryptCost), issuer)
	if err != nil {
		return err
	}
	api, err := httpapi.New(authSvc, backoffice.NewService(store), store, httpapi.Options{
		Version:        version,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateBurst:      cfg.Rate.Burst,
		RatePerSecond:  cfg.Rate.PerSecond,
		AuthBurst:      cfg.Rate.Login.Burst,
		AuthPerSecond:  cfg.Rate.Login.PerSecond,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	health := grpcapi.New(store, 5*time.Second)
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go health.Watch(watchCtx)

	errc := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := health.Serve(grpcLis); err != nil {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		logger.Error("server failed", zap.Error(err))
	}

	stopWatch()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}
	health.GracefulStop()
	logger.Info("stopped")
	return err
}

func openStore(cfg *config.Config) (backend, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		s := memory.New()
		s.SeedEnterprise("Smart Lotto Thailand")
		s.SeedEnterprise("Smart Lotto International")
		obs.Logger().Warn("using in-memory storage; data is lost on exit")
		return s, func() {}, nil
	default:
		pc := cfg.Storage.Postgres
		s, err := pg.Open(cfg.Storage.DSN, pg.PoolOptions{
			MaxOpenConns:    pc.MaxOpenConns,
			MaxIdleConns:    pc.MaxIdleConns,
			ConnMaxLifetime: config.Duration(pc.ConnMaxLifetime, 0),
			ConnMaxIdleTime: config.Duration(pc.ConnMaxIdleTime, 0),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				obs.Logger().Warn("close store", zap.Error(err))
			}
		}, nil
	}
}
