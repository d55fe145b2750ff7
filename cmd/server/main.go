package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coupline/coup-server-go/internal/config"
	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/match"
	"github.com/coupline/coup-server-go/internal/repository"
	"github.com/coupline/coup-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting coup server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open match store", zap.Error(err))
	}
	defer closeStore()

	hub := server.NewHub(cfg.Server.WebSocket, cfg.Game, logger)

	opts := []match.Option{
		match.WithBroadcaster(hub),
		match.WithDecisionWindow(cfg.Server.DecisionWindow),
	}
	if cfg.Replay.Enabled {
		opts = append(opts, match.WithReplayRecorder(game.NewReplayRecorder(logger, cfg.Replay.Directory)))
		logger.Info("replay recording enabled", zap.String("directory", cfg.Replay.Directory))
	}
	manager := match.NewManager(game.NewEngine(logger), store, logger, opts...)
	defer manager.Close()
	hub.SetMatches(manager)

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WebSocket.Path, hub)
	httpServer := &http.Server{Addr: cfg.Server.WebSocket.Address, Handler: mux}
	go func() {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown incomplete", zap.Error(err))
	}
	hub.CloseAll()
	grpcServer.GracefulStop()

	logger.Info("coup server stopped")
}

// openStore connects to Postgres when a DSN is configured and falls back to
// the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (match.Store, func(), error) {
	if cfg.DSN == "" {
		logger.Warn("no database configured; matches are kept in memory")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := repository.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewGameRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return repo, db.Close, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
