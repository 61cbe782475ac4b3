package main

import (
	"auctions/app"
	"auctions/infra/grpc"
	"auctions/infra/postgres"
	"auctions/pkg/config"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Auctions gRPC Service starting...")

	appConfig := config.Read()

	grpcServer, err := grpc.NewServer(appConfig)
	if err != nil {
		zap.L().Error("failed to create grpc server", zap.Error(err))
		os.Exit(1)
	}

	repository, err := openRepository(appConfig, func(dsn string) app.Repository {
		return postgres.NewPgRepository(dsn)
	})
	if err != nil {
		zap.L().Fatal("Unsupported storage for the gRPC service", zap.Error(err))
	}
	defer repository.Close()

	grpcServer.RegisterListingService(grpc.NewListingService(repository))

	zap.L().Info("starting gRPC server...", zap.String("port", appConfig.GRPCPort))
	go func() {
		if err := grpcServer.Start(); err != nil {
			zap.L().Error("failed to start grpc server", zap.Error(err))
			os.Exit(1)
		}
	}()

	gracefulShutdown(grpcServer)
}

// openRepository connects to the store shared with the HTTP API. The memory
// driver lives inside the API process, so this service cannot read it.
func openRepository(cfg *config.AppConfig, connect func(dsn string) app.Repository) (app.Repository, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return connect(cfg.PostgresDSN()), nil
	case config.StorageMemory:
		return nil, fmt.Errorf("STORAGE_DRIVER=%s is private to the HTTP API process, use %s", config.StorageMemory, config.StoragePostgres)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func gracefulShutdown(grpcServer *grpc.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := grpcServer.GracefulStop(); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}
