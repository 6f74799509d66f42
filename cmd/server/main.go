package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"

	grpcadapter "github.com/simaogato/dca-tracker/internal/adapter/grpc"
	"github.com/simaogato/dca-tracker/internal/app"
	"github.com/simaogato/dca-tracker/internal/config"
	"github.com/simaogato/dca-tracker/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	decimal.MarshalJSONWithoutQuotes = true

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger not configured yet
		l, _, _ := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Initialize logger
	log, logCloser, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})
	if err != nil {
		l, _, _ := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting DCA tracker query server")

	// 3. Initialize storage and services
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer a.Close()

	// 4. Start gRPC Server
	grpcServer, healthServer := grpcadapter.NewGRPCServer(
		grpcadapter.NewServer(a.PortfolioRepo, a.ReportService),
		log,
	)

	lis, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		log.Fatal().Err(err).Str("address", cfg.Server.Address).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, healthServer, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, healthServer *health.Server, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
