package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prizepool/config"
	"prizepool/core/events"
	"prizepool/core/runtime"
	"prizepool/core/state"
	"prizepool/native/prizepool"
	"prizepool/native/token"
	"prizepool/observability"
	"prizepool/observability/logging"
	telemetry "prizepool/observability/otel"
	"prizepool/rpc"
	"prizepool/storage"
)

const serviceName = "prizepoold"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.Setup(serviceName, cfg.Environment, logging.Options{
		Level:      logging.ParseLevel(*logLevel),
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("node stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := newNode(cfg, db, logger)
	if err != nil {
		return err
	}
	logger.Info("ledger opened",
		slog.Uint64("height", node.runtime.Height()),
		slog.String("root", node.runtime.Root().Hex()),
		slog.String("prizeProgram", prizepool.ProgramID.String()),
		slog.String("tokenProgram", token.ProgramID.String()))

	err = node.server.Serve(ctx, cfg.ListenAddress, time.Duration(cfg.RPC.ReadHeaderTimeout)*time.Second)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

type node struct {
	runtime *runtime.Runtime
	log     *events.Log
	server  *rpc.Server
}

// newNode wires the ledger, the native programs, and the RPC server.
func newNode(cfg *config.Config, db storage.Database, logger *slog.Logger) (*node, error) {
	admin, err := cfg.AdminAddress()
	if err != nil {
		return nil, err
	}
	mint, err := cfg.MintAuthorityAddress()
	if err != nil {
		return nil, err
	}

	manager, err := state.NewManager(db)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	log := events.NewLog(cfg.EventLogSize)
	rt := runtime.New(manager,
		runtime.WithLogger(logger),
		runtime.WithEmitter(events.Fanout{log, observability.Events()}),
		runtime.WithMetrics(observability.Ledger()),
	)
	if err := rt.Register(token.New(mint)); err != nil {
		return nil, err
	}
	engine := prizepool.NewEngine(admin)
	if err := rt.Register(prizepool.NewProgram(engine)); err != nil {
		return nil, err
	}
	if engine.Admin().IsZero() {
		logger.Warn("no designated admin configured; any signer may register winners and the first registrant of a game id controls payouts from its escrow")
	}

	server := rpc.NewServer(rt, rpc.Options{
		AuthToken:         cfg.RPC.AuthToken,
		RateLimit:         cfg.RPC.RateLimitPerSecond,
		Burst:             cfg.RPC.RateLimitBurst,
		TrustProxyHeaders: cfg.RPC.TrustProxyHeaders,
		TrustedProxies:    append([]string(nil), cfg.RPC.TrustedProxies...),
		Admin:             engine.Admin(),
		Events:            log,
		Logger:            logger,
	})
	logger.Info("rpc configured",
		slog.String("listen", cfg.ListenAddress),
		logging.MaskField("authToken", cfg.RPC.AuthToken),
		logging.MaskField("mintKeystore", cfg.MintKeystorePath),
		slog.Float64("rateLimit", cfg.RPC.RateLimitPerSecond),
		slog.Int("burst", cfg.RPC.RateLimitBurst),
		slog.Bool("trustProxyHeaders", cfg.RPC.TrustProxyHeaders),
		slog.Int("trustedProxies", len(cfg.RPC.TrustedProxies)))
	return &node{runtime: rt, log: log, server: server}, nil
}
