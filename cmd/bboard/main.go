package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bboard"
)

var (
	listenAddr          = flag.String("listen-addr", "", "Address to listen on, overrides LISTEN_ADDR")
	debug               = flag.Bool("debug", false, "Enable debug logging")
	otlp                = flag.Bool("otlp", false, "Export telemetry over OTLP instead of Prometheus")
	version  string     = "dev"
	gitSha   string     = "no-commit"
	logLevel slog.Level = slog.LevelInfo
)

func main() {
	flag.Parse()

	if *debug {
		logLevel = slog.LevelDebug
	}

	logger := bboard.NewLogger(&logLevel)

	cfg, err := bboard.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.LogDebug = *debug
	cfg.Logger = logger
	cfg.ServiceVersion = version
	cfg.OTLP = *otlp
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	telemetry, telemetryShutdown, err := bboard.SetupTelemetry(ctx, cfg)
	if err != nil {
		logger.Warn("telemetry disabled", slog.String("error", err.Error()))
	} else {
		defer func() {
			if err := telemetryShutdown(context.Background()); err != nil {
				logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	// Route logs through the OTLP handler when exporting telemetry
	if cfg.OTLP && telemetry != nil && telemetry.LogHandler != nil {
		logger = slog.New(telemetry.LogHandler)
		slog.SetDefault(logger)
	}

	bboard.RecordBuildInfo(version, gitSha)

	dbconn := bboard.SetupDatabase(ctx, logger, cfg.DatabaseURL)
	defer dbconn.Close()

	if err := bboard.ApplySchema(ctx, dbconn); err != nil {
		logger.Error("unable to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	queries := bboard.NewTracedQueriesWrapper(bboard.NewQuerier(dbconn), telemetry)
	converter := bboard.NewGraphConverter(bboard.RenderMessageHTML)

	svc := bboard.NewBoardService(
		logger,
		dbconn,
		queries,
		converter,
		telemetry,
		version,
		gitSha,
	)

	mux := bboard.SetupRoutes(svc, cfg)

	server := bboard.CreateHTTPServer(cfg.ListenAddr, bboard.HistogramHttpHandler(mux))

	ln := bboard.StartListener(cfg.ListenAddr, logger)
	defer ln.Close()

	go bboard.StartServer(server, ln, logger)

	bboard.WaitForShutdown(sigChan, ctx, logger, server)
}
