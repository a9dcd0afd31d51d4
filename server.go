package bboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func CreateHTTPServer(addr string, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func SetupDatabase(ctx context.Context, logger *slog.Logger, dsn string) *pgxpool.Pool {
	dbCtx, dbCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dbCancel()

	poolConfig, err := PoolConfig(dsn, logger)
	if err != nil {
		logger.Error("invalid database configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbconn, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return dbconn
}

func StartListener(addr string, logger *slog.Logger) net.Listener {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("error creating listener", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return ln
}

func StartServer(server *http.Server, ln net.Listener, logger *slog.Logger) {
	logger.Info(fmt.Sprintf("listening on http://%s", ln.Addr()))
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.Error("http server failed", slog.String("error", err.Error()))
	}
}

func WaitForShutdown(sigChan chan os.Signal, ctx context.Context, logger *slog.Logger, server *http.Server) {
	sig := <-sigChan
	logger.Info("shutting down gracefully", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to gracefully shutdown HTTP server", slog.String("error", err.Error()))
	}

	if sigNum, ok := sig.(syscall.Signal); ok {
		s := 128 + int(sigNum)
		os.Exit(s)
	}
}
