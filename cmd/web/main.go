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
	"time"

	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/client"
	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/logging"
	"github.com/meur/gearforge/internal/web"
)

func main() {
	configPath := flag.String("config", getEnv("GEARFORGE_CONFIG", "gearforge.yaml"), "Config file path")
	port := flag.String("port", "", "Web port (overrides config)")
	apiURL := flag.String("api", "", "Backend base URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Web.Port = *port
	}
	if *apiURL != "" {
		cfg.Web.APIBaseURL = *apiURL
	}

	logger, err := logging.New(cfg.Logging, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	backend := client.New(cfg.Web.APIBaseURL, cfg.GetRequestTimeout())
	handler, err := web.New(backend, cfg, logger.Named("web"))
	if err != nil {
		logger.Fatal("failed to create web server", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Web.Port,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GetRequestTimeout() + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", srv.Addr), zap.Error(err))
	}

	logger.Info("gearforge web starting",
		zap.String("addr", srv.Addr),
		zap.String("api", cfg.Web.APIBaseURL))
	if err := serve(ctx, srv, ln, logger); err != nil {
		logger.Fatal("web server failed", zap.Error(err))
	}
}

// serve runs srv until ctx is done, then waits for in-flight requests to drain
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
