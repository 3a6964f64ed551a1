package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/philippkemmeter/mvcfun/internal/config"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initApplication(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	logger := app.Logger
	config.Log(logger, app.Config)
	logger.Info("controllers registered", logging.Int("count", app.Router.Len()))

	serverErrs := make(chan error, 2)
	var servers sync.WaitGroup

	servers.Add(1)
	go func() {
		defer servers.Done()
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, server.ErrServerClosed) {
			serverErrs <- fmt.Errorf("mvc server: %w", err)
		}
	}()

	if app.Admin != nil {
		servers.Add(1)
		go func() {
			defer servers.Done()
			logger.Info("admin server listening", logging.String("addr", app.Admin.Addr))
			if err := app.Admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrs <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serverErrs:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("mvc server shutdown", logging.Err(err))
		_ = app.Server.Close()
	}
	if app.Admin != nil {
		if err := app.Admin.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin server shutdown", logging.Err(err))
		}
	}
	servers.Wait()

	if serveErr != nil {
		logger.Error("server error", logging.Err(serveErr))
		cleanup()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
