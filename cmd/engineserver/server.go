package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightledger/matchengine/cmd/engineserver/handlers"
	"github.com/brightledger/matchengine/cmd/engineserver/routes"
	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/config"
	"github.com/brightledger/matchengine/internal/engine"
)

// run wires the given engine into the HTTP handlers, starts the server, and blocks until a
// termination signal triggers a graceful shutdown. Returns the process
// exit code.
func run(cfg *config.Config, eng *engine.Engine) int {
	eh := handlers.NewEngineHolder(eng)
	handler := routes.SetupRoutes(eh)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info("server starting", applog.Fields{"port": cfg.Server.Port, "address": fmt.Sprintf("http://localhost:%s", cfg.Server.Port)})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		applog.Error("server failed to start", applog.Fields{"error": err.Error()})
		return 1
	case <-quit:
		applog.Info("server shutting down", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		applog.Error("server forced to shutdown", applog.Fields{"error": err.Error()})
		return 1
	}

	if err := eng.FlushMetadata(); err != nil {
		applog.Error("final metadata flush failed", applog.Fields{"error": err.Error()})
		return 1
	}

	applog.Info("server exited successfully", nil)
	return 0
}
