package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/replica-sync/statusapi"
	"github.com/warp/replica-sync/sync"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the operator status API as a long-lived daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "HTTP port for the operator status API")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := wire(ctx, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	scheduler := sync.NewScheduler(a.engine, a.cfg, a.cfg.DeviceID)

	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := scheduler.Probe(probeCtx, a.db, a.target); err != nil {
		cancel()
		a.ring.Error("startup reachability probe failed: %v", err)
		return fmt.Errorf("startup probe: %w", err)
	}
	cancel()
	a.ring.Info("startup reachability probe passed, source and target reachable")

	scheduler.Start()
	defer scheduler.Stop()

	handler := &statusapi.Handler{Scheduler: scheduler, Ring: a.ring}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", servePort),
		Handler:      statusapi.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.log.Info().Int("port", servePort).Msg("status API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatal().Err(err).Msg("status API failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
