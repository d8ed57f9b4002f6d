package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eqsat/eqsat/internal/grpcapi"
	"github.com/eqsat/eqsat/internal/service"
	"github.com/eqsat/eqsat/internal/webui"
	"github.com/eqsat/eqsat/pkg/config"
	"github.com/eqsat/eqsat/pkg/utils"
)

var configPath string

const shutdownTimeout = 5 * time.Second

// serveCmd starts the webui + gRPC API and the run scheduler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/gRPC API and run scheduler",
	Long: `serve wires the configured database, object storage and run
sources into a long-running process: a JSON HTTP API for submitting and
inspecting runs, a gRPC API for streaming a run's snapshots, and a
scheduler that drains pending runs against the in-process engine.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (defaults to ./config.yaml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	svc, err := service.New(cfg, log)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	webServer := webui.NewServer(cfg.Server.HTTPPort, svc.Repositories(), svc.Storage(), log)
	grpcServer := grpcapi.NewServer(cfg.Server.GRPCPort, svc.Repositories(), utils.NewRealClock(), log)

	errCh := make(chan error, 2)
	go func() { errCh <- webServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("eqsat serving: http :%d, grpc :%d", cfg.Server.HTTPPort, cfg.Server.GRPCPort)

	select {
	case <-sigCh:
		log.Info("shutting down...")
	case err := <-errCh:
		log.Error("server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("webui shutdown: %v", err)
	}
	grpcServer.Stop()
	if err := svc.Stop(); err != nil {
		log.Error("service stop: %v", err)
	}

	return nil
}
