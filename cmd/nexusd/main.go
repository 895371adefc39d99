// Command nexusd is the NexusShell daemon: a single-node (self-bootstrapping
// Raft) process hosting the container runtime, network manager, registry
// client, event bus, and the HTTP transport that exposes them.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexusshell/nexuscore/pkg/config"
	"github.com/nexusshell/nexuscore/pkg/daemon"
	"github.com/nexusshell/nexuscore/pkg/daemon/transport"
	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/metrics"
	"github.com/nexusshell/nexuscore/pkg/network"
	"github.com/nexusshell/nexuscore/pkg/registry"
	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "nexusd",
	Short:   "nexusd is the NexusShell container daemon",
	Long:    `nexusd hosts the container runtime, network, volume, image and event subsystems behind a single HTTP control surface.`,
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nexusd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("config", "", "Path to a YAML config file")
	rootCmd.Flags().String("containerd-socket", "", "Containerd socket path (overrides config)")
	rootCmd.Flags().Bool("enable-pprof", false, "Expose pprof endpoints on the metrics listener")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	containerdSocket, _ := cmd.Flags().GetString("containerd-socket")
	pprofEnabled, _ := cmd.Flags().GetBool("enable-pprof")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if containerdSocket != "" {
		cfg.ContainerdSocket = containerdSocket
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger := log.WithComponent("nexusd").With().Str("node_id", cfg.NodeID).Logger()
	logger.Info().Str("data_dir", cfg.DataDir).Msg("starting nexusd")

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", false, "not bootstrapped")
	metrics.RegisterComponent("containerd", false, "initializing")
	metrics.RegisterComponent("api", false, "initializing")

	cdRuntime, err := runtime.NewContainerdRuntime(cfg.ContainerdSocket, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("create container runtime: %w", err)
	}
	defer cdRuntime.Close()
	metrics.RegisterComponent("containerd", true, "ready")

	netMgr := network.NewManager(cfg.Network)
	registryClient := registry.NewClient(cfg.Registry)

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	d, err := daemon.New(cfg, daemon.Deps{
		Runtime:  cdRuntime,
		Network:  netMgr,
		Registry: registryClient,
		Store:    store,
	})
	if err != nil {
		return fmt.Errorf("construct daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	metrics.RegisterComponent("raft", true, "bootstrapped")

	controlLn, err := daemon.StartControlSocket(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("control socket unavailable")
	} else if controlLn != nil {
		defer controlLn.Close()
	}

	router := transport.New(d)
	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("RPC listener starting")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("RPC server error: %w", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.Handle("/health", metrics.HealthHandler())
	metricsMux.Handle("/ready", metrics.ReadyHandler())
	metricsMux.Handle("/live", metrics.LivenessHandler())
	if pprofEnabled {
		metricsMux.Handle("/debug/pprof/", http.DefaultServeMux)
	}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener starting")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	metrics.RegisterComponent("api", true, "ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 70*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	if err := d.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("daemon shutdown: %w", err)
	}
	logger.Info().Msg("nexusd stopped")
	return nil
}
