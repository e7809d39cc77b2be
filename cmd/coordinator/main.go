// Package main implements the mini-gfs coordinator: the metadata master
// that tracks chunk servers, places chunks via a consistent-hash ring,
// and exposes the cluster's RPC surface over HTTP.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│            Coordinator                   │
//	├─────────────────────────────────────────┤
//	│  HTTP API (internal/coordinator.Server): │
//	│    /rpc/register_chunk_server            │
//	│    /rpc/unregister_chunk_server          │
//	│    /rpc/heartbeat                        │
//	│    /rpc/write_file                       │
//	│    /rpc/get_file                         │
//	│    /rpc/fetch_file_info                  │
//	│    /rpc/delete_file                      │
//	│    /health                               │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    ring        - placement (internal/ring)│
//	│    membership  - server health (internal/membership)│
//	│    placement   - file table (internal/placement)│
//	│    rebalance   - instruction emission    │
//	└─────────────────────────────────────────┘
//
// Usage:
//
//	mini-gfs-coordinator serve --config coordinator.yaml
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kkyrenc/mini-gfs/internal/config"
	"github.com/kkyrenc/mini-gfs/internal/coordinator"
	"github.com/kkyrenc/mini-gfs/internal/metrics"
	"github.com/kkyrenc/mini-gfs/internal/rebalance"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var configPath string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator's RPC facade and heartbeat sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a coordinator config file (optional)")
	return cmd
}

func runServe(ctx context.Context) error {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	mtr := metrics.NewCoordinator(reg)

	emitter := rebalance.HTTPEmitter{Log: log}
	coord := coordinator.New(cfg, emitter, log, mtr)
	coord.Start()
	defer coord.Stop()

	mux := http.NewServeMux()
	mux.Handle("/", coordinator.NewServer(coord, log, mtr).Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("coordinator listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("coordinator: listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("coordinator: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("coordinator: shutdown error")
	}
	return nil
}

func main() {
	root := &cobra.Command{
		Use:   "mini-gfs-coordinator",
		Short: "Metadata master for the mini-gfs cluster",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
