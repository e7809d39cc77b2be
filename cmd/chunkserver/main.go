// Package main implements a minimal mini-gfs chunk server stub: it
// registers with the coordinator, sends periodic heartbeats, and
// acknowledges rebalance instructions (migrate, redistribute) without
// actually moving chunk bytes — chunk byte storage is intentionally not
// implemented here. It exists so the coordinator has a real peer to
// register, heartbeat, and rebalance against.
//
// Usage:
//
//	mini-gfs-chunkserver serve --addr localhost:9001 --coordinator http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kkyrenc/mini-gfs/internal/transport"
)

var (
	addr          string
	coordinator   string
	remainsSpace  int
	heartbeatRate time.Duration
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Register with the coordinator and serve the chunk-server stub endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9001", "address this chunk server is reachable at")
	cmd.Flags().StringVar(&coordinator, "coordinator", "http://localhost:8080", "coordinator base URL")
	cmd.Flags().IntVar(&remainsSpace, "remains", 1<<30, "self-reported remaining capacity, in bytes")
	cmd.Flags().DurationVar(&heartbeatRate, "heartbeat-interval", 3*time.Second, "how often to heartbeat the coordinator")
	return cmd
}

func runServe(ctx context.Context) error {
	log := logrus.StandardLogger().WithField("addr", addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/internal/migrate", handleMigrate(log))
	mux.HandleFunc("/internal/redistribute", handleRedistribute(log))

	httpSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("chunkserver: listen failed")
		}
	}()

	if err := registerWithRetry(ctx, log); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go heartbeatLoop(ctx, log, done)

	<-stop
	close(done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// registerWithRetry registers addr with the coordinator, retrying a
// handful of times to tolerate coordinator startup delay.
func registerWithRetry(ctx context.Context, log logrus.FieldLogger) error {
	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = transport.PostJSON(ctx, coordinator+"/rpc/register_chunk_server", map[string]string{"addr": addr}, nil)
		if lastErr == nil {
			log.Info("registered with coordinator")
			return nil
		}
		time.Sleep(400 * time.Millisecond)
	}
	log.WithError(lastErr).Error("chunkserver: failed to register with coordinator")
	return lastErr
}

func heartbeatLoop(ctx context.Context, log logrus.FieldLogger, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatRate)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			body := map[string]any{"addr": addr, "remains": remainsSpace}
			if err := transport.PostJSON(ctx, coordinator+"/rpc/heartbeat", body, nil); err != nil {
				log.WithError(err).Warn("chunkserver: heartbeat failed")
			}
		}
	}
}

func handleMigrate(log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transport.MigrateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		log.WithFields(logrus.Fields{"chunk": req.ChunkHandle, "from": req.FromAddr}).
			Info("would fetch chunk bytes from source (storage not implemented)")
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRedistribute(log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transport.RedistributeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		log.WithFields(logrus.Fields{"chunk": req.ChunkHandle, "targets": req.TargetAddrs}).
			Info("would re-replicate chunk to target set (storage not implemented)")
		w.WriteHeader(http.StatusNoContent)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "mini-gfs-chunkserver",
		Short: "Chunk-server stub: register, heartbeat, and ack rebalance instructions",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
