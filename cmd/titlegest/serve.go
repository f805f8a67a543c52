package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/titlegest/internal/api"
	"github.com/dgallion1/titlegest/internal/config"
	"github.com/dgallion1/titlegest/internal/pipeline"
	"github.com/dgallion1/titlegest/internal/stats"
	"github.com/dgallion1/titlegest/internal/store"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the titlegest HTTP server",
	Long: `Start the titlegest HTTP API.

Uploads are queued and processed by a worker pool; results are stored in
SQLite. Title thresholds and upload limits are re-read from the config file
when it changes.

Examples:
  titlegest serve                 # Start on PORT or 8090
  titlegest serve --port 3000     # Start on custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			log.Error("invalid configuration", "error", err)
			return err
		}
		cfg := mgr.Get()
		if servePort != "" {
			cfg.Port = servePort
		}
		started := cfg
		mgr.OnChange(func(next config.Config) {
			if servePort != "" {
				next.Port = servePort
			}
			if keys := restartRequired(started, next); len(keys) > 0 {
				log.Warn("config change needs a restart to apply", "settings", keys)
			}
		})
		mgr.WatchConfig()

		st, err := store.New(cfg.DBPath)
		if err != nil {
			log.Error("open store", "path", cfg.DBPath, "error", err)
			return err
		}
		defer st.Close()

		// Initialize pipeline.
		orch := pipeline.NewOrchestrator(cfg, st, stats.NewRecorder(time.Hour), log)
		orch.Start(ctx)

		// Initialize HTTP server.
		srv := api.NewServer(orch, st, mgr, log)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		errCh := make(chan error, 1)
		go func() {
			log.Info("starting titlegest", "port", cfg.Port, "db", cfg.DBPath, "workers", cfg.WorkerCount)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server error", "error", err)
				orch.Stop()
				return err
			}
		case <-ctx.Done():
			log.Info("shutting down...")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		orch.Stop()
		return nil
	},
}

// restartRequired lists the settings that differ between two configs but are
// only read at startup.
func restartRequired(old, next config.Config) []string {
	var keys []string
	if old.Port != next.Port {
		keys = append(keys, "port")
	}
	if old.DBPath != next.DBPath {
		keys = append(keys, "db_path")
	}
	if old.WorkerCount != next.WorkerCount {
		keys = append(keys, "worker_count")
	}
	if old.MaxQueueSize != next.MaxQueueSize {
		keys = append(keys, "max_queue_size")
	}
	if old.JobTTL != next.JobTTL {
		keys = append(keys, "job_ttl")
	}
	return keys
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
}
