package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kdoroschak/curlbot-v2/internal/checker"
	"github.com/kdoroschak/curlbot-v2/internal/engine"
	"github.com/kdoroschak/curlbot-v2/internal/heartbeat"
	"github.com/kdoroschak/curlbot-v2/internal/platform/reddit"
	"github.com/kdoroschak/curlbot-v2/internal/rule"
	"github.com/kdoroschak/curlbot-v2/internal/store"
)

func runCmd() *cobra.Command {
	var (
		dbPath            string
		wikiPage          string
		scanInterval      time.Duration
		heartbeatInterval time.Duration
		heartbeatPostID   string
		metricsAddr       string
		debug             bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scan loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is a convenience for local runs; deployed
			// environments set the variables directly.
			_ = godotenv.Load()

			logConfig := zap.NewProductionConfig()
			logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			if debug {
				logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			logger, err := logConfig.Build()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := reddit.Config{
				ClientID:     os.Getenv("CURLBOT_CLIENT_ID"),
				ClientSecret: os.Getenv("CURLBOT_CLIENT_SECRET"),
				Username:     os.Getenv("CURLBOT_USERNAME"),
				Password:     os.Getenv("CURLBOT_PASSWORD"),
				Subreddit:    os.Getenv("CURLBOT_SUBREDDIT"),
				UserAgent:    os.Getenv("CURLBOT_USER_AGENT"),
			}
			if cfg.UserAgent == "" {
				cfg.UserAgent = "curlbot-v2/" + version + " (by /u/" + cfg.Username + ")"
			}
			client, err := reddit.New(cfg, logger.Named("reddit"))
			if err != nil {
				return err
			}

			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			st, err := store.New(db)
			if err != nil {
				return err
			}

			loader := rule.NewLoader(client, wikiPage, logger.Named("rule"))
			eng := engine.New(client, logger.Named("engine"))
			chk := checker.New(client, loader, st, eng, logger.Named("checker"))

			var hb *heartbeat.Action
			if heartbeatPostID != "" {
				hb = heartbeat.New(client, heartbeatPostID, logger.Named("heartbeat"))
			}

			logger.Info("Starting curlbot",
				zap.String("version", version),
				zap.String("subreddit", cfg.Subreddit),
				zap.String("db_path", dbPath),
				zap.Duration("scan_interval", scanInterval),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go serveMetrics(ctx, metricsAddr, logger)

			return runLoop(ctx, chk, hb, scanInterval, heartbeatInterval, logger)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "curlbot.db", "Path to the SQLite post-history database.")
	cmd.Flags().StringVar(&wikiPage, "wiki-page", "routine_checker_config", "Subreddit wiki page holding the moderation rules.")
	cmd.Flags().DurationVar(&scanInterval, "scan-interval", 10*time.Minute, "How often to scan for new posts.")
	cmd.Flags().DurationVar(&heartbeatInterval, "heartbeat-interval", time.Hour, "How often to refresh the sign-of-life profile post.")
	cmd.Flags().StringVar(&heartbeatPostID, "heartbeat-post-id", "", "ID of the bot's profile post to use as a sign-of-life heartbeat. Empty disables the heartbeat.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to.")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging.")
	return cmd
}

// runLoop runs a scan immediately, then on every interval until the context
// is cancelled. State corruption is the one error that stops the loop; every
// other tick failure is logged and retried on the next interval.
func runLoop(ctx context.Context, chk *checker.Checker, hb *heartbeat.Action, scanInterval, heartbeatInterval time.Duration, logger *zap.Logger) error {
	tick := func() error {
		if err := chk.RunTick(ctx); err != nil {
			if errors.Is(err, store.ErrCorrupt) {
				return err
			}
			logger.Error("Scan failed", zap.Error(err))
		}
		return nil
	}

	beat := func() {
		if hb == nil {
			return
		}
		if err := hb.Run(ctx); err != nil {
			logger.Warn("Heartbeat update failed", zap.Error(err))
		}
	}

	if err := tick(); err != nil {
		return err
	}
	beat()

	scanTicker := time.NewTicker(scanInterval)
	defer scanTicker.Stop()
	beatTicker := time.NewTicker(heartbeatInterval)
	defer beatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return nil
		case <-scanTicker.C:
			if err := tick(); err != nil {
				return err
			}
		case <-beatTicker.C:
			beat()
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
