package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	csml "github.com/SINHASantos/csml-engine"
	"github.com/SINHASantos/csml-engine/internal/config"
	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/internal/server"
	"github.com/SINHASantos/csml-engine/pkg/adapters/bolt"
	"github.com/SINHASantos/csml-engine/pkg/adapters/redis"
	"github.com/SINHASantos/csml-engine/pkg/bot"
	"github.com/SINHASantos/csml-engine/pkg/encrypt"
	"github.com/SINHASantos/csml-engine/pkg/metrics"
	"github.com/SINHASantos/csml-engine/pkg/notify"
	"github.com/SINHASantos/csml-engine/pkg/persistence"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the engine in server mode, exposing conversation events and history as a JSON API over HTTP. Storage, encryption and webhook settings come from the environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides "+config.EnvListenAddr+")")
}

func runServe(cmd *cobra.Command) error {
	manifest, _ := cmd.Flags().GetString("bot")
	addrFlag, _ := cmd.Flags().GetString("addr")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	addr := cfg.ListenAddr
	if addrFlag != "" {
		addr = addrFlag
	}

	b, err := bot.Load(manifest)
	if err != nil {
		return err
	}

	var backend ports.Backend
	if cfg.RedisAddr != "" {
		rdb := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		backend = rdb
		logger.Info("using redis backend", "addr", cfg.RedisAddr)
	} else {
		bdb, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		defer bdb.Close()
		backend = bdb
		logger.Info("using bolt backend", "path", cfg.BoltPath)
	}

	var cipher ports.Cipher = encrypt.Noop{}
	if len(cfg.EncryptionKey) > 0 {
		cipher, err = encrypt.New(cfg.EncryptionKey)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no encryption key configured, payloads are stored in clear")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := persistence.NewStore(cfg.TableName, backend, cipher,
		persistence.WithStoreLogger(logger),
		persistence.WithRetrier(persistence.NewRetrier(
			persistence.WithRetryLogger(logger),
			persistence.WithRetryHooks(
				func(int64) { m.RetryAttempts.Inc() },
				func() { m.RetryExhausted.Inc() },
			),
		)),
	)

	engineOpts := []csml.Option{csml.WithLogger(logger), csml.WithMetrics(m)}
	if cfg.WebhookURL != "" {
		engineOpts = append(engineOpts, csml.WithNotifier(notify.New(cfg.WebhookURL)))
	}
	engine := csml.New(b, store, engineOpts...)

	handler := server.New(engine, server.WithLogger(logger)).Handler(reg)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting server", "addr", srv.Addr, "bot", b.Name)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return err
			}
		}
		logger.Info("server stopped")
	}
	return nil
}
