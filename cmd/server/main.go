package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternalApril/redismock/internal/config"
	"github.com/eternalApril/redismock/internal/logger"
	"github.com/eternalApril/redismock/internal/pubsub"
	"github.com/eternalApril/redismock/internal/server"
	"github.com/eternalApril/redismock/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configDir string

	cmd := &cobra.Command{
		Use:           "redismock",
		Short:         "In-memory Redis-compatible server for tests and local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(v, configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configDir, "config", "c", ".", "directory containing config.yaml")
	flags.String("host", "", "address to bind")
	flags.StringP("port", "p", "", "TCP port to listen on")
	flags.String("dump-file", "", "snapshot file path")
	flags.Bool("no-persistence", false, "disable snapshot load and save")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "json or console")

	bindings := map[string]string{
		"server.host":          "host",
		"server.port":          "port",
		"persistence.filename": "dump-file",
		"log.level":            "log-level",
		"log.format":           "log-format",
	}
	for key, flag := range bindings {
		// unset flags fall through to env, file and defaults
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if disabled, _ := cmd.Flags().GetBool("no-persistence"); disabled {
			v.Set("persistence.enabled", false)
		}
	}

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	log.Info("redismock starting",
		zap.String("port", cfg.Server.Port),
		zap.Bool("persistence", cfg.Persistence.Enabled),
		zap.String("dump_file", cfg.Persistence.Filename),
	)

	stats := server.NewStats()
	engine, err := server.NewEngine(storage.NewStore(), pubsub.NewHub(log), stats, cfg, log)
	if err != nil {
		log.Error("cant initialize engine", zap.Error(err))
		return err
	}

	srv := server.New(engine, stats, cfg, log)
	if err := srv.Listen(); err != nil {
		log.Error("listener error", zap.Error(err))
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := srv.Serve(ctx)

	log.Info("shutting down...")
	if err := engine.Shutdown(); err != nil {
		log.Error("final snapshot failed", zap.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}

	log.Info("redismock stopped")
	return serveErr
}
