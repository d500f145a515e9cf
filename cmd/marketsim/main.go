package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marketsim/internal/config"
	"marketsim/internal/engine"
	"marketsim/internal/replay"
	"marketsim/internal/storage"
	"marketsim/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "marketsim",
		Short:        "Deterministic market simulation engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a command log and write events and a snapshot",
		RunE:  runEngine,
	}

	runCmd.Flags().String("commands", "", "input commands JSONL path")
	runCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL path")
	runCmd.Flags().String("snapshot", "./data/snapshot.json", "output snapshot path")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for snapshot and standings")
	runCmd.Flags().String("run-name", "default", "run name for persistence")
	runCmd.Flags().Int("batch-size", 100, "events per storage batch")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify an event log replays bit-for-bit",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("events", "", "input events JSONL path")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Compute a uniform clearing price for a bids file",
		RunE:  runClear,
	}

	clearCmd.Flags().String("bids", "", "input bids JSONL path")
	clearCmd.Flags().String("supply", "", "tokens available")
	clearCmd.Flags().String("min-price", "1", "floor price")
	clearCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(clearCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEngine(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Commands == "" {
		return fmt.Errorf("commands path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(logger)
	sink := storage.NewJsonlStorage(cfg.EventsOut)

	runner := replay.NewRunner(replay.RunConfig{
		CommandsPath: cfg.Commands,
		SnapshotPath: cfg.Snapshot,
		BatchSize:    cfg.BatchSize,
	}, eng, sink, logger)

	logger.Info("run start",
		zap.String("commands", cfg.Commands),
		zap.String("events_out", cfg.EventsOut),
		zap.String("snapshot", cfg.Snapshot),
		zap.Int("batch_size", cfg.BatchSize),
	)

	digest, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		seq := eng.Seq()
		if err := store.UpsertSnapshot(ctx, cfg.RunName, seq, digest, eng.Snapshot()); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
		if err := store.UpsertStandings(ctx, cfg.RunName, eng.Standings()); err != nil {
			return fmt.Errorf("persist standings: %w", err)
		}
		if err := store.SaveState(ctx, cfg.RunName, seq); err != nil {
			return fmt.Errorf("persist run state: %w", err)
		}
		logger.Info("persisted to postgres",
			zap.String("run_name", cfg.RunName),
			zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
			zap.Uint64("seq", seq),
		)
	}

	return nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Events == "" {
		return fmt.Errorf("events path is required")
	}

	logger.Info("replay start", zap.String("events", cfg.Events))

	if _, err := replay.Verify(cfg.Events, logger); err != nil {
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
