package replay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marketsim/internal/engine"
	"marketsim/internal/model"
	"marketsim/internal/storage"
)

// RunConfig holds runtime settings for a command-log run.
type RunConfig struct {
	CommandsPath string
	SnapshotPath string
	BatchSize    int
}

// Runner applies a command log to an engine and sinks the resulting
// event stream. Commands the engine rejects are logged and skipped;
// they produce no event, so reruns and replays stay aligned.
type Runner struct {
	cfg    RunConfig
	eng    *engine.Engine
	sink   storage.EventSink
	logger *zap.Logger
}

func NewRunner(cfg RunConfig, eng *engine.Engine, sink storage.EventSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, eng: eng, sink: sink, logger: logger}
}

// Run executes the command log. Returns the final state digest.
func (r *Runner) Run(ctx context.Context) (string, error) {
	if r.eng == nil {
		return "", fmt.Errorf("engine is nil")
	}
	if r.sink == nil {
		return "", fmt.Errorf("event sink is nil")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 100
	}

	commands, err := storage.ReadCommands(r.cfg.CommandsPath)
	if err != nil {
		return "", err
	}

	batch := make([]model.EventRecord, 0, r.cfg.BatchSize)
	var applied, rejected int
	for _, cmd := range commands {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		event, err := r.eng.Apply(cmd)
		if err != nil {
			rejected++
			r.logger.Warn("command rejected",
				zap.Uint64("seq", cmd.Seq),
				zap.String("type", string(cmd.Type)),
				zap.Error(err),
			)
			continue
		}
		applied++
		batch = append(batch, event)

		if len(batch) >= r.cfg.BatchSize {
			if err := r.sink.PutEventBatch(batch); err != nil {
				return "", fmt.Errorf("store events: %w", err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := r.sink.PutEventBatch(batch); err != nil {
			return "", fmt.Errorf("store events: %w", err)
		}
	}

	if r.cfg.SnapshotPath != "" {
		snapStore := storage.NewSnapshotStore(r.cfg.SnapshotPath)
		if err := snapStore.Save(r.eng.Snapshot()); err != nil {
			return "", err
		}
	}

	digest, err := r.eng.Digest()
	if err != nil {
		return "", err
	}

	r.logger.Info("run complete",
		zap.Int("applied", applied),
		zap.Int("rejected", rejected),
		zap.String("digest", digest),
	)

	return digest, nil
}
