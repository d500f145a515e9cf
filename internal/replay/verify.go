package replay

import (
	"fmt"

	"go.uber.org/zap"

	"marketsim/internal/engine"
	"marketsim/internal/model"
	"marketsim/internal/storage"
)

// Verify re-applies the commands embedded in an event log against a
// fresh engine and checks every logged state digest. Any divergence
// breaks the determinism guarantee and is reported with the first
// offending sequence number. Returns the final digest on success.
func Verify(eventsPath string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	events, err := storage.ReadEvents(eventsPath)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", fmt.Errorf("event log %s is empty", eventsPath)
	}

	eng := engine.New(logger)
	for _, logged := range events {
		replayed, err := eng.Apply(model.CommandRecord{
			Seq:     logged.Seq,
			Type:    logged.Type,
			Payload: logged.Command,
		})
		if err != nil {
			return "", fmt.Errorf("seq %d: logged command no longer applies: %w", logged.Seq, err)
		}
		if replayed.StateDigest != logged.StateDigest {
			return "", fmt.Errorf("seq %d: digest mismatch: logged %s, replayed %s",
				logged.Seq, logged.StateDigest, replayed.StateDigest)
		}
	}

	final := events[len(events)-1].StateDigest
	logger.Info("verify complete",
		zap.Int("events", len(events)),
		zap.String("digest", final),
	)
	return final, nil
}
