package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketsim/internal/model"
)

// Store provides Postgres persistence for snapshots and standings.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshot stores the latest save for a run.
func (s *Store) UpsertSnapshot(ctx context.Context, runName string, seq uint64, digest string, snap model.Snapshot) error {
	if runName == "" {
		return fmt.Errorf("run name required")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO snapshots (run_name, seq, digest, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (run_name)
		DO UPDATE SET
			seq = EXCLUDED.seq,
			digest = EXCLUDED.digest,
			payload = EXCLUDED.payload,
			updated_at = now()
	`, runName, int64(seq), digest, payload)
	return err
}

// LoadSnapshot returns the stored save for a run, if any.
func (s *Store) LoadSnapshot(ctx context.Context, runName string) (model.Snapshot, uint64, bool, error) {
	var payload []byte
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT seq, payload FROM snapshots WHERE run_name=$1`, runName)
	if err := row.Scan(&seq, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, 0, false, nil
		}
		return model.Snapshot{}, 0, false, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return model.Snapshot{}, 0, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, uint64(seq), true, nil
}

// UpsertStandings inserts or updates leaderboard rows for a run.
func (s *Store) UpsertStandings(ctx context.Context, runName string, standings []model.Standing) error {
	if len(standings) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, standing := range standings {
		batch.Queue(`
			INSERT INTO standings (run_name, player, net_worth, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (run_name, player)
			DO UPDATE SET
				net_worth = EXCLUDED.net_worth,
				updated_at = now()
		`,
			runName,
			standing.Player,
			standing.NetWorth.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range standings {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last persisted event sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM run_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts the last persisted event sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}
