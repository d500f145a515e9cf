package replay

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cosmossdk.io/math"

	"marketsim/internal/engine"
	"marketsim/internal/model"
	"marketsim/internal/storage"
)

func writeCommands(t *testing.T, path string, cmds []model.CommandRecord) {
	t.Helper()
	var sb strings.Builder
	for _, cmd := range cmds {
		line, err := json.Marshal(cmd)
		if err != nil {
			t.Fatalf("marshal command: %v", err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write commands: %v", err)
	}
}

func command(t *testing.T, seq uint64, typ model.CommandType, payload any) model.CommandRecord {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return model.CommandRecord{Seq: seq, Type: typ, Payload: raw}
}

func gameCommands(t *testing.T) []model.CommandRecord {
	t.Helper()
	return []model.CommandRecord{
		command(t, 1, model.CmdCreateToken, model.CreateTokenCmd{
			Token: model.Token{ID: "usd", Symbol: "USD", IsBase: true}}),
		command(t, 2, model.CmdCreateToken, model.CreateTokenCmd{
			Token: model.Token{ID: "gem", Symbol: "GEM"}}),
		command(t, 3, model.CmdCreatePool, model.CreatePoolCmd{
			PoolID: "gem-usd", Owner: "player", TokenAID: "gem", TokenBID: "usd",
			ReserveA: math.LegacyNewDec(100), ReserveB: math.LegacyNewDec(1000), BaseFeeBps: 30}),
		command(t, 4, model.CmdSwap, model.SwapCmd{
			PoolID: "gem-usd", Trader: "player", TokenInID: "gem", AmountIn: math.LegacyNewDec(5)}),
		command(t, 5, model.CmdCredit, model.CreditCmd{
			Owner: "alice", TokenID: "usd", Amount: math.LegacyNewDec(100)}),
	}
}

func TestRunnerProducesVerifiableLog(t *testing.T) {
	dir := t.TempDir()
	commandsPath := filepath.Join(dir, "commands.jsonl")
	eventsPath := filepath.Join(dir, "events.jsonl")
	snapshotPath := filepath.Join(dir, "snapshot.json")

	writeCommands(t, commandsPath, gameCommands(t))

	runner := NewRunner(RunConfig{
		CommandsPath: commandsPath,
		SnapshotPath: snapshotPath,
		BatchSize:    2,
	}, engine.New(nil), storage.NewJsonlStorage(eventsPath), nil)

	digest, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	events, err := storage.ReadEvents(eventsPath)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("events %d, want 5", len(events))
	}
	if events[4].StateDigest != digest {
		t.Fatalf("final event digest %s != run digest %s", events[4].StateDigest, digest)
	}

	verified, err := Verify(eventsPath, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified != digest {
		t.Fatalf("verify digest %s != run digest %s", verified, digest)
	}

	snap, ok, err := storage.NewSnapshotStore(snapshotPath).Load()
	if err != nil || !ok {
		t.Fatalf("load snapshot: ok=%v err=%v", ok, err)
	}
	if len(snap.Tokens) != 2 || len(snap.Pools) != 1 {
		t.Fatalf("snapshot has %d tokens, %d pools, want 2 and 1", len(snap.Tokens), len(snap.Pools))
	}
}

func TestRunnerSkipsRejectedCommands(t *testing.T) {
	dir := t.TempDir()
	commandsPath := filepath.Join(dir, "commands.jsonl")
	eventsPath := filepath.Join(dir, "events.jsonl")

	cmds := gameCommands(t)
	// swapping against a pool that doesn't exist must not break the run
	cmds = append(cmds, command(t, 6, model.CmdSwap, model.SwapCmd{
		PoolID: "no-such-pool", TokenInID: "gem", AmountIn: math.LegacyNewDec(1)}))
	cmds = append(cmds, command(t, 7, model.CmdCredit, model.CreditCmd{
		Owner: "bob", TokenID: "usd", Amount: math.LegacyNewDec(10)}))
	writeCommands(t, commandsPath, cmds)

	runner := NewRunner(RunConfig{CommandsPath: commandsPath, BatchSize: 100},
		engine.New(nil), storage.NewJsonlStorage(eventsPath), nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events, err := storage.ReadEvents(eventsPath)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("events %d, want 6 (5 + trailing credit)", len(events))
	}
	if _, err := Verify(eventsPath, nil); err != nil {
		t.Fatalf("verify after rejection: %v", err)
	}
}

func TestRunnerHonorsContextCancel(t *testing.T) {
	dir := t.TempDir()
	commandsPath := filepath.Join(dir, "commands.jsonl")
	writeCommands(t, commandsPath, gameCommands(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(RunConfig{CommandsPath: commandsPath, BatchSize: 100},
		engine.New(nil), storage.NewJsonlStorage(filepath.Join(dir, "events.jsonl")), nil)
	if _, err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	commandsPath := filepath.Join(dir, "commands.jsonl")
	eventsPath := filepath.Join(dir, "events.jsonl")
	writeCommands(t, commandsPath, gameCommands(t))

	runner := NewRunner(RunConfig{CommandsPath: commandsPath, BatchSize: 100},
		engine.New(nil), storage.NewJsonlStorage(eventsPath), nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events, err := storage.ReadEvents(eventsPath)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	events[2].StateDigest = strings.Repeat("0", 64)

	tampered := filepath.Join(dir, "tampered.jsonl")
	if err := storage.NewJsonlStorage(tampered).PutEventBatch(events); err != nil {
		t.Fatalf("write tampered log: %v", err)
	}

	_, err = Verify(tampered, nil)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("got %v, want digest mismatch at seq 3", err)
	}
	if !strings.Contains(err.Error(), "seq 3") {
		t.Fatalf("error %v does not name the offending seq", err)
	}
}

func TestVerifyRejectsEmptyLog(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty log: %v", err)
	}
	if _, err := Verify(empty, nil); err == nil {
		t.Fatalf("empty log verified")
	}
}
