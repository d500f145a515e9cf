package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cosmossdk.io/math"
	"go.uber.org/zap"

	"marketsim/internal/auction"
	"marketsim/internal/model"
	"marketsim/internal/pool"
)

// PlayerOwner is the owner ID whose balances surface as the snapshot
// inventory map.
const PlayerOwner = "player"

// Engine owns all market state and mutates it exclusively through
// Apply. One mutex serializes every command; given the same initial
// state and the same ordered commands the event stream and every
// state digest are bit-for-bit reproducible.
type Engine struct {
	mu     sync.Mutex
	logger *zap.Logger

	seq         uint64
	tokens      map[string]model.Token
	tokenOrder  []string
	baseTokenID string
	pools       map[string]*model.Pool
	poolOrder   []string
	ledger      *pool.Ledger
	balances    *auction.EscrowLedger
	auction     *model.Auction
}

func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:   logger,
		tokens:   make(map[string]model.Token),
		pools:    make(map[string]*model.Pool),
		ledger:   pool.NewLedger(),
		balances: auction.NewEscrowLedger(),
	}
}

// Seq returns the sequence number of the last applied command.
func (e *Engine) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Snapshot captures the full engine state in the persisted save shape.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() model.Snapshot {
	tokens := make([]model.Token, 0, len(e.tokenOrder))
	for _, id := range e.tokenOrder {
		tokens = append(tokens, e.tokens[id])
	}
	pools := make([]model.Pool, 0, len(e.poolOrder))
	for _, id := range e.poolOrder {
		pools = append(pools, *e.pools[id])
	}

	balances := e.balances.Snapshot()
	inventory := make(map[string]math.LegacyDec)
	for _, entry := range balances {
		if entry.Owner == PlayerOwner {
			inventory[entry.TokenID] = entry.Available
		}
	}

	snap := model.Snapshot{
		Seq:         e.seq,
		Inventory:   inventory,
		LPPositions: e.ledger.Snapshot(),
		Pools:       pools,
		Tokens:      tokens,
		Balances:    balances,
	}
	if e.auction != nil {
		snap.Auction = cloneAuction(e.auction)
	}
	return snap
}

// cloneAuction deep-copies an auction down to its bid slices, so a
// snapshot and the live engine never share mutable backing arrays.
func cloneAuction(a *model.Auction) *model.Auction {
	copied := *a
	copied.Blocks = make([]model.AuctionBlock, len(a.Blocks))
	copy(copied.Blocks, a.Blocks)
	for i := range copied.Blocks {
		bids := make([]model.AuctionBid, len(copied.Blocks[i].Bids))
		copy(bids, copied.Blocks[i].Bids)
		copied.Blocks[i].Bids = bids
	}
	return &copied
}

// Restore replaces the engine state from a snapshot and resumes its
// command sequence, so generated IDs and event numbering continue
// where the save left off.
func (e *Engine) Restore(snap model.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq = snap.Seq
	e.tokens = make(map[string]model.Token, len(snap.Tokens))
	e.tokenOrder = e.tokenOrder[:0]
	e.baseTokenID = ""
	for _, token := range snap.Tokens {
		if _, dup := e.tokens[token.ID]; dup {
			return fmt.Errorf("snapshot has duplicate token %s", token.ID)
		}
		e.tokens[token.ID] = token
		e.tokenOrder = append(e.tokenOrder, token.ID)
		if token.IsBase && e.baseTokenID == "" {
			e.baseTokenID = token.ID
		}
	}

	e.pools = make(map[string]*model.Pool, len(snap.Pools))
	e.poolOrder = e.poolOrder[:0]
	for i := range snap.Pools {
		p := snap.Pools[i]
		if _, dup := e.pools[p.ID]; dup {
			return fmt.Errorf("snapshot has duplicate pool %s", p.ID)
		}
		e.pools[p.ID] = &p
		e.poolOrder = append(e.poolOrder, p.ID)
	}

	e.ledger.Restore(snap.LPPositions)
	e.balances.Restore(snap.Balances)
	e.auction = nil
	if snap.Auction != nil {
		e.auction = cloneAuction(snap.Auction)
	}
	return nil
}

// Digest is the canonical sha256 over the snapshot JSON. Map keys are
// emitted sorted by encoding/json, so equal states hash equal.
func (e *Engine) Digest() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return digestOf(e.snapshotLocked())
}

func digestOf(snap model.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Standings values every owner's holdings and LP stakes in the base
// token, sorted by net worth descending then name.
func (e *Engine) Standings() []model.Standing {
	e.mu.Lock()
	defer e.mu.Unlock()

	worth := make(map[string]math.LegacyDec)
	for _, entry := range e.balances.Snapshot() {
		price := e.spotPriceLocked(entry.TokenID)
		current := worth[entry.Owner]
		if current.IsNil() {
			current = math.LegacyZeroDec()
		}
		worth[entry.Owner] = current.Add(entry.Available.Mul(price))
	}
	for _, pos := range e.ledger.Snapshot() {
		p, ok := e.pools[pos.PoolID]
		if !ok {
			continue
		}
		priceA := e.spotPriceLocked(p.TokenA.ID)
		priceB := e.spotPriceLocked(p.TokenB.ID)
		feesA, feesB := pool.AccruedFees(p, &pos)
		stake := pos.SharePercent.Quo(math.LegacyNewDec(100))
		value := p.ReserveA.Mul(stake).Mul(priceA).
			Add(p.ReserveB.Mul(stake).Mul(priceB)).
			Add(feesA.Mul(priceA)).
			Add(feesB.Mul(priceB))
		current := worth[pos.Owner]
		if current.IsNil() {
			current = math.LegacyZeroDec()
		}
		worth[pos.Owner] = current.Add(value)
	}

	owners := make([]string, 0, len(worth))
	for owner := range worth {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	standings := make([]model.Standing, 0, len(owners))
	for _, owner := range owners {
		standings = append(standings, model.Standing{Player: owner, NetWorth: worth[owner]})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].NetWorth.GT(standings[j].NetWorth)
	})
	return standings
}

// spotPriceLocked prices a token in base-token units using the first
// created pool that pairs it with the base token. Unpriceable tokens
// value at zero.
func (e *Engine) spotPriceLocked(tokenID string) math.LegacyDec {
	if tokenID == e.baseTokenID {
		return math.LegacyOneDec()
	}
	for _, id := range e.poolOrder {
		p := e.pools[id]
		if !p.ReserveA.IsPositive() || !p.ReserveB.IsPositive() {
			continue
		}
		if p.TokenA.ID == tokenID && p.TokenB.ID == e.baseTokenID {
			return p.ReserveB.Quo(p.ReserveA)
		}
		if p.TokenB.ID == tokenID && p.TokenA.ID == e.baseTokenID {
			return p.ReserveA.Quo(p.ReserveB)
		}
	}
	return math.LegacyZeroDec()
}
