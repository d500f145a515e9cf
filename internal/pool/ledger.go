package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// Ledger tracks LP positions per pool. Iteration always follows
// creation order so settlement and snapshots are reproducible.
type Ledger struct {
	positions map[string]*model.LPPosition
	byPool    map[string][]string
	order     []string
}

func NewLedger() *Ledger {
	return &Ledger{
		positions: make(map[string]*model.LPPosition),
		byPool:    make(map[string][]string),
	}
}

// Position returns the position with the given ID, if present.
func (l *Ledger) Position(id string) (*model.LPPosition, bool) {
	pos, ok := l.positions[id]
	return pos, ok
}

// PoolPositions returns the pool's positions in creation order.
func (l *Ledger) PoolPositions(poolID string) []*model.LPPosition {
	ids := l.byPool[poolID]
	out := make([]*model.LPPosition, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.positions[id])
	}
	return out
}

// Add registers a new position.
func (l *Ledger) Add(pos *model.LPPosition) error {
	if _, exists := l.positions[pos.ID]; exists {
		return fmt.Errorf("position %s already exists", pos.ID)
	}
	l.positions[pos.ID] = pos
	l.byPool[pos.PoolID] = append(l.byPool[pos.PoolID], pos.ID)
	l.order = append(l.order, pos.ID)
	return nil
}

// Remove deletes a fully withdrawn position.
func (l *Ledger) Remove(id string) {
	pos, ok := l.positions[id]
	if !ok {
		return
	}
	delete(l.positions, id)
	l.byPool[pos.PoolID] = removeID(l.byPool[pos.PoolID], id)
	l.order = removeID(l.order, id)
}

// Settle realizes a position's pending fee accrual against the pool's
// fee-growth accumulators and advances its checkpoints. This is the
// O(1) lazy half of the accumulator scheme: swaps never touch
// positions, positions catch up here.
func Settle(p *model.Pool, pos *model.LPPosition) {
	deltaA := p.FeeGrowthA.Sub(pos.CheckpointA)
	if deltaA.IsPositive() {
		pos.FeesEarnedA = pos.FeesEarnedA.Add(pos.SharePercent.MulTruncate(deltaA))
	}
	deltaB := p.FeeGrowthB.Sub(pos.CheckpointB)
	if deltaB.IsPositive() {
		pos.FeesEarnedB = pos.FeesEarnedB.Add(pos.SharePercent.MulTruncate(deltaB))
	}
	pos.CheckpointA = p.FeeGrowthA
	pos.CheckpointB = p.FeeGrowthB
}

// SettleAll settles every position of a pool. Needed before any
// operation that rescales share percentages.
func (l *Ledger) SettleAll(p *model.Pool) {
	for _, pos := range l.PoolPositions(p.ID) {
		Settle(p, pos)
	}
}

// AccruedFees returns a position's earned fees including the pending,
// not-yet-settled accrual. Read-only.
func AccruedFees(p *model.Pool, pos *model.LPPosition) (math.LegacyDec, math.LegacyDec) {
	feesA := pos.FeesEarnedA
	feesB := pos.FeesEarnedB
	if deltaA := p.FeeGrowthA.Sub(pos.CheckpointA); deltaA.IsPositive() {
		feesA = feesA.Add(pos.SharePercent.MulTruncate(deltaA))
	}
	if deltaB := p.FeeGrowthB.Sub(pos.CheckpointB); deltaB.IsPositive() {
		feesB = feesB.Add(pos.SharePercent.MulTruncate(deltaB))
	}
	return feesA, feesB
}

// totalShare recomputes the pool's share sum in creation order.
func (l *Ledger) totalShare(poolID string) math.LegacyDec {
	sum := math.LegacyZeroDec()
	for _, pos := range l.PoolPositions(poolID) {
		sum = sum.Add(pos.SharePercent)
	}
	return sum
}

// Snapshot returns all positions in creation order as values.
func (l *Ledger) Snapshot() []model.LPPosition {
	out := make([]model.LPPosition, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.positions[id])
	}
	return out
}

// Restore replaces the ledger contents from snapshot values.
func (l *Ledger) Restore(positions []model.LPPosition) {
	l.positions = make(map[string]*model.LPPosition, len(positions))
	l.byPool = make(map[string][]string)
	l.order = l.order[:0]
	for i := range positions {
		pos := positions[i]
		l.positions[pos.ID] = &pos
		l.byPool[pos.PoolID] = append(l.byPool[pos.PoolID], pos.ID)
		l.order = append(l.order, pos.ID)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
