package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// CreatePool is the first-liquidity path: the creator supplies both
// reserves at a ratio of their choosing and receives a 100% position.
func CreatePool(led *Ledger, id, positionID, owner string, tokenA, tokenB model.Token, reserveA, reserveB math.LegacyDec, baseFeeBps int64, hook *model.Hook) (*model.Pool, *model.LPPosition, error) {
	if reserveA.IsNil() || reserveB.IsNil() || !reserveA.IsPositive() || !reserveB.IsPositive() {
		return nil, nil, fmt.Errorf("initial reserves must be positive: %w", model.ErrInvalidAmount)
	}
	if tokenA.ID == tokenB.ID {
		return nil, nil, fmt.Errorf("pool tokens must differ: %w", model.ErrUnknownToken)
	}
	if baseFeeBps < 0 || baseFeeBps >= 10000 {
		return nil, nil, fmt.Errorf("base fee %d out of range: %w", baseFeeBps, model.ErrInvalidAmount)
	}

	p := &model.Pool{
		ID:             id,
		TokenA:         tokenA,
		TokenB:         tokenB,
		ReserveA:       reserveA,
		ReserveB:       reserveB,
		BaseFeeBps:     baseFeeBps,
		Hook:           hook,
		FeesCollectedA: math.LegacyZeroDec(),
		FeesCollectedB: math.LegacyZeroDec(),
		FeeGrowthA:     math.LegacyZeroDec(),
		FeeGrowthB:     math.LegacyZeroDec(),
		TotalShare:     hundred,
	}
	pos := &model.LPPosition{
		ID:           positionID,
		Owner:        owner,
		PoolID:       id,
		SharePercent: hundred,
		InitialA:     reserveA,
		InitialB:     reserveB,
		FeesEarnedA:  math.LegacyZeroDec(),
		FeesEarnedB:  math.LegacyZeroDec(),
		CheckpointA:  math.LegacyZeroDec(),
		CheckpointB:  math.LegacyZeroDec(),
	}
	if err := led.Add(pos); err != nil {
		return nil, nil, err
	}
	return p, pos, nil
}

// AddResult is the outcome of AddLiquidity.
type AddResult struct {
	RequiredAmountB math.LegacyDec
	Position        *model.LPPosition
}

// AddLiquidity deposits amountA plus the ratio-matched amount of B.
// Existing positions are settled and rescaled so the share sum never
// exceeds 100. RequiredAmountB rounds up: the pool is never
// under-collateralized by a deposit.
func AddLiquidity(p *model.Pool, led *Ledger, positionID, owner string, amountA math.LegacyDec) (AddResult, error) {
	if amountA.IsNil() || !amountA.IsPositive() {
		return AddResult{}, fmt.Errorf("deposit must be positive: %w", model.ErrInvalidAmount)
	}
	if !p.ReserveA.IsPositive() || !p.ReserveB.IsPositive() {
		return AddResult{}, fmt.Errorf("pool %s has no reserves: %w", p.ID, model.ErrInvalidAmount)
	}
	// every failable check runs before the first mutation
	if _, exists := led.Position(positionID); exists {
		return AddResult{}, fmt.Errorf("position %s already exists: %w", positionID, model.ErrInvalidAmount)
	}

	requiredB := amountA.Mul(p.ReserveB).QuoRoundUp(p.ReserveA)

	led.SettleAll(p)

	oldReserveA := p.ReserveA
	newReserveA := p.ReserveA.Add(amountA)
	newShare := amountA.MulInt64(100).QuoTruncate(newReserveA)
	// truncate the factor too, or rounding could push the sum past 100
	rescale := oldReserveA.QuoTruncate(newReserveA)
	for _, pos := range led.PoolPositions(p.ID) {
		pos.SharePercent = pos.SharePercent.MulTruncate(rescale)
	}

	p.ReserveA = newReserveA
	p.ReserveB = p.ReserveB.Add(requiredB)

	pos := &model.LPPosition{
		ID:           positionID,
		Owner:        owner,
		PoolID:       p.ID,
		SharePercent: newShare,
		InitialA:     amountA,
		InitialB:     requiredB,
		FeesEarnedA:  math.LegacyZeroDec(),
		FeesEarnedB:  math.LegacyZeroDec(),
		CheckpointA:  p.FeeGrowthA,
		CheckpointB:  p.FeeGrowthB,
	}
	if err := led.Add(pos); err != nil {
		return AddResult{}, err
	}
	p.TotalShare = led.totalShare(p.ID)

	return AddResult{RequiredAmountB: requiredB, Position: pos}, nil
}

// RemoveResult is the outcome of RemoveLiquidity.
type RemoveResult struct {
	ReturnedA     math.LegacyDec
	ReturnedB     math.LegacyDec
	ReturnedFeesA math.LegacyDec
	ReturnedFeesB math.LegacyDec
	Deleted       bool
}

// RemoveLiquidity withdraws sharePercent points from a position,
// returning the matching slice of both reserves plus the proportional
// part of the position's accrued fees. Remaining positions are
// rescaled upward so share percentages keep tracking true reserve
// fractions; a position at zero share is deleted.
func RemoveLiquidity(p *model.Pool, led *Ledger, positionID string, sharePercent math.LegacyDec) (RemoveResult, error) {
	pos, ok := led.Position(positionID)
	if !ok || pos.PoolID != p.ID {
		return RemoveResult{}, fmt.Errorf("position %s: %w", positionID, model.ErrUnknownPool)
	}
	if sharePercent.IsNil() || !sharePercent.IsPositive() {
		return RemoveResult{}, fmt.Errorf("withdraw share must be positive: %w", model.ErrInvalidAmount)
	}
	if sharePercent.GT(pos.SharePercent) {
		return RemoveResult{}, fmt.Errorf("withdraw share %s exceeds held %s: %w",
			sharePercent, pos.SharePercent, model.ErrInvalidAmount)
	}

	led.SettleAll(p)

	returnedA := p.ReserveA.Mul(sharePercent).QuoTruncate(hundred)
	returnedB := p.ReserveB.Mul(sharePercent).QuoTruncate(hundred)

	// Proportional slice of the settled fee accrual.
	fraction := sharePercent.Quo(pos.SharePercent)
	feesA := pos.FeesEarnedA.MulTruncate(fraction)
	feesB := pos.FeesEarnedB.MulTruncate(fraction)
	pos.FeesEarnedA = pos.FeesEarnedA.Sub(feesA)
	pos.FeesEarnedB = pos.FeesEarnedB.Sub(feesB)

	oldReserveA := p.ReserveA
	p.ReserveA = p.ReserveA.Sub(returnedA)
	p.ReserveB = p.ReserveB.Sub(returnedB)
	pos.SharePercent = pos.SharePercent.Sub(sharePercent)

	if p.ReserveA.IsPositive() {
		rescale := oldReserveA.QuoTruncate(p.ReserveA)
		for _, other := range led.PoolPositions(p.ID) {
			other.SharePercent = other.SharePercent.MulTruncate(rescale)
		}
	}

	deleted := pos.SharePercent.IsZero()
	if deleted {
		led.Remove(positionID)
	}
	p.TotalShare = led.totalShare(p.ID)

	return RemoveResult{
		ReturnedA:     returnedA,
		ReturnedB:     returnedB,
		ReturnedFeesA: feesA,
		ReturnedFeesB: feesB,
		Deleted:       deleted,
	}, nil
}
