package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"marketsim/internal/fee"
	"marketsim/internal/model"
)

var hundred = math.LegacyNewDec(100)

// SwapQuote is the outcome of an executed swap.
type SwapQuote struct {
	TokenOutID string
	AmountOut  math.LegacyDec
	FeeBps     math.LegacyDec
	FeeAmount  math.LegacyDec
}

// Swap trades amountIn of tokenInID against the pool's other side.
// The fee portion stays inside the reserves, so the constant product
// strictly increases for any positive trade. All validation happens
// before the first mutation.
func Swap(p *model.Pool, tokenInID string, amountIn math.LegacyDec, mods fee.Modifiers) (SwapQuote, error) {
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return SwapQuote{}, fmt.Errorf("swap amount must be positive: %w", model.ErrInvalidAmount)
	}
	if !p.HasToken(tokenInID) {
		return SwapQuote{}, fmt.Errorf("token %s not in pool %s: %w", tokenInID, p.ID, model.ErrUnknownToken)
	}
	if !p.ReserveA.IsPositive() || !p.ReserveB.IsPositive() {
		return SwapQuote{}, fmt.Errorf("pool %s is drained: %w", p.ID, model.ErrInsufficientReserves)
	}

	inIsA := tokenInID == p.TokenA.ID
	reserveIn, reserveOut := p.ReserveA, p.ReserveB
	tokenOutID := p.TokenB.ID
	if !inIsA {
		reserveIn, reserveOut = p.ReserveB, p.ReserveA
		tokenOutID = p.TokenA.ID
	}

	feeBps := fee.EffectiveFeeBps(p, amountIn, tokenInID, mods)
	feeFraction := feeBps.Quo(math.LegacyNewDec(10000))
	amountInNet := amountIn.Mul(math.LegacyOneDec().Sub(feeFraction))
	feeAmount := amountIn.Sub(amountInNet)

	// Truncating the output rounds in the pool's favor, which keeps
	// k' >= k even at the 18th decimal.
	amountOut := reserveOut.Mul(amountInNet).QuoTruncate(reserveIn.Add(amountInNet))
	if amountOut.GTE(reserveOut) {
		return SwapQuote{}, fmt.Errorf("amount out %s exceeds reserve %s: %w",
			amountOut, reserveOut, model.ErrInsufficientReserves)
	}

	if inIsA {
		p.ReserveA = p.ReserveA.Add(amountIn)
		p.ReserveB = p.ReserveB.Sub(amountOut)
		p.FeesCollectedA = p.FeesCollectedA.Add(feeAmount)
		if p.TotalShare.IsPositive() {
			p.FeeGrowthA = p.FeeGrowthA.Add(feeAmount.QuoTruncate(p.TotalShare))
		}
	} else {
		p.ReserveB = p.ReserveB.Add(amountIn)
		p.ReserveA = p.ReserveA.Sub(amountOut)
		p.FeesCollectedB = p.FeesCollectedB.Add(feeAmount)
		if p.TotalShare.IsPositive() {
			p.FeeGrowthB = p.FeeGrowthB.Add(feeAmount.QuoTruncate(p.TotalShare))
		}
	}

	return SwapQuote{
		TokenOutID: tokenOutID,
		AmountOut:  amountOut,
		FeeBps:     feeBps,
		FeeAmount:  feeAmount,
	}, nil
}
