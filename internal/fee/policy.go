package fee

import (
	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// Modifiers are caller-supplied inputs from the market-event layer.
// Nil values mean "no modifier": multiplier 1, volatility 0.
type Modifiers struct {
	FeeMultiplier math.LegacyDec
	Volatility    math.LegacyDec
}

var (
	maxBps = math.LegacyNewDec(10000)
	oneDec = math.LegacyOneDec()
)

// EffectiveFeeBps computes the fee rate in basis points for a trade of
// amountIn of tokenInID against pool. The result is always inside
// [0, 10000); invalid inputs clamp instead of erroring.
func EffectiveFeeBps(pool *model.Pool, amountIn math.LegacyDec, tokenInID string, mods Modifiers) math.LegacyDec {
	bps := math.LegacyNewDec(pool.BaseFeeBps)

	if pool.Hook != nil {
		bps = hookFeeBps(pool, amountIn, tokenInID, mods)
	}

	if !mods.FeeMultiplier.IsNil() && !mods.FeeMultiplier.IsNegative() {
		bps = bps.Mul(mods.FeeMultiplier)
	}

	return clampBps(bps)
}

// hookFeeBps dispatches on the hook kind. Every branch clamps into the
// hook's declared [min, max] range; unknown kinds degrade to the base
// fee clamped into range so new tags never break callers.
func hookFeeBps(pool *model.Pool, amountIn math.LegacyDec, tokenInID string, mods Modifiers) math.LegacyDec {
	hook := pool.Hook
	min := math.LegacyNewDec(hook.MinFeeBps)
	max := math.LegacyNewDec(hook.MaxFeeBps)
	if max.LT(min) {
		min, max = max, min
	}
	base := clampRange(math.LegacyNewDec(pool.BaseFeeBps), min, max)
	span := max.Sub(min)

	switch hook.Kind {
	case model.HookVolatilityOracle:
		vol := math.LegacyZeroDec()
		if !mods.Volatility.IsNil() {
			vol = clamp01(mods.Volatility)
		}
		return min.Add(span.Mul(vol))

	case model.HookLimitOrder:
		return base

	case model.HookConcentratedLP:
		// Tight ranges reward small trades: scale min->max over the
		// first 10% of the in-side reserve.
		scaled := clamp01(tradeRatio(pool, amountIn, tokenInID).MulInt64(10))
		return min.Add(span.Mul(scaled))

	case model.HookAutoRebalance:
		if movesTowardTarget(pool, tokenInID, hook.Params["target_ratio"]) {
			return min
		}
		return base

	case model.HookFlashLoanGuard:
		threshold := paramDec(hook.Params["threshold_pct"], math.LegacyNewDec(10))
		pct := tradeRatio(pool, amountIn, tokenInID).MulInt64(100)
		if pct.GT(threshold) {
			return max
		}
		return base

	case model.HookMevShare:
		return min.Add(span.Mul(clamp01(tradeRatio(pool, amountIn, tokenInID))))

	default:
		return base
	}
}

// tradeRatio is amountIn over the in-side reserve, 1 when the reserve
// is not positive.
func tradeRatio(pool *model.Pool, amountIn math.LegacyDec, tokenInID string) math.LegacyDec {
	reserveIn := pool.ReserveA
	if tokenInID == pool.TokenB.ID {
		reserveIn = pool.ReserveB
	}
	if reserveIn.IsNil() || !reserveIn.IsPositive() || amountIn.IsNil() || amountIn.IsNegative() {
		return oneDec
	}
	return amountIn.Quo(reserveIn)
}

// movesTowardTarget reports whether buying tokenInID pushes the pool's
// A/B reserve ratio toward the hook's target ratio.
func movesTowardTarget(pool *model.Pool, tokenInID string, rawTarget string) bool {
	target, err := math.LegacyNewDecFromStr(rawTarget)
	if err != nil || !target.IsPositive() {
		return false
	}
	if pool.ReserveB.IsNil() || !pool.ReserveB.IsPositive() {
		return false
	}
	ratio := pool.ReserveA.Quo(pool.ReserveB)
	if tokenInID == pool.TokenA.ID {
		return ratio.LT(target)
	}
	return ratio.GT(target)
}

func paramDec(raw string, fallback math.LegacyDec) math.LegacyDec {
	parsed, err := math.LegacyNewDecFromStr(raw)
	if err != nil || parsed.IsNegative() {
		return fallback
	}
	return parsed
}

func clamp01(d math.LegacyDec) math.LegacyDec {
	return clampRange(d, math.LegacyZeroDec(), oneDec)
}

func clampRange(d, min, max math.LegacyDec) math.LegacyDec {
	return math.LegacyMaxDec(min, math.LegacyMinDec(max, d))
}

// clampBps keeps a rate inside [0, 10000).
func clampBps(d math.LegacyDec) math.LegacyDec {
	if d.IsNegative() {
		return math.LegacyZeroDec()
	}
	if d.GTE(maxBps) {
		return maxBps.Sub(math.LegacySmallestDec())
	}
	return d
}
