package model

import "cosmossdk.io/math"

// HookKind tags the fee hook variant attached to a pool.
type HookKind string

const (
	HookVolatilityOracle HookKind = "volatility_oracle"
	HookLimitOrder       HookKind = "limit_order"
	HookConcentratedLP   HookKind = "concentrated_lp"
	HookAutoRebalance    HookKind = "auto_rebalance"
	HookFlashLoanGuard   HookKind = "flash_loan_guard"
	HookMevShare         HookKind = "mev_share"
)

// Hook bounds the effective fee of a pool and carries variant parameters.
type Hook struct {
	Kind      HookKind          `json:"kind"`
	MinFeeBps int64             `json:"min_fee_bps"`
	MaxFeeBps int64             `json:"max_fee_bps"`
	Params    map[string]string `json:"params,omitempty"`
}

// Pool is a constant-product reserve pair.
// FeeGrowthA/B are per-share fee accumulators; TotalShare caches the
// sum of LP share percentages, never above 100.
type Pool struct {
	ID             string         `json:"id"`
	TokenA         Token          `json:"token_a"`
	TokenB         Token          `json:"token_b"`
	ReserveA       math.LegacyDec `json:"reserve_a"`
	ReserveB       math.LegacyDec `json:"reserve_b"`
	BaseFeeBps     int64          `json:"base_fee_bps"`
	Hook           *Hook          `json:"hook,omitempty"`
	FeesCollectedA math.LegacyDec `json:"fees_collected_a"`
	FeesCollectedB math.LegacyDec `json:"fees_collected_b"`
	FeeGrowthA     math.LegacyDec `json:"fee_growth_a"`
	FeeGrowthB     math.LegacyDec `json:"fee_growth_b"`
	TotalShare     math.LegacyDec `json:"total_share"`
}

// HasToken reports whether id is one of the pool's pair tokens.
func (p *Pool) HasToken(id string) bool {
	return id == p.TokenA.ID || id == p.TokenB.ID
}
