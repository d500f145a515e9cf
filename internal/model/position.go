package model

import "cosmossdk.io/math"

// LPPosition is one provider's stake in a pool.
// CheckpointA/B record the pool fee-growth accumulators at the last
// settlement; accrued fees are SharePercent * (growth - checkpoint).
type LPPosition struct {
	ID           string         `json:"id"`
	Owner        string         `json:"owner"`
	PoolID       string         `json:"pool_id"`
	SharePercent math.LegacyDec `json:"share_percent"`
	InitialA     math.LegacyDec `json:"initial_a"`
	InitialB     math.LegacyDec `json:"initial_b"`
	FeesEarnedA  math.LegacyDec `json:"fees_earned_a"`
	FeesEarnedB  math.LegacyDec `json:"fees_earned_b"`
	CheckpointA  math.LegacyDec `json:"checkpoint_a"`
	CheckpointB  math.LegacyDec `json:"checkpoint_b"`
}
