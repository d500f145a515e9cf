package model

import "cosmossdk.io/math"

// Standing is one leaderboard row: an owner's net worth measured in
// the base token at snapshot time.
type Standing struct {
	Player   string         `json:"player"`
	NetWorth math.LegacyDec `json:"net_worth"`
}
