package model

import "cosmossdk.io/math"

// Snapshot is the persisted save-game shape consumed and produced at
// load/save boundaries. Field names are load-bearing for saved-game
// compatibility; amounts serialize as decimal strings. Seq is the
// sequence of the last applied command, so a restored engine keeps
// issuing IDs and events where the save left off.
type Snapshot struct {
	Seq         uint64                    `json:"seq"`
	Inventory   map[string]math.LegacyDec `json:"inventory"`
	LPPositions []LPPosition              `json:"lp_positions"`
	Pools       []Pool                    `json:"pools"`
	Tokens      []Token                   `json:"tokens"`
	Auction     *Auction                  `json:"auction,omitempty"`
	Balances    []BalanceEntry            `json:"balances,omitempty"`
}

// BalanceEntry is one bidder's holdings of one token, with the part
// committed to open bids.
type BalanceEntry struct {
	Owner     string         `json:"owner"`
	TokenID   string         `json:"token_id"`
	Available math.LegacyDec `json:"available"`
	Committed math.LegacyDec `json:"committed"`
}
