package model

import (
	"encoding/json"

	"cosmossdk.io/math"
)

// CommandType names a mutating engine operation.
type CommandType string

const (
	CmdCreateToken     CommandType = "create_token"
	CmdCreatePool      CommandType = "create_pool"
	CmdSwap            CommandType = "swap"
	CmdAddLiquidity    CommandType = "add_liquidity"
	CmdRemoveLiquidity CommandType = "remove_liquidity"
	CmdCredit          CommandType = "credit"
	CmdCreateAuction   CommandType = "create_auction"
	CmdPlaceBid        CommandType = "place_bid"
	CmdExecuteBlock    CommandType = "execute_block"
)

// CommandRecord is the JSONL envelope for one engine command.
type CommandRecord struct {
	Seq     uint64          `json:"seq"`
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CreateTokenCmd registers a token identity.
type CreateTokenCmd struct {
	Token Token `json:"token"`
}

// CreatePoolCmd is the first-liquidity path: the caller supplies both
// reserves and receives a 100% LP position.
type CreatePoolCmd struct {
	PoolID     string         `json:"pool_id"`
	Owner      string         `json:"owner"`
	TokenAID   string         `json:"token_a_id"`
	TokenBID   string         `json:"token_b_id"`
	ReserveA   math.LegacyDec `json:"reserve_a"`
	ReserveB   math.LegacyDec `json:"reserve_b"`
	BaseFeeBps int64          `json:"base_fee_bps"`
	Hook       *Hook          `json:"hook,omitempty"`
}

// SwapCmd trades AmountIn of TokenInID against a pool. FeeMultiplier
// and Volatility come from the external market-event layer; zero
// values mean "no modifier".
type SwapCmd struct {
	PoolID        string         `json:"pool_id"`
	Trader        string         `json:"trader"`
	TokenInID     string         `json:"token_in_id"`
	AmountIn      math.LegacyDec `json:"amount_in"`
	FeeMultiplier math.LegacyDec `json:"fee_multiplier"`
	Volatility    math.LegacyDec `json:"volatility"`
}

// AddLiquidityCmd deposits AmountA plus the ratio-matched amount of B.
type AddLiquidityCmd struct {
	PoolID  string         `json:"pool_id"`
	Owner   string         `json:"owner"`
	AmountA math.LegacyDec `json:"amount_a"`
}

// RemoveLiquidityCmd withdraws SharePercent points from a position.
type RemoveLiquidityCmd struct {
	PositionID   string         `json:"position_id"`
	SharePercent math.LegacyDec `json:"share_percent"`
}

// CreditCmd funds an owner's balance of a token.
type CreditCmd struct {
	Owner   string         `json:"owner"`
	TokenID string         `json:"token_id"`
	Amount  math.LegacyDec `json:"amount"`
}

// CreateAuctionCmd opens a block-sequenced uniform-price auction.
// BlockSupplies must sum to TotalSupply.
type CreateAuctionCmd struct {
	AuctionID     string           `json:"auction_id"`
	TokenID       string           `json:"token_id"`
	TotalSupply   math.LegacyDec   `json:"total_supply"`
	MinPrice      math.LegacyDec   `json:"min_price"`
	BlockSupplies []math.LegacyDec `json:"block_supplies"`
}

// PlaceBidCmd escrows TotalSpend of the base token against a block.
type PlaceBidCmd struct {
	AuctionID   string         `json:"auction_id"`
	BlockNumber int            `json:"block_number"`
	BidID       string         `json:"bid_id"`
	BidderID    string         `json:"bidder_id"`
	MaxPrice    math.LegacyDec `json:"max_price"`
	TotalSpend  math.LegacyDec `json:"total_spend"`
}

// ExecuteBlockCmd clears and settles the auction's current block.
type ExecuteBlockCmd struct {
	AuctionID   string `json:"auction_id"`
	BlockNumber int    `json:"block_number"`
}
