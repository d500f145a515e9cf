package model

import (
	"encoding/json"

	"cosmossdk.io/math"
)

// EventRecord is the JSONL envelope for one applied command. The
// originating command is embedded so an event log alone is replayable;
// StateDigest is the canonical snapshot hash after the mutation.
type EventRecord struct {
	Seq         uint64          `json:"seq"`
	Type        CommandType     `json:"type"`
	Command     json.RawMessage `json:"command"`
	Result      json.RawMessage `json:"result"`
	StateDigest string          `json:"state_digest"`
}

// TokenCreated is the result payload for create_token.
type TokenCreated struct {
	Token Token `json:"token"`
}

// PoolCreated is the result payload for create_pool.
type PoolCreated struct {
	Pool     Pool       `json:"pool"`
	Position LPPosition `json:"position"`
}

// SwapResult is the result payload for swap.
type SwapResult struct {
	PoolID      string         `json:"pool_id"`
	TokenInID   string         `json:"token_in_id"`
	TokenOutID  string         `json:"token_out_id"`
	AmountIn    math.LegacyDec `json:"amount_in"`
	FeeBps      math.LegacyDec `json:"fee_bps"`
	FeeAmount   math.LegacyDec `json:"fee_amount"`
	AmountOut   math.LegacyDec `json:"amount_out"`
	NewReserveA math.LegacyDec `json:"new_reserve_a"`
	NewReserveB math.LegacyDec `json:"new_reserve_b"`
}

// AddLiquidityResult is the result payload for add_liquidity.
type AddLiquidityResult struct {
	PoolID          string         `json:"pool_id"`
	PositionID      string         `json:"position_id"`
	AmountA         math.LegacyDec `json:"amount_a"`
	RequiredAmountB math.LegacyDec `json:"required_amount_b"`
	SharePercent    math.LegacyDec `json:"share_percent"`
	NewReserveA     math.LegacyDec `json:"new_reserve_a"`
	NewReserveB     math.LegacyDec `json:"new_reserve_b"`
}

// RemoveLiquidityResult is the result payload for remove_liquidity.
type RemoveLiquidityResult struct {
	PositionID     string         `json:"position_id"`
	PoolID         string         `json:"pool_id"`
	ReturnedA      math.LegacyDec `json:"returned_a"`
	ReturnedB      math.LegacyDec `json:"returned_b"`
	ReturnedFeesA  math.LegacyDec `json:"returned_fees_a"`
	ReturnedFeesB  math.LegacyDec `json:"returned_fees_b"`
	RemainingShare math.LegacyDec `json:"remaining_share"`
	Deleted        bool           `json:"deleted"`
}

// Credited is the result payload for credit.
type Credited struct {
	Owner        string         `json:"owner"`
	TokenID      string         `json:"token_id"`
	Amount       math.LegacyDec `json:"amount"`
	NewAvailable math.LegacyDec `json:"new_available"`
}

// AuctionCreated is the result payload for create_auction.
type AuctionCreated struct {
	Auction Auction `json:"auction"`
}

// BidPlaced is the result payload for place_bid.
type BidPlaced struct {
	AuctionID   string         `json:"auction_id"`
	BlockNumber int            `json:"block_number"`
	Bid         AuctionBid     `json:"bid"`
	Escrowed    math.LegacyDec `json:"escrowed"`
}

// BidOutcome is one bid's settlement inside a block execution.
type BidOutcome struct {
	BidID        string          `json:"bid_id"`
	BidderID     string          `json:"bidder_id"`
	TokensWon    math.LegacyDec  `json:"tokens_won"`
	AveragePrice *math.LegacyDec `json:"average_price,omitempty"`
	SettledCost  math.LegacyDec  `json:"settled_cost"`
	Refund       math.LegacyDec  `json:"refund"`
}

// BlockExecuted is the result payload for execute_block.
type BlockExecuted struct {
	AuctionID     string         `json:"auction_id"`
	BlockNumber   int            `json:"block_number"`
	ClearingPrice math.LegacyDec `json:"clearing_price"`
	TokensSold    math.LegacyDec `json:"tokens_sold"`
	Outcomes      []BidOutcome   `json:"outcomes"`
	AuctionActive bool           `json:"auction_active"`
}
