package model

import "cosmossdk.io/math"

// AuctionBid is immutable after submission except the result fields,
// written exactly once at block execution. Seq fixes FIFO order for
// price tie-breaks.
type AuctionBid struct {
	ID           string          `json:"id"`
	BidderID     string          `json:"bidder_id"`
	MaxPrice     math.LegacyDec  `json:"max_price"`
	TotalSpend   math.LegacyDec  `json:"total_spend"`
	Seq          int             `json:"seq"`
	TokensWon    *math.LegacyDec `json:"tokens_won,omitempty"`
	AveragePrice *math.LegacyDec `json:"average_price,omitempty"`
	Refund       *math.LegacyDec `json:"refund,omitempty"`
}

// AuctionBlock holds one batch of supply. TokensAvailable is fixed at
// creation; Executed is a one-way latch.
type AuctionBlock struct {
	Number          int             `json:"number"`
	TokensAvailable math.LegacyDec  `json:"tokens_available"`
	MinPrice        math.LegacyDec  `json:"min_price"`
	Bids            []AuctionBid    `json:"bids"`
	Executed        bool            `json:"executed"`
	ClearingPrice   *math.LegacyDec `json:"clearing_price,omitempty"`
}

// Auction sequences blocks of a uniform-price batch sale.
// CurrentBlock is 1-based and only increases; Active flips false once
// CurrentBlock passes BlocksCount.
type Auction struct {
	ID           string         `json:"id"`
	TokenOffered Token          `json:"token_offered"`
	TotalSupply  math.LegacyDec `json:"total_supply"`
	BlocksCount  int            `json:"blocks_count"`
	Blocks       []AuctionBlock `json:"blocks"`
	CurrentBlock int            `json:"current_block"`
	Active       bool           `json:"active"`
}
