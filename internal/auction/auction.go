package auction

import (
	"fmt"

	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// New builds an auction whose per-block supplies must sum exactly to
// totalSupply. Blocks are numbered from 1.
func New(id string, offered model.Token, totalSupply, minPrice math.LegacyDec, blockSupplies []math.LegacyDec) (*model.Auction, error) {
	if totalSupply.IsNil() || !totalSupply.IsPositive() {
		return nil, fmt.Errorf("total supply must be positive: %w", model.ErrInvalidAmount)
	}
	if minPrice.IsNil() || !minPrice.IsPositive() {
		return nil, fmt.Errorf("min price must be positive: %w", model.ErrInvalidAmount)
	}
	if len(blockSupplies) == 0 {
		return nil, fmt.Errorf("at least one block is required: %w", model.ErrInvalidAmount)
	}

	sum := math.LegacyZeroDec()
	blocks := make([]model.AuctionBlock, 0, len(blockSupplies))
	for i, supply := range blockSupplies {
		if supply.IsNil() || !supply.IsPositive() {
			return nil, fmt.Errorf("block %d supply must be positive: %w", i+1, model.ErrInvalidAmount)
		}
		sum = sum.Add(supply)
		blocks = append(blocks, model.AuctionBlock{
			Number:          i + 1,
			TokensAvailable: supply,
			MinPrice:        minPrice,
			Bids:            []model.AuctionBid{},
		})
	}
	if !sum.Equal(totalSupply) {
		return nil, fmt.Errorf("block supplies %s do not sum to total supply %s: %w",
			sum, totalSupply, model.ErrInvalidAmount)
	}

	return &model.Auction{
		ID:           id,
		TokenOffered: offered,
		TotalSupply:  totalSupply,
		BlocksCount:  len(blocks),
		Blocks:       blocks,
		CurrentBlock: 1,
		Active:       true,
	}, nil
}

// Block returns the block with the given 1-based number.
func Block(a *model.Auction, number int) (*model.AuctionBlock, error) {
	if number < 1 || number > a.BlocksCount {
		return nil, fmt.Errorf("block %d out of range 1..%d: %w", number, a.BlocksCount, model.ErrBlockClosed)
	}
	return &a.Blocks[number-1], nil
}

// PlaceBid appends a bid to an open block and returns the stored bid
// with its FIFO sequence assigned. Past and executed blocks reject
// with ErrBlockClosed; escrow of the bid's spend is the caller's
// responsibility and must happen before this call commits.
func PlaceBid(a *model.Auction, blockNumber int, bid model.AuctionBid) (model.AuctionBid, error) {
	if !a.Active {
		return model.AuctionBid{}, fmt.Errorf("auction %s is finished: %w", a.ID, model.ErrBlockClosed)
	}
	block, err := Block(a, blockNumber)
	if err != nil {
		return model.AuctionBid{}, err
	}
	if blockNumber < a.CurrentBlock || block.Executed {
		return model.AuctionBid{}, fmt.Errorf("block %d already settled: %w", blockNumber, model.ErrBlockClosed)
	}
	if bid.MaxPrice.IsNil() || !bid.MaxPrice.IsPositive() || bid.TotalSpend.IsNil() || !bid.TotalSpend.IsPositive() {
		return model.AuctionBid{}, fmt.Errorf("bid price and spend must be positive: %w", model.ErrInvalidAmount)
	}

	bid.Seq = len(block.Bids)
	block.Bids = append(block.Bids, bid)
	return bid, nil
}

// ExecuteBlock clears the auction's current block and latches it
// executed. Only the current block may execute, exactly once; the
// second attempt returns ErrBlockClosed with no state change. An
// empty block clears at the floor with no allocations. Unsold supply
// is not carried into later blocks.
func ExecuteBlock(a *model.Auction, blockNumber int) (ClearingResult, error) {
	if !a.Active {
		return ClearingResult{}, fmt.Errorf("auction %s is finished: %w", a.ID, model.ErrBlockClosed)
	}
	block, err := Block(a, blockNumber)
	if err != nil {
		return ClearingResult{}, err
	}
	if blockNumber != a.CurrentBlock || block.Executed {
		return ClearingResult{}, fmt.Errorf("block %d is not the open block: %w", blockNumber, model.ErrBlockClosed)
	}

	var result ClearingResult
	if len(block.Bids) == 0 {
		result = ClearingResult{
			ClearingPrice: block.MinPrice,
			TokensSold:    math.LegacyZeroDec(),
			Allocations:   []Allocation{},
		}
	} else {
		inputs := make([]BidInput, 0, len(block.Bids))
		for _, bid := range block.Bids {
			inputs = append(inputs, BidInput{
				ID:         bid.ID,
				BidderID:   bid.BidderID,
				MaxPrice:   bid.MaxPrice,
				TotalSpend: bid.TotalSpend,
				Seq:        bid.Seq,
			})
		}
		result, err = ComputeClearing(inputs, block.TokensAvailable, block.MinPrice)
		if err != nil {
			return ClearingResult{}, err
		}
		writeBidResults(block, result)
	}

	price := result.ClearingPrice
	block.ClearingPrice = &price
	block.TokensAvailable = block.TokensAvailable.Sub(result.TokensSold)
	block.Executed = true
	a.CurrentBlock++
	if a.CurrentBlock > a.BlocksCount {
		a.Active = false
	}

	return result, nil
}

// writeBidResults stamps the once-only result fields onto the block's
// bids.
func writeBidResults(block *model.AuctionBlock, result ClearingResult) {
	byID := make(map[string]Allocation, len(result.Allocations))
	for _, alloc := range result.Allocations {
		byID[alloc.BidID] = alloc
	}
	for i := range block.Bids {
		alloc, ok := byID[block.Bids[i].ID]
		if !ok {
			continue
		}
		won := alloc.TokensWon
		refund := alloc.Refund
		block.Bids[i].TokensWon = &won
		block.Bids[i].Refund = &refund
		if alloc.Won {
			price := result.ClearingPrice
			block.Bids[i].AveragePrice = &price
		}
	}
}
