package auction

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// BidInput is one bid as seen by the clearing computation. Seq is the
// submission order and breaks price ties.
type BidInput struct {
	ID         string
	BidderID   string
	MaxPrice   math.LegacyDec
	TotalSpend math.LegacyDec
	Seq        int
}

// Allocation is one bid's settlement at the clearing price. Won is
// true when the bid's limit price reached the clearing price, even if
// supply ran out before it was filled.
type Allocation struct {
	BidID       string
	BidderID    string
	Won         bool
	TokensWon   math.LegacyDec
	SettledCost math.LegacyDec
	Refund      math.LegacyDec
}

// ClearingResult is the outcome of one uniform-price batch clearing.
type ClearingResult struct {
	ClearingPrice math.LegacyDec
	TokensSold    math.LegacyDec
	Allocations   []Allocation
}

// ComputeClearing finds the uniform clearing price for a bid set and
// allocates supply at that price. Pure and deterministic: bids are
// ordered by (limit price desc, submission order asc) regardless of
// input order, so equal inputs always produce equal outputs.
//
// Cumulative demand accrues at each bid's own limit price while
// walking down the book; the clearing price is the first candidate
// whose cumulative demand covers supply, or the floor price when
// total demand never does. Bids under the floor can never clear and
// are refunded whole.
func ComputeClearing(bids []BidInput, tokensAvailable, minPrice math.LegacyDec) (ClearingResult, error) {
	if tokensAvailable.IsNil() || !tokensAvailable.IsPositive() {
		return ClearingResult{}, fmt.Errorf("tokens available must be positive: %w", model.ErrInvalidAmount)
	}
	if minPrice.IsNil() || !minPrice.IsPositive() {
		return ClearingResult{}, fmt.Errorf("min price must be positive: %w", model.ErrInvalidAmount)
	}
	for _, bid := range bids {
		if bid.MaxPrice.IsNil() || !bid.MaxPrice.IsPositive() || bid.TotalSpend.IsNil() || !bid.TotalSpend.IsPositive() {
			return ClearingResult{}, fmt.Errorf("bid %s has non-positive price or spend: %w", bid.ID, model.ErrInvalidAmount)
		}
	}

	sorted := make([]BidInput, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].MaxPrice.Equal(sorted[j].MaxPrice) {
			return sorted[i].MaxPrice.GT(sorted[j].MaxPrice)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	clearingPrice := minPrice
	cumulative := math.LegacyZeroDec()
	for _, bid := range sorted {
		if bid.MaxPrice.LT(minPrice) {
			break
		}
		cumulative = cumulative.Add(bid.TotalSpend.QuoTruncate(bid.MaxPrice))
		if cumulative.GTE(tokensAvailable) {
			clearingPrice = bid.MaxPrice
			break
		}
	}

	remaining := tokensAvailable
	allocations := make([]Allocation, 0, len(sorted))
	for _, bid := range sorted {
		alloc := Allocation{
			BidID:       bid.ID,
			BidderID:    bid.BidderID,
			TokensWon:   math.LegacyZeroDec(),
			SettledCost: math.LegacyZeroDec(),
			Refund:      bid.TotalSpend,
		}
		if bid.MaxPrice.GTE(clearingPrice) && bid.MaxPrice.GTE(minPrice) {
			alloc.Won = true
			want := bid.TotalSpend.QuoTruncate(clearingPrice)
			alloc.TokensWon = math.LegacyMinDec(want, remaining)
			alloc.SettledCost = alloc.TokensWon.Mul(clearingPrice)
			alloc.Refund = bid.TotalSpend.Sub(alloc.SettledCost)
			remaining = remaining.Sub(alloc.TokensWon)
		}
		allocations = append(allocations, alloc)
	}

	return ClearingResult{
		ClearingPrice: clearingPrice,
		TokensSold:    tokensAvailable.Sub(remaining),
		Allocations:   allocations,
	}, nil
}
