package engine

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"marketsim/internal/auction"
	"marketsim/internal/fee"
	"marketsim/internal/model"
	"marketsim/internal/pool"
)

// Apply executes one command atomically and, on success, appends the
// matching event to the stream. A failed command leaves no trace: no
// mutation, no sequence advance, no event.
func (e *Engine) Apply(cmd model.CommandRecord) (model.EventRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result any
	var err error
	switch cmd.Type {
	case model.CmdCreateToken:
		result, err = e.applyCreateToken(cmd.Payload)
	case model.CmdCreatePool:
		result, err = e.applyCreatePool(cmd.Payload)
	case model.CmdSwap:
		result, err = e.applySwap(cmd.Payload)
	case model.CmdAddLiquidity:
		result, err = e.applyAddLiquidity(cmd.Payload)
	case model.CmdRemoveLiquidity:
		result, err = e.applyRemoveLiquidity(cmd.Payload)
	case model.CmdCredit:
		result, err = e.applyCredit(cmd.Payload)
	case model.CmdCreateAuction:
		result, err = e.applyCreateAuction(cmd.Payload)
	case model.CmdPlaceBid:
		result, err = e.applyPlaceBid(cmd.Payload)
	case model.CmdExecuteBlock:
		result, err = e.applyExecuteBlock(cmd.Payload)
	default:
		err = fmt.Errorf("%q: %w", cmd.Type, model.ErrUnknownCommand)
	}
	if err != nil {
		return model.EventRecord{}, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("marshal result: %w", err)
	}

	// the digest covers the post-command state, sequence included
	e.seq++
	digest, err := digestOf(e.snapshotLocked())
	if err != nil {
		return model.EventRecord{}, err
	}

	event := model.EventRecord{
		Seq:         e.seq,
		Type:        cmd.Type,
		Command:     cmd.Payload,
		Result:      resultJSON,
		StateDigest: digest,
	}
	e.logger.Debug("command applied",
		zap.Uint64("seq", event.Seq),
		zap.String("type", string(event.Type)),
		zap.String("digest", digest),
	)
	return event, nil
}

func (e *Engine) applyCreateToken(payload json.RawMessage) (any, error) {
	var cmd model.CreateTokenCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode create_token: %w", err)
	}
	if cmd.Token.ID == "" {
		return nil, fmt.Errorf("token id is required: %w", model.ErrInvalidAmount)
	}
	if _, dup := e.tokens[cmd.Token.ID]; dup {
		return nil, fmt.Errorf("token %s already exists", cmd.Token.ID)
	}
	if cmd.Token.IsBase && e.baseTokenID != "" {
		return nil, fmt.Errorf("base token already registered as %s", e.baseTokenID)
	}

	e.tokens[cmd.Token.ID] = cmd.Token
	e.tokenOrder = append(e.tokenOrder, cmd.Token.ID)
	if cmd.Token.IsBase {
		e.baseTokenID = cmd.Token.ID
	}
	return model.TokenCreated{Token: cmd.Token}, nil
}

func (e *Engine) applyCreatePool(payload json.RawMessage) (any, error) {
	var cmd model.CreatePoolCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode create_pool: %w", err)
	}
	if _, dup := e.pools[cmd.PoolID]; dup {
		return nil, fmt.Errorf("pool %s already exists", cmd.PoolID)
	}
	tokenA, ok := e.tokens[cmd.TokenAID]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", cmd.TokenAID, model.ErrUnknownToken)
	}
	tokenB, ok := e.tokens[cmd.TokenBID]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", cmd.TokenBID, model.ErrUnknownToken)
	}

	positionID := fmt.Sprintf("pos-%d", e.seq+1)
	p, pos, err := pool.CreatePool(e.ledger, cmd.PoolID, positionID, cmd.Owner,
		tokenA, tokenB, cmd.ReserveA, cmd.ReserveB, cmd.BaseFeeBps, cmd.Hook)
	if err != nil {
		return nil, err
	}
	e.pools[p.ID] = p
	e.poolOrder = append(e.poolOrder, p.ID)
	return model.PoolCreated{Pool: *p, Position: *pos}, nil
}

func (e *Engine) applySwap(payload json.RawMessage) (any, error) {
	var cmd model.SwapCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode swap: %w", err)
	}
	p, ok := e.pools[cmd.PoolID]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", cmd.PoolID, model.ErrUnknownPool)
	}

	quote, err := pool.Swap(p, cmd.TokenInID, cmd.AmountIn, fee.Modifiers{
		FeeMultiplier: cmd.FeeMultiplier,
		Volatility:    cmd.Volatility,
	})
	if err != nil {
		return nil, err
	}
	return model.SwapResult{
		PoolID:      p.ID,
		TokenInID:   cmd.TokenInID,
		TokenOutID:  quote.TokenOutID,
		AmountIn:    cmd.AmountIn,
		FeeBps:      quote.FeeBps,
		FeeAmount:   quote.FeeAmount,
		AmountOut:   quote.AmountOut,
		NewReserveA: p.ReserveA,
		NewReserveB: p.ReserveB,
	}, nil
}

func (e *Engine) applyAddLiquidity(payload json.RawMessage) (any, error) {
	var cmd model.AddLiquidityCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode add_liquidity: %w", err)
	}
	p, ok := e.pools[cmd.PoolID]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", cmd.PoolID, model.ErrUnknownPool)
	}

	positionID := fmt.Sprintf("pos-%d", e.seq+1)
	res, err := pool.AddLiquidity(p, e.ledger, positionID, cmd.Owner, cmd.AmountA)
	if err != nil {
		return nil, err
	}
	return model.AddLiquidityResult{
		PoolID:          p.ID,
		PositionID:      res.Position.ID,
		AmountA:         cmd.AmountA,
		RequiredAmountB: res.RequiredAmountB,
		SharePercent:    res.Position.SharePercent,
		NewReserveA:     p.ReserveA,
		NewReserveB:     p.ReserveB,
	}, nil
}

func (e *Engine) applyRemoveLiquidity(payload json.RawMessage) (any, error) {
	var cmd model.RemoveLiquidityCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode remove_liquidity: %w", err)
	}
	pos, ok := e.ledger.Position(cmd.PositionID)
	if !ok {
		return nil, fmt.Errorf("position %s: %w", cmd.PositionID, model.ErrUnknownPool)
	}
	p, ok := e.pools[pos.PoolID]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", pos.PoolID, model.ErrUnknownPool)
	}

	res, err := pool.RemoveLiquidity(p, e.ledger, cmd.PositionID, cmd.SharePercent)
	if err != nil {
		return nil, err
	}
	return model.RemoveLiquidityResult{
		PositionID:     cmd.PositionID,
		PoolID:         p.ID,
		ReturnedA:      res.ReturnedA,
		ReturnedB:      res.ReturnedB,
		ReturnedFeesA:  res.ReturnedFeesA,
		ReturnedFeesB:  res.ReturnedFeesB,
		RemainingShare: pos.SharePercent,
		Deleted:        res.Deleted,
	}, nil
}

func (e *Engine) applyCredit(payload json.RawMessage) (any, error) {
	var cmd model.CreditCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode credit: %w", err)
	}
	if _, ok := e.tokens[cmd.TokenID]; !ok {
		return nil, fmt.Errorf("token %s: %w", cmd.TokenID, model.ErrUnknownToken)
	}
	if cmd.Amount.IsNil() || !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("credit must be positive: %w", model.ErrInvalidAmount)
	}
	if cmd.Owner == "" {
		return nil, fmt.Errorf("credit owner is required: %w", model.ErrInvalidAmount)
	}

	newAvailable := e.balances.Credit(cmd.Owner, cmd.TokenID, cmd.Amount)
	return model.Credited{
		Owner:        cmd.Owner,
		TokenID:      cmd.TokenID,
		Amount:       cmd.Amount,
		NewAvailable: newAvailable,
	}, nil
}

func (e *Engine) applyCreateAuction(payload json.RawMessage) (any, error) {
	var cmd model.CreateAuctionCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode create_auction: %w", err)
	}
	if e.auction != nil && e.auction.Active {
		return nil, fmt.Errorf("auction %s is still active", e.auction.ID)
	}
	offered, ok := e.tokens[cmd.TokenID]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", cmd.TokenID, model.ErrUnknownToken)
	}

	a, err := auction.New(cmd.AuctionID, offered, cmd.TotalSupply, cmd.MinPrice, cmd.BlockSupplies)
	if err != nil {
		return nil, err
	}
	e.auction = a
	return model.AuctionCreated{Auction: *a}, nil
}

func (e *Engine) applyPlaceBid(payload json.RawMessage) (any, error) {
	var cmd model.PlaceBidCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode place_bid: %w", err)
	}
	if e.auction == nil || e.auction.ID != cmd.AuctionID {
		return nil, fmt.Errorf("auction %s: %w", cmd.AuctionID, model.ErrUnknownAuction)
	}
	if e.baseTokenID == "" {
		return nil, fmt.Errorf("no base token registered: %w", model.ErrUnknownToken)
	}
	if cmd.TotalSpend.IsNil() || !cmd.TotalSpend.IsPositive() {
		return nil, fmt.Errorf("bid spend must be positive: %w", model.ErrInvalidAmount)
	}

	// Reserve before committing the bid; roll the escrow back if the
	// block rejects it so the whole command stays all-or-nothing.
	if err := e.balances.Reserve(cmd.BidderID, e.baseTokenID, cmd.TotalSpend); err != nil {
		return nil, err
	}
	stored, err := auction.PlaceBid(e.auction, cmd.BlockNumber, model.AuctionBid{
		ID:         cmd.BidID,
		BidderID:   cmd.BidderID,
		MaxPrice:   cmd.MaxPrice,
		TotalSpend: cmd.TotalSpend,
	})
	if err != nil {
		e.balances.Release(cmd.BidderID, e.baseTokenID, cmd.TotalSpend)
		return nil, err
	}
	return model.BidPlaced{
		AuctionID:   cmd.AuctionID,
		BlockNumber: cmd.BlockNumber,
		Bid:         stored,
		Escrowed:    cmd.TotalSpend,
	}, nil
}

func (e *Engine) applyExecuteBlock(payload json.RawMessage) (any, error) {
	var cmd model.ExecuteBlockCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode execute_block: %w", err)
	}
	if e.auction == nil || e.auction.ID != cmd.AuctionID {
		return nil, fmt.Errorf("auction %s: %w", cmd.AuctionID, model.ErrUnknownAuction)
	}

	result, err := auction.ExecuteBlock(e.auction, cmd.BlockNumber)
	if err != nil {
		return nil, err
	}

	offeredID := e.auction.TokenOffered.ID
	outcomes := make([]model.BidOutcome, 0, len(result.Allocations))
	for _, alloc := range result.Allocations {
		e.balances.Settle(alloc.BidderID, e.baseTokenID, alloc.SettledCost)
		e.balances.Release(alloc.BidderID, e.baseTokenID, alloc.Refund)
		if alloc.TokensWon.IsPositive() {
			e.balances.Credit(alloc.BidderID, offeredID, alloc.TokensWon)
		}
		outcome := model.BidOutcome{
			BidID:       alloc.BidID,
			BidderID:    alloc.BidderID,
			TokensWon:   alloc.TokensWon,
			SettledCost: alloc.SettledCost,
			Refund:      alloc.Refund,
		}
		if alloc.Won {
			price := result.ClearingPrice
			outcome.AveragePrice = &price
		}
		outcomes = append(outcomes, outcome)
	}

	return model.BlockExecuted{
		AuctionID:     cmd.AuctionID,
		BlockNumber:   cmd.BlockNumber,
		ClearingPrice: result.ClearingPrice,
		TokensSold:    result.TokensSold,
		Outcomes:      outcomes,
		AuctionActive: e.auction.Active,
	}, nil
}
