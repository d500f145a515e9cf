package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketsim/internal/auction"
	"marketsim/internal/config"
)

// bidLine is one bid in the clear subcommand's input file.
type bidLine struct {
	ID         string `json:"id"`
	BidderID   string `json:"bidder_id"`
	MaxPrice   string `json:"max_price"`
	TotalSpend string `json:"total_spend"`
}

func runClear(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadClear(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Bids == "" {
		return fmt.Errorf("bids path is required")
	}
	supply, err := math.LegacyNewDecFromStr(cfg.Supply)
	if err != nil {
		return fmt.Errorf("parse supply: %w", err)
	}
	minPrice, err := math.LegacyNewDecFromStr(cfg.MinPrice)
	if err != nil {
		return fmt.Errorf("parse min-price: %w", err)
	}

	bids, err := readBids(cfg.Bids)
	if err != nil {
		return err
	}

	result, err := auction.ComputeClearing(bids, supply, minPrice)
	if err != nil {
		return err
	}

	logger.Info("clearing computed",
		zap.Int("bids", len(bids)),
		zap.String("clearing_price", result.ClearingPrice.String()),
		zap.String("tokens_sold", result.TokensSold.String()),
	)
	for _, alloc := range result.Allocations {
		logger.Info("allocation",
			zap.String("bid", alloc.BidID),
			zap.String("bidder", alloc.BidderID),
			zap.Bool("won", alloc.Won),
			zap.String("tokens_won", alloc.TokensWon.String()),
			zap.String("settled_cost", alloc.SettledCost.String()),
			zap.String("refund", alloc.Refund.String()),
		)
	}

	return nil
}

func readBids(path string) ([]auction.BidInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bids: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var bids []auction.BidInput
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed bidLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			return nil, fmt.Errorf("decode bid: %w", err)
		}
		maxPrice, err := math.LegacyNewDecFromStr(parsed.MaxPrice)
		if err != nil {
			return nil, fmt.Errorf("bid %s max price: %w", parsed.ID, err)
		}
		spend, err := math.LegacyNewDecFromStr(parsed.TotalSpend)
		if err != nil {
			return nil, fmt.Errorf("bid %s spend: %w", parsed.ID, err)
		}
		bids = append(bids, auction.BidInput{
			ID:         parsed.ID,
			BidderID:   parsed.BidderID,
			MaxPrice:   maxPrice,
			TotalSpend: spend,
			Seq:        len(bids),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan bids: %w", err)
	}
	return bids, nil
}
