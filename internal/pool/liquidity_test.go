package pool

import (
	"errors"
	"testing"

	"cosmossdk.io/math"

	"marketsim/internal/fee"
	"marketsim/internal/model"
)

func TestCreatePoolFirstLiquidity(t *testing.T) {
	led := NewLedger()
	p, pos, err := CreatePool(led, "gem-usd", "pos-1", "alice", gem, usd,
		math.LegacyNewDec(100), math.LegacyNewDec(1000), 30, nil)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if !pos.SharePercent.Equal(hundred) {
		t.Fatalf("creator share %s, want 100", pos.SharePercent)
	}
	if !p.TotalShare.Equal(hundred) {
		t.Fatalf("total share %s, want 100", p.TotalShare)
	}
}

func TestCreatePoolRejectsBadInput(t *testing.T) {
	led := NewLedger()
	if _, _, err := CreatePool(led, "p", "pos-1", "alice", gem, usd,
		math.LegacyZeroDec(), math.LegacyNewDec(1000), 30, nil); !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("zero reserve: got %v, want ErrInvalidAmount", err)
	}
	if _, _, err := CreatePool(led, "p", "pos-1", "alice", gem, gem,
		math.LegacyNewDec(1), math.LegacyNewDec(1), 30, nil); !errors.Is(err, model.ErrUnknownToken) {
		t.Fatalf("same token twice: got %v, want ErrUnknownToken", err)
	}
	if _, _, err := CreatePool(led, "p", "pos-1", "alice", gem, usd,
		math.LegacyNewDec(1), math.LegacyNewDec(1), 10000, nil); !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("fee 10000: got %v, want ErrInvalidAmount", err)
	}
}

func TestAddLiquidityPreservesRatio(t *testing.T) {
	p, led := newSwapPool(t, 30)
	ratioBefore := p.ReserveA.Quo(p.ReserveB)

	res, err := AddLiquidity(p, led, "pos-2", "bob", math.LegacyNewDec(50))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if !res.RequiredAmountB.Equal(math.LegacyNewDec(500)) {
		t.Fatalf("required B %s, want 500", res.RequiredAmountB)
	}
	if !p.ReserveA.Equal(math.LegacyNewDec(150)) || !p.ReserveB.Equal(math.LegacyNewDec(1500)) {
		t.Fatalf("reserves %s/%s, want 150/1500", p.ReserveA, p.ReserveB)
	}
	if !p.ReserveA.Quo(p.ReserveB).Equal(ratioBefore) {
		t.Fatalf("ratio drifted from %s to %s", ratioBefore, p.ReserveA.Quo(p.ReserveB))
	}

	// bob deposited a third of the new reserves
	want := dec("50").MulInt64(100).QuoTruncate(dec("150"))
	if !res.Position.SharePercent.Equal(want) {
		t.Fatalf("new share %s, want %s", res.Position.SharePercent, want)
	}
}

func TestShareSumNeverExceedsHundred(t *testing.T) {
	p, led := newSwapPool(t, 30)

	if _, err := AddLiquidity(p, led, "pos-2", "bob", dec("33.7")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := AddLiquidity(p, led, "pos-3", "carol", dec("12.09")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := RemoveLiquidity(p, led, "pos-2", dec("7.5")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := AddLiquidity(p, led, "pos-4", "dave", dec("0.003")); err != nil {
		t.Fatalf("add: %v", err)
	}

	sum := math.LegacyZeroDec()
	for _, pos := range led.PoolPositions(p.ID) {
		if pos.SharePercent.IsNegative() {
			t.Fatalf("position %s has negative share %s", pos.ID, pos.SharePercent)
		}
		sum = sum.Add(pos.SharePercent)
	}
	if sum.GT(hundred) {
		t.Fatalf("share sum %s exceeds 100", sum)
	}
	if !p.TotalShare.Equal(sum) {
		t.Fatalf("total share %s out of sync with sum %s", p.TotalShare, sum)
	}
	// rescaling only ever loses truncation dust
	if sum.LT(dec("99.999999")) {
		t.Fatalf("share sum %s lost more than dust", sum)
	}
}

func TestAddLiquidityDuplicatePositionIsRejectedWhole(t *testing.T) {
	p, led := newSwapPool(t, 30)

	// reusing the creator's position ID must fail before anything moves
	_, err := AddLiquidity(p, led, "pos-1", "bob", math.LegacyNewDec(50))
	if !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("duplicate position: got %v, want ErrInvalidAmount", err)
	}

	if !p.ReserveA.Equal(math.LegacyNewDec(100)) || !p.ReserveB.Equal(math.LegacyNewDec(1000)) {
		t.Fatalf("rejected deposit moved reserves to %s/%s", p.ReserveA, p.ReserveB)
	}
	if !p.TotalShare.Equal(hundred) {
		t.Fatalf("rejected deposit changed total share to %s", p.TotalShare)
	}
	positions := led.PoolPositions(p.ID)
	if len(positions) != 1 || !positions[0].SharePercent.Equal(hundred) {
		t.Fatalf("rejected deposit touched positions: %+v", positions)
	}
}

func TestRemoveLiquidityPartial(t *testing.T) {
	p, led := newSwapPool(t, 30)

	res, err := RemoveLiquidity(p, led, "pos-1", math.LegacyNewDec(50))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !res.ReturnedA.Equal(math.LegacyNewDec(50)) || !res.ReturnedB.Equal(math.LegacyNewDec(500)) {
		t.Fatalf("returned %s/%s, want 50/500", res.ReturnedA, res.ReturnedB)
	}
	if res.Deleted {
		t.Fatalf("position deleted on partial withdraw")
	}

	// the survivor is rescaled back up to the whole pool
	pos, ok := led.Position("pos-1")
	if !ok {
		t.Fatalf("position gone")
	}
	if !pos.SharePercent.Equal(hundred) {
		t.Fatalf("remaining share %s, want 100", pos.SharePercent)
	}
	if !p.TotalShare.Equal(hundred) {
		t.Fatalf("total share %s, want 100", p.TotalShare)
	}
}

func TestRemoveLiquidityFullDeletesPosition(t *testing.T) {
	p, led := newSwapPool(t, 30)

	res, err := RemoveLiquidity(p, led, "pos-1", hundred)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !res.Deleted {
		t.Fatalf("full withdraw did not delete position")
	}
	if _, ok := led.Position("pos-1"); ok {
		t.Fatalf("position still in ledger")
	}
	if !p.ReserveA.IsZero() || !p.ReserveB.IsZero() {
		t.Fatalf("reserves %s/%s, want 0/0", p.ReserveA, p.ReserveB)
	}
	if !p.TotalShare.IsZero() {
		t.Fatalf("total share %s, want 0", p.TotalShare)
	}
}

func TestRemoveLiquidityRejectsOverdraw(t *testing.T) {
	p, led := newSwapPool(t, 30)
	if _, err := RemoveLiquidity(p, led, "pos-1", dec("100.01")); !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("overdraw: got %v, want ErrInvalidAmount", err)
	}
	if _, err := RemoveLiquidity(p, led, "nope", math.LegacyNewDec(1)); !errors.Is(err, model.ErrUnknownPool) {
		t.Fatalf("missing position: got %v, want ErrUnknownPool", err)
	}
}

func TestFeeAccrualThroughAccumulator(t *testing.T) {
	p, led := newSwapPool(t, 30)

	quote, err := Swap(p, "gem", math.LegacyNewDec(5), fee.Modifiers{})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	// the sole LP accrues the whole fee, minus at most truncation dust
	pos, _ := led.Position("pos-1")
	feesA, feesB := AccruedFees(p, pos)
	eps := math.LegacyNewDecWithPrec(1, 12)
	if feesA.Sub(quote.FeeAmount).Abs().GT(eps) {
		t.Fatalf("accrued A %s, want about %s", feesA, quote.FeeAmount)
	}
	if !feesB.IsZero() {
		t.Fatalf("accrued B %s, want 0", feesB)
	}

	// a later LP starts from a fresh checkpoint and accrues nothing
	res, err := AddLiquidity(p, led, "pos-2", "bob", math.LegacyNewDec(10))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	lateA, lateB := AccruedFees(p, res.Position)
	if !lateA.IsZero() || !lateB.IsZero() {
		t.Fatalf("late joiner accrued %s/%s, want 0/0", lateA, lateB)
	}

	// withdrawal pays out the proportional slice
	out, err := RemoveLiquidity(p, led, "pos-1", pos.SharePercent)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out.ReturnedFeesA.Sub(quote.FeeAmount).Abs().GT(eps) {
		t.Fatalf("paid fees %s, want about %s", out.ReturnedFeesA, quote.FeeAmount)
	}
}
