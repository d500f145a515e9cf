package auction

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"

	"marketsim/internal/model"
)

// balanceKey identifies one owner's holdings of one token. A struct
// key keeps owners and tokens separate even when an ID contains the
// other's separator characters.
type balanceKey struct {
	owner   string
	tokenID string
}

// EscrowLedger tracks per-owner token balances and the part committed
// to open bids. A bid reserves its full spend at placement, so
// concurrent bids across blocks can never double-spend one balance.
type EscrowLedger struct {
	available map[balanceKey]math.LegacyDec
	committed map[balanceKey]math.LegacyDec
}

func NewEscrowLedger() *EscrowLedger {
	return &EscrowLedger{
		available: make(map[balanceKey]math.LegacyDec),
		committed: make(map[balanceKey]math.LegacyDec),
	}
}

// Credit adds amount to an owner's balance.
func (l *EscrowLedger) Credit(owner, tokenID string, amount math.LegacyDec) math.LegacyDec {
	k := balanceKey{owner: owner, tokenID: tokenID}
	l.available[k] = l.balance(l.available, k).Add(amount)
	return l.available[k]
}

// Debit removes amount from an owner's uncommitted balance.
func (l *EscrowLedger) Debit(owner, tokenID string, amount math.LegacyDec) error {
	if l.Uncommitted(owner, tokenID).LT(amount) {
		return fmt.Errorf("debit %s of %s from %s: %w", amount, tokenID, owner, model.ErrEscrowExceeded)
	}
	k := balanceKey{owner: owner, tokenID: tokenID}
	l.available[k] = l.available[k].Sub(amount)
	return nil
}

// Available returns an owner's total balance, escrowed part included.
func (l *EscrowLedger) Available(owner, tokenID string) math.LegacyDec {
	return l.balance(l.available, balanceKey{owner: owner, tokenID: tokenID})
}

// Uncommitted returns the balance not reserved against open bids.
func (l *EscrowLedger) Uncommitted(owner, tokenID string) math.LegacyDec {
	k := balanceKey{owner: owner, tokenID: tokenID}
	return l.balance(l.available, k).Sub(l.balance(l.committed, k))
}

// Reserve escrows amount against open bids. Fails with
// ErrEscrowExceeded when the uncommitted balance cannot cover it.
func (l *EscrowLedger) Reserve(owner, tokenID string, amount math.LegacyDec) error {
	if l.Uncommitted(owner, tokenID).LT(amount) {
		return fmt.Errorf("reserve %s of %s for %s: %w", amount, tokenID, owner, model.ErrEscrowExceeded)
	}
	k := balanceKey{owner: owner, tokenID: tokenID}
	l.committed[k] = l.balance(l.committed, k).Add(amount)
	return nil
}

// Release returns escrowed amount to the uncommitted balance (refund).
func (l *EscrowLedger) Release(owner, tokenID string, amount math.LegacyDec) {
	k := balanceKey{owner: owner, tokenID: tokenID}
	l.committed[k] = l.balance(l.committed, k).Sub(amount)
	if l.committed[k].IsNegative() {
		l.committed[k] = math.LegacyZeroDec()
	}
}

// Settle consumes escrowed amount: it leaves escrow and the balance.
func (l *EscrowLedger) Settle(owner, tokenID string, amount math.LegacyDec) {
	k := balanceKey{owner: owner, tokenID: tokenID}
	l.committed[k] = l.balance(l.committed, k).Sub(amount)
	if l.committed[k].IsNegative() {
		l.committed[k] = math.LegacyZeroDec()
	}
	l.available[k] = l.balance(l.available, k).Sub(amount)
}

func (l *EscrowLedger) balance(m map[balanceKey]math.LegacyDec, k balanceKey) math.LegacyDec {
	if v, ok := m[k]; ok {
		return v
	}
	return math.LegacyZeroDec()
}

// Snapshot returns all non-zero entries sorted by owner then token.
func (l *EscrowLedger) Snapshot() []model.BalanceEntry {
	keys := make([]balanceKey, 0, len(l.available))
	seen := make(map[balanceKey]struct{}, len(l.available))
	for k := range l.available {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range l.committed {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].owner != keys[j].owner {
			return keys[i].owner < keys[j].owner
		}
		return keys[i].tokenID < keys[j].tokenID
	})

	out := make([]model.BalanceEntry, 0, len(keys))
	for _, k := range keys {
		available := l.balance(l.available, k)
		committed := l.balance(l.committed, k)
		if available.IsZero() && committed.IsZero() {
			continue
		}
		out = append(out, model.BalanceEntry{
			Owner:     k.owner,
			TokenID:   k.tokenID,
			Available: available,
			Committed: committed,
		})
	}
	return out
}

// Restore replaces the ledger contents from snapshot entries.
func (l *EscrowLedger) Restore(entries []model.BalanceEntry) {
	l.available = make(map[balanceKey]math.LegacyDec, len(entries))
	l.committed = make(map[balanceKey]math.LegacyDec, len(entries))
	for _, entry := range entries {
		k := balanceKey{owner: entry.Owner, tokenID: entry.TokenID}
		if !entry.Available.IsNil() {
			l.available[k] = entry.Available
		}
		if !entry.Committed.IsNil() && !entry.Committed.IsZero() {
			l.committed[k] = entry.Committed
		}
	}
}
