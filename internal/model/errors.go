package model

import "errors"

// Engine error taxonomy. All are local, synchronous and non-retryable;
// an operation that returns one of these has applied no mutation.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnknownToken         = errors.New("unknown token")
	ErrUnknownPool          = errors.New("unknown pool")
	ErrUnknownAuction       = errors.New("unknown auction")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrBlockClosed          = errors.New("block closed")
	ErrInsufficientReserves = errors.New("insufficient reserves")
	ErrEscrowExceeded       = errors.New("escrow exceeded")
)
