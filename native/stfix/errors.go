package stfix

import "errors"

// Protocol error taxonomy. Every failure aborts the whole operation with no
// partial state change; callers correct the condition and resubmit.
var (
	ErrLockPeriodNotCompleted      = errors.New("stfix: lock period not yet completed")
	ErrUnauthorized                = errors.New("stfix: unauthorized")
	ErrInsufficientYieldVaultFunds = errors.New("stfix: insufficient yield vault funds")
	ErrReentrancy                  = errors.New("stfix: reentrancy detected")
	ErrRateLimited                 = errors.New("stfix: rate limited, wait before staking again")
	ErrNotWhitelisted              = errors.New("stfix: not on whitelist")

	ErrNotInitialized     = errors.New("stfix: protocol not initialised")
	ErrAlreadyInitialized = errors.New("stfix: protocol already initialised")
	ErrPositionExists     = errors.New("stfix: position already exists for nonce")
	ErrPositionNotFound   = errors.New("stfix: position not found")
	ErrPositionClosed     = errors.New("stfix: position already redeemed")
	ErrWhitelistFull      = errors.New("stfix: whitelist is full")

	ErrInvalidAmount              = errors.New("stfix: amount must be positive")
	ErrInvalidTerm                = errors.New("stfix: unsupported lock term")
	ErrMemoTooLong                = errors.New("stfix: memo exceeds maximum length")
	ErrInsufficientBalance        = errors.New("stfix: insufficient balance")
	ErrInsufficientPrincipalFunds = errors.New("stfix: insufficient principal vault funds")

	errNilState = errors.New("stfix engine: state not configured")
)
