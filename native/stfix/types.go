package stfix

import (
	"math/big"

	"stfix/crypto"
)

// LockTerm enumerates the fixed lock durations a position can be created
// with. New terms are added here together with a rate mapping in Config;
// handler logic never switches on raw day counts.
type LockTerm uint8

const (
	// Term30 locks principal for thirty days.
	Term30 LockTerm = iota + 1
	// Term90 locks principal for ninety days.
	Term90
)

const (
	secondsPerDay    = int64(86_400)
	maxWhitelistSize = 10
	maxMemoLength    = 128
)

// Days returns the lock duration of the term in whole days.
func (t LockTerm) Days() int64 {
	switch t {
	case Term30:
		return 30
	case Term90:
		return 90
	default:
		return 0
	}
}

// Valid reports whether the term is one of the supported durations.
func (t LockTerm) Valid() bool {
	switch t {
	case Term30, Term90:
		return true
	default:
		return false
	}
}

// TermFromDays maps a day count onto the matching LockTerm.
func TermFromDays(days int64) (LockTerm, error) {
	switch days {
	case 30:
		return Term30, nil
	case 90:
		return Term90, nil
	default:
		return 0, ErrInvalidTerm
	}
}

// Config is the singleton protocol configuration. It is created exactly once
// by Initialize and thereafter mutated only by admin operations and by the
// TotalInterestPaid accumulator.
type Config struct {
	Admin             crypto.Address
	ReceiptSymbol     string
	PrincipalVault    crypto.Address
	YieldVault        crypto.Address
	YieldRate30       uint64
	YieldRate90       uint64
	CooldownSeconds   int64
	PenaltyRateBps    uint64
	WhitelistOnly     bool
	Whitelist         []crypto.Address
	TotalInterestPaid *big.Int
}

// RateFor returns the fixed yield rate, in basis points, applied to the
// supplied term.
func (c *Config) RateFor(term LockTerm) uint64 {
	if c == nil {
		return 0
	}
	switch term {
	case Term30:
		return c.YieldRate30
	case Term90:
		return c.YieldRate90
	default:
		return 0
	}
}

// Whitelisted reports whether the address is a member of the whitelist.
func (c *Config) Whitelisted(addr crypto.Address) bool {
	if c == nil {
		return false
	}
	for _, member := range c.Whitelist {
		if member.Equal(addr) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the configuration so callers can safely mutate
// the copy without affecting the stored instance.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Whitelist = append([]crypto.Address(nil), c.Whitelist...)
	if c.TotalInterestPaid != nil {
		clone.TotalInterestPaid = new(big.Int).Set(c.TotalInterestPaid)
	} else {
		clone.TotalInterestPaid = big.NewInt(0)
	}
	return &clone
}

// StakePosition is one stake record identified by (Owner, Nonce). A position
// is terminal once Amount reaches zero; the record is kept so a second
// redemption attempt fails deterministically rather than vanishing.
type StakePosition struct {
	Owner       crypto.Address
	Amount      *big.Int
	DepositTime int64
	Term        LockTerm
	Nonce       uint64
	Memo        string
	InUse       bool
}

// UnlockTime returns the unix timestamp at which the lock completes.
func (p *StakePosition) UnlockTime() int64 {
	if p == nil {
		return 0
	}
	return p.DepositTime + p.Term.Days()*secondsPerDay
}

// Closed reports whether the position has reached its terminal state.
func (p *StakePosition) Closed() bool {
	return p == nil || p.Amount == nil || p.Amount.Sign() == 0
}

// Clone returns a deep copy of the position.
func (p *StakePosition) Clone() *StakePosition {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// UserState carries the per-owner cooldown marker consulted before a new
// position may be created.
type UserState struct {
	Owner         crypto.Address
	LastStakeTime int64
}

// Clone returns a copy of the user state.
func (u *UserState) Clone() *UserState {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
