package stfix

import (
	"math/big"
	"testing"

	"stfix/crypto"
)

func TestLockTermDays(t *testing.T) {
	if Term30.Days() != 30 || Term90.Days() != 90 {
		t.Fatalf("unexpected term durations: %d / %d", Term30.Days(), Term90.Days())
	}
	if LockTerm(0).Valid() || LockTerm(3).Valid() {
		t.Fatalf("invalid terms reported valid")
	}
	if _, err := TermFromDays(45); err == nil {
		t.Fatalf("expected rejection of a 45 day term")
	}
	term, err := TermFromDays(90)
	if err != nil || term != Term90 {
		t.Fatalf("TermFromDays(90) = %v, %v", term, err)
	}
}

func TestUnlockTime(t *testing.T) {
	pos := &StakePosition{DepositTime: 1_000, Term: Term30}
	if got := pos.UnlockTime(); got != 1_000+30*86_400 {
		t.Fatalf("unexpected unlock time %d", got)
	}
	var nilPos *StakePosition
	if nilPos.UnlockTime() != 0 {
		t.Fatalf("nil position must unlock at zero")
	}
}

func TestPositionClosed(t *testing.T) {
	open := &StakePosition{Amount: big.NewInt(1)}
	if open.Closed() {
		t.Fatalf("funded position reported closed")
	}
	closed := &StakePosition{Amount: big.NewInt(0)}
	if !closed.Closed() {
		t.Fatalf("zero-amount position reported open")
	}
	var nilPos *StakePosition
	if !nilPos.Closed() {
		t.Fatalf("nil position must be closed")
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	cfg := &Config{
		Whitelist:         []crypto.Address{makeAddress(0x01)},
		TotalInterestPaid: big.NewInt(10),
	}
	clone := cfg.Clone()
	clone.TotalInterestPaid.SetInt64(99)
	clone.Whitelist = append(clone.Whitelist, makeAddress(0x99))
	if cfg.TotalInterestPaid.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("clone shares the interest accumulator")
	}
	if len(cfg.Whitelist) != 1 {
		t.Fatalf("clone shares the whitelist backing array")
	}
}
