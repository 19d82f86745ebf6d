package stfix

import (
	"math/big"
	"testing"
)

func TestInterestFloorsTowardZero(t *testing.T) {
	cases := []struct {
		amount  int64
		rateBps uint64
		want    int64
	}{
		{1_000_000, 500, 50_000},
		{1_000_000, 1_500, 150_000},
		{1, 500, 0},
		{199, 500, 9},
		{0, 500, 0},
		{1_000_000, 0, 0},
	}
	for _, tc := range cases {
		got := Interest(big.NewInt(tc.amount), tc.rateBps)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("Interest(%d, %d) = %s, want %d", tc.amount, tc.rateBps, got, tc.want)
		}
	}
	if got := Interest(nil, 500); got.Sign() != 0 {
		t.Fatalf("expected zero interest on nil amount, got %s", got)
	}
}

func TestPenaltyNeverExceedsAmount(t *testing.T) {
	amount := big.NewInt(123_457)
	penalty := Penalty(amount, 10_000)
	if penalty.Cmp(amount) != 0 {
		t.Fatalf("expected full amount at 10000 bps, got %s", penalty)
	}
	penalty = Penalty(amount, 1_000)
	if penalty.Cmp(big.NewInt(12_345)) != 0 {
		t.Fatalf("expected 12345, got %s", penalty)
	}
}

func TestAccruedInterestProRata(t *testing.T) {
	amount := big.NewInt(1_000_000)
	// Full term accrual matches the maturity interest.
	full := AccruedInterest(amount, 500, 30, 30)
	if full.Cmp(Interest(amount, 500)) != 0 {
		t.Fatalf("full-term accrual %s differs from maturity interest", full)
	}
	partial := AccruedInterest(amount, 500, 10, 30)
	if partial.Cmp(big.NewInt(16_666)) != 0 {
		t.Fatalf("expected 16666, got %s", partial)
	}
	if got := AccruedInterest(amount, 500, 0, 30); got.Sign() != 0 {
		t.Fatalf("expected zero accrual for zero days, got %s", got)
	}
	if got := AccruedInterest(nil, 500, 10, 30); got.Sign() != 0 {
		t.Fatalf("expected zero accrual for nil amount, got %s", got)
	}
}

func TestElapsedDaysTruncates(t *testing.T) {
	cases := []struct {
		seconds int64
		want    int64
	}{
		{0, 0},
		{-5, 0},
		{86_399, 0},
		{86_400, 1},
		{172_799, 1},
		{172_800, 2},
	}
	for _, tc := range cases {
		if got := ElapsedDays(tc.seconds); got != tc.want {
			t.Fatalf("ElapsedDays(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}
