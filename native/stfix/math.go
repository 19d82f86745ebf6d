package stfix

import "math/big"

var basisPoints = big.NewInt(10_000)

// Interest computes the fixed-rate interest owed on a matured position:
// floor(amount * rateBps / 10000). Nil or negative amounts yield zero.
func Interest(amount *big.Int, rateBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rateBps == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(amount, new(big.Int).SetUint64(rateBps))
	return interest.Quo(interest, basisPoints)
}

// Penalty computes the early-exit penalty: floor(amount * penaltyBps / 10000).
// With penaltyBps capped at 10000 by configuration validation the penalty
// never exceeds the amount.
func Penalty(amount *big.Int, penaltyBps uint64) *big.Int {
	return Interest(amount, penaltyBps)
}

// AccruedInterest computes the partial interest compounded by a lock
// extension: floor(amount * rateBps * days / (10000 * termDays)). Elapsed
// time is truncated to whole days by the caller; the fractional remainder
// stays in the yield vault.
func AccruedInterest(amount *big.Int, rateBps uint64, days, termDays int64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rateBps == 0 || days <= 0 || termDays <= 0 {
		return big.NewInt(0)
	}
	accrued := new(big.Int).Mul(amount, new(big.Int).SetUint64(rateBps))
	accrued.Mul(accrued, big.NewInt(days))
	divisor := new(big.Int).Mul(basisPoints, big.NewInt(termDays))
	return accrued.Quo(accrued, divisor)
}

// ElapsedDays truncates an elapsed interval in seconds to whole days.
func ElapsedDays(elapsedSeconds int64) int64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return elapsedSeconds / secondsPerDay
}
