package stfix

import (
	"errors"
	"fmt"
)

// ReceiptSymbol is the ticker of the receipt token minted 1:1 against staked
// principal.
const ReceiptSymbol = "STFIX"

const maxRateBps = uint64(10_000)

// Params carries the caller-supplied protocol parameters accepted by
// Initialize. The penalty bound is enforced here, at configuration time, so
// redemption arithmetic never has to re-check it.
type Params struct {
	YieldRate30     uint64
	YieldRate90     uint64
	CooldownSeconds int64
	PenaltyRateBps  uint64
	WhitelistOnly   bool
}

// Validate checks the parameter ranges required by the redemption contract.
func (p Params) Validate() error {
	if p.YieldRate30 > maxRateBps {
		return fmt.Errorf("stfix params: 30 day yield rate %d exceeds %d bps", p.YieldRate30, maxRateBps)
	}
	if p.YieldRate90 > maxRateBps {
		return fmt.Errorf("stfix params: 90 day yield rate %d exceeds %d bps", p.YieldRate90, maxRateBps)
	}
	if p.PenaltyRateBps > maxRateBps {
		return fmt.Errorf("stfix params: penalty rate %d exceeds %d bps", p.PenaltyRateBps, maxRateBps)
	}
	if p.CooldownSeconds < 0 {
		return errors.New("stfix params: cooldown must not be negative")
	}
	return nil
}
