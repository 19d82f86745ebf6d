package stfix

import (
	"math/big"
	"strconv"

	"stfix/core/types"
)

const (
	EventTypeInitialized      = "stfix.initialized"
	EventTypeStaked           = "stfix.staked"
	EventTypeRedeemed         = "stfix.redeemed"
	EventTypeEarlyRedeemed    = "stfix.early_redeemed"
	EventTypeLockExtended     = "stfix.lock.extended"
	EventTypeYieldToppedUp    = "stfix.yield.topped_up"
	EventTypeWhitelistAdded   = "stfix.whitelist.added"
	EventTypeWhitelistRemoved = "stfix.whitelist.removed"
)

// NewInitializedEvent returns the canonical payload emitted once when the
// protocol configuration is created.
func NewInitializedEvent(cfg *Config, timestamp int64) *types.Event {
	attrs := make(map[string]string)
	if cfg != nil {
		attrs["admin"] = cfg.Admin.String()
		attrs["principalVault"] = cfg.PrincipalVault.String()
		attrs["yieldVault"] = cfg.YieldVault.String()
		attrs["receiptSymbol"] = cfg.ReceiptSymbol
		attrs["yieldRate30"] = strconv.FormatUint(cfg.YieldRate30, 10)
		attrs["yieldRate90"] = strconv.FormatUint(cfg.YieldRate90, 10)
		attrs["cooldownSeconds"] = strconv.FormatInt(cfg.CooldownSeconds, 10)
		attrs["penaltyRateBps"] = strconv.FormatUint(cfg.PenaltyRateBps, 10)
		attrs["whitelistOnly"] = strconv.FormatBool(cfg.WhitelistOnly)
	}
	attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	return &types.Event{Type: EventTypeInitialized, Attributes: attrs}
}

// NewStakedEvent returns the canonical payload for a newly created position.
func NewStakedEvent(pos *StakePosition, timestamp int64) *types.Event {
	attrs := make(map[string]string)
	if pos != nil {
		attrs["owner"] = pos.Owner.String()
		attrs["amount"] = bigString(pos.Amount)
		attrs["term"] = strconv.FormatInt(pos.Term.Days(), 10)
		attrs["nonce"] = strconv.FormatUint(pos.Nonce, 10)
		if pos.Memo != "" {
			attrs["memo"] = pos.Memo
		}
	}
	attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	return &types.Event{Type: EventTypeStaked, Attributes: attrs}
}

// NewRedeemedEvent returns the payload emitted when a matured position is
// redeemed for principal plus interest.
func NewRedeemedEvent(pos *StakePosition, principal, interest *big.Int, timestamp int64) *types.Event {
	attrs := make(map[string]string)
	if pos != nil {
		attrs["owner"] = pos.Owner.String()
		attrs["nonce"] = strconv.FormatUint(pos.Nonce, 10)
	}
	attrs["principal"] = bigString(principal)
	attrs["interest"] = bigString(interest)
	attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	return &types.Event{Type: EventTypeRedeemed, Attributes: attrs}
}

// NewEarlyRedeemedEvent returns the payload emitted when a position exits
// before maturity.
func NewEarlyRedeemedEvent(pos *StakePosition, amount, penalty *big.Int, timestamp int64) *types.Event {
	attrs := make(map[string]string)
	if pos != nil {
		attrs["owner"] = pos.Owner.String()
		attrs["nonce"] = strconv.FormatUint(pos.Nonce, 10)
	}
	attrs["amount"] = bigString(amount)
	attrs["penalty"] = bigString(penalty)
	attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	return &types.Event{Type: EventTypeEarlyRedeemed, Attributes: attrs}
}

// NewLockExtendedEvent returns the payload emitted when interest is
// compounded into principal and the lock clock restarts.
func NewLockExtendedEvent(pos *StakePosition, accrued *big.Int, timestamp int64) *types.Event {
	attrs := make(map[string]string)
	if pos != nil {
		attrs["owner"] = pos.Owner.String()
		attrs["nonce"] = strconv.FormatUint(pos.Nonce, 10)
		attrs["amount"] = bigString(pos.Amount)
		attrs["term"] = strconv.FormatInt(pos.Term.Days(), 10)
	}
	attrs["accrued"] = bigString(accrued)
	attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	return &types.Event{Type: EventTypeLockExtended, Attributes: attrs}
}

// NewYieldToppedUpEvent returns the payload emitted when the admin funds the
// yield vault.
func NewYieldToppedUpEvent(admin string, amount *big.Int, timestamp int64) *types.Event {
	return &types.Event{Type: EventTypeYieldToppedUp, Attributes: map[string]string{
		"admin":     admin,
		"amount":    bigString(amount),
		"timestamp": strconv.FormatInt(timestamp, 10),
	}}
}

// NewWhitelistEvent returns the payload for a whitelist mutation.
func NewWhitelistEvent(eventType, user string, timestamp int64) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"user":      user,
		"timestamp": strconv.FormatInt(timestamp, 10),
	}}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
