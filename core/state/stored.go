package state

import (
	"math/big"

	"stfix/core/types"
	"stfix/crypto"
	"stfix/native/stfix"
)

// Stored forms mirror the in-memory types with RLP-friendly field layouts:
// unsigned timestamps, raw address bytes and non-nil big integers. Keeping
// the encoded representation deterministic makes state dumps and migrations
// byte-stable across clients.

type storedConfig struct {
	Admin             []byte
	ReceiptSymbol     string
	PrincipalVault    []byte
	YieldVault        []byte
	YieldRate30       uint64
	YieldRate90       uint64
	CooldownSeconds   uint64
	PenaltyRateBps    uint64
	WhitelistOnly     bool
	Whitelist         [][]byte
	TotalInterestPaid *big.Int
}

func newStoredConfig(cfg *stfix.Config) *storedConfig {
	if cfg == nil {
		cfg = &stfix.Config{}
	}
	cooldown := cfg.CooldownSeconds
	if cooldown < 0 {
		cooldown = 0
	}
	stored := &storedConfig{
		Admin:             append([]byte(nil), cfg.Admin.Bytes()...),
		ReceiptSymbol:     cfg.ReceiptSymbol,
		PrincipalVault:    append([]byte(nil), cfg.PrincipalVault.Bytes()...),
		YieldVault:        append([]byte(nil), cfg.YieldVault.Bytes()...),
		YieldRate30:       cfg.YieldRate30,
		YieldRate90:       cfg.YieldRate90,
		CooldownSeconds:   uint64(cooldown),
		PenaltyRateBps:    cfg.PenaltyRateBps,
		WhitelistOnly:     cfg.WhitelistOnly,
		Whitelist:         make([][]byte, 0, len(cfg.Whitelist)),
		TotalInterestPaid: big.NewInt(0),
	}
	for _, member := range cfg.Whitelist {
		stored.Whitelist = append(stored.Whitelist, append([]byte(nil), member.Bytes()...))
	}
	if cfg.TotalInterestPaid != nil {
		stored.TotalInterestPaid = new(big.Int).Set(cfg.TotalInterestPaid)
	}
	return stored
}

func (s *storedConfig) toConfig() *stfix.Config {
	if s == nil {
		return nil
	}
	cfg := &stfix.Config{
		Admin:             crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), s.Admin...)),
		ReceiptSymbol:     s.ReceiptSymbol,
		PrincipalVault:    crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), s.PrincipalVault...)),
		YieldVault:        crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), s.YieldVault...)),
		YieldRate30:       s.YieldRate30,
		YieldRate90:       s.YieldRate90,
		CooldownSeconds:   int64(s.CooldownSeconds),
		PenaltyRateBps:    s.PenaltyRateBps,
		WhitelistOnly:     s.WhitelistOnly,
		Whitelist:         make([]crypto.Address, 0, len(s.Whitelist)),
		TotalInterestPaid: big.NewInt(0),
	}
	for _, member := range s.Whitelist {
		cfg.Whitelist = append(cfg.Whitelist, crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), member...)))
	}
	if s.TotalInterestPaid != nil {
		cfg.TotalInterestPaid = new(big.Int).Set(s.TotalInterestPaid)
	}
	return cfg
}

type storedPosition struct {
	Owner       []byte
	Amount      *big.Int
	DepositTime uint64
	TermDays    uint64
	Nonce       uint64
	Memo        string
	InUse       bool
}

func newStoredPosition(pos *stfix.StakePosition) *storedPosition {
	if pos == nil {
		pos = &stfix.StakePosition{}
	}
	deposit := pos.DepositTime
	if deposit < 0 {
		deposit = 0
	}
	stored := &storedPosition{
		Owner:       append([]byte(nil), pos.Owner.Bytes()...),
		Amount:      big.NewInt(0),
		DepositTime: uint64(deposit),
		TermDays:    uint64(pos.Term.Days()),
		Nonce:       pos.Nonce,
		Memo:        pos.Memo,
		InUse:       pos.InUse,
	}
	if pos.Amount != nil {
		stored.Amount = new(big.Int).Set(pos.Amount)
	}
	return stored
}

func (s *storedPosition) toPosition() (*stfix.StakePosition, error) {
	if s == nil {
		return nil, nil
	}
	term, err := stfix.TermFromDays(int64(s.TermDays))
	if err != nil {
		return nil, err
	}
	pos := &stfix.StakePosition{
		Owner:       crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), s.Owner...)),
		Amount:      big.NewInt(0),
		DepositTime: int64(s.DepositTime),
		Term:        term,
		Nonce:       s.Nonce,
		Memo:        s.Memo,
		InUse:       s.InUse,
	}
	if s.Amount != nil {
		pos.Amount = new(big.Int).Set(s.Amount)
	}
	return pos, nil
}

type storedUserState struct {
	Owner         []byte
	LastStakeTime uint64
}

func newStoredUserState(state *stfix.UserState) *storedUserState {
	if state == nil {
		state = &stfix.UserState{}
	}
	last := state.LastStakeTime
	if last < 0 {
		last = 0
	}
	return &storedUserState{
		Owner:         append([]byte(nil), state.Owner.Bytes()...),
		LastStakeTime: uint64(last),
	}
}

func (s *storedUserState) toUserState() *stfix.UserState {
	if s == nil {
		return nil
	}
	return &stfix.UserState{
		Owner:         crypto.NewAddress(crypto.STFIXPrefix, append([]byte(nil), s.Owner...)),
		LastStakeTime: int64(s.LastStakeTime),
	}
}

type storedAccount struct {
	Nonce        uint64
	Balance      *big.Int
	BalanceSTFIX *big.Int
}

func newStoredAccount(acc *types.Account) *storedAccount {
	acc = acc.EnsureBalances()
	return &storedAccount{
		Nonce:        acc.Nonce,
		Balance:      new(big.Int).Set(acc.Balance),
		BalanceSTFIX: new(big.Int).Set(acc.BalanceSTFIX),
	}
}

func (s *storedAccount) toAccount() *types.Account {
	if s == nil {
		return (&types.Account{}).EnsureBalances()
	}
	acc := &types.Account{Nonce: s.Nonce, Balance: big.NewInt(0), BalanceSTFIX: big.NewInt(0)}
	if s.Balance != nil {
		acc.Balance = new(big.Int).Set(s.Balance)
	}
	if s.BalanceSTFIX != nil {
		acc.BalanceSTFIX = new(big.Int).Set(s.BalanceSTFIX)
	}
	return acc
}

type storedTokenMeta struct {
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}
