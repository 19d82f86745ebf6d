package types

import "math/big"

// Account is the balance record stored per address. Balance holds the native
// base currency and BalanceSTFIX the receipt token minted against staked
// principal. The protocol vaults are ordinary accounts at well-known
// addresses.
type Account struct {
	Nonce        uint64   `json:"nonce"`
	Balance      *big.Int `json:"balance"`
	BalanceSTFIX *big.Int `json:"balanceSTFIX"`
}

// EnsureBalances normalises nil balance pointers to zero so callers can
// perform arithmetic without nil checks.
func (a *Account) EnsureBalances() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0), BalanceSTFIX: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	if a.BalanceSTFIX == nil {
		a.BalanceSTFIX = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0), BalanceSTFIX: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.BalanceSTFIX != nil {
		clone.BalanceSTFIX = new(big.Int).Set(a.BalanceSTFIX)
	}
	return clone
}
