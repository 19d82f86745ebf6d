package stfix

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stfix/crypto"
)

// The vaults are module accounts: addresses derived from fixed labels rather
// than key material, so no private key can ever spend from them directly.
var (
	PrincipalVaultAddress = moduleAddress("stfix/principal-vault")
	YieldVaultAddress     = moduleAddress("stfix/yield-vault")
)

func moduleAddress(label string) crypto.Address {
	hash := ethcrypto.Keccak256([]byte(label))
	return crypto.NewAddress(crypto.STFIXPrefix, hash[len(hash)-20:])
}
