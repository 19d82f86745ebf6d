package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	configKeyBytes     = []byte("stfix/config")
	tokenMetaKeyBytes  = []byte("stfix/token")
	positionKeyPrefix  = []byte("stfix/pos/")
	userStateKeyPrefix = []byte("stfix/user/")
	accountKeyPrefix   = []byte("account:")
)

func configKey() []byte {
	return ethcrypto.Keccak256(configKeyBytes)
}

func tokenMetaKey() []byte {
	return ethcrypto.Keccak256(tokenMetaKeyBytes)
}

// positionKey derives the composite (owner, nonce) key. Uniqueness per owner
// and nonce is the only requirement; the keccak digest keeps key lengths
// uniform regardless of backend.
func positionKey(owner []byte, nonce uint64) []byte {
	buf := make([]byte, len(positionKeyPrefix)+len(owner)+8)
	copy(buf, positionKeyPrefix)
	copy(buf[len(positionKeyPrefix):], owner)
	binary.BigEndian.PutUint64(buf[len(positionKeyPrefix)+len(owner):], nonce)
	return ethcrypto.Keccak256(buf)
}

func userStateKey(owner []byte) []byte {
	buf := make([]byte, len(userStateKeyPrefix)+len(owner))
	copy(buf, userStateKeyPrefix)
	copy(buf[len(userStateKeyPrefix):], owner)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountKeyPrefix)+len(addr))
	copy(buf, accountKeyPrefix)
	copy(buf[len(accountKeyPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}
