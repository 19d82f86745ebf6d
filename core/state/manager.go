package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"stfix/core/types"
	"stfix/crypto"
	"stfix/native/stfix"
	"stfix/storage"
)

const receiptDecimals = 9

// Manager provides keyed persistence for the protocol state: the singleton
// configuration, the position ledger, per-user cooldown markers, account
// balances and the receipt token supply. Values are RLP encoded under
// keccak-derived keys so any storage.Database backend yields identical
// layouts.
type Manager struct {
	store
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{store: store{kv: dbStore{db: db}}}
}

// Begin opens a buffered transaction. Reads fall through to committed state,
// writes stay in the buffer until Commit. Discarding the transaction leaves
// committed state untouched, which gives operations their all-or-nothing
// contract.
func (m *Manager) Begin() *Txn {
	txn := &Txn{parent: m, writes: make(map[string][]byte)}
	txn.store = store{kv: txnStore{txn: txn}}
	return txn
}

type keyValueStore interface {
	get(key []byte) ([]byte, error)
	put(key, value []byte) error
}

type dbStore struct {
	db storage.Database
}

func (s dbStore) get(key []byte) ([]byte, error) { return s.db.Get(key) }

func (s dbStore) put(key, value []byte) error { return s.db.Put(key, value) }

// Txn is a write-buffered view over a Manager.
type Txn struct {
	store
	parent *Manager
	writes map[string][]byte
	order  []string
}

type txnStore struct {
	txn *Txn
}

func (s txnStore) get(key []byte) ([]byte, error) {
	if value, ok := s.txn.writes[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return s.txn.parent.kv.get(key)
}

func (s txnStore) put(key, value []byte) error {
	k := string(key)
	if _, ok := s.txn.writes[k]; !ok {
		s.txn.order = append(s.txn.order, k)
	}
	s.txn.writes[k] = append([]byte(nil), value...)
	return nil
}

// Commit flushes the buffered writes to the underlying database in write
// order.
func (t *Txn) Commit() error {
	for _, key := range t.order {
		if err := t.parent.kv.put([]byte(key), t.writes[key]); err != nil {
			return err
		}
	}
	t.Discard()
	return nil
}

// Discard drops all buffered writes.
func (t *Txn) Discard() {
	t.writes = make(map[string][]byte)
	t.order = nil
}

// store implements the typed accessors shared by Manager and Txn.
type store struct {
	kv keyValueStore
}

func (s store) load(key []byte, out interface{}) (bool, error) {
	data, err := s.kv.get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s store) save(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.kv.put(key, encoded)
}

// StakeConfig returns the stored protocol configuration, or nil when the
// protocol has not been initialised.
func (s store) StakeConfig() (*stfix.Config, error) {
	stored := new(storedConfig)
	found, err := s.load(configKey(), stored)
	if err != nil || !found {
		return nil, err
	}
	return stored.toConfig(), nil
}

// PutStakeConfig persists the protocol configuration.
func (s store) PutStakeConfig(cfg *stfix.Config) error {
	return s.save(configKey(), newStoredConfig(cfg))
}

// StakePosition returns the position stored under (owner, nonce).
func (s store) StakePosition(owner crypto.Address, nonce uint64) (*stfix.StakePosition, bool, error) {
	stored := new(storedPosition)
	found, err := s.load(positionKey(owner.Bytes(), nonce), stored)
	if err != nil || !found {
		return nil, false, err
	}
	pos, err := stored.toPosition()
	if err != nil {
		return nil, false, err
	}
	return pos, true, nil
}

// PutStakePosition persists the position under its composite key.
func (s store) PutStakePosition(pos *stfix.StakePosition) error {
	if pos == nil {
		return errors.New("state: nil stake position")
	}
	return s.save(positionKey(pos.Owner.Bytes(), pos.Nonce), newStoredPosition(pos))
}

// StakeUserState returns the cooldown marker stored for the owner.
func (s store) StakeUserState(owner crypto.Address) (*stfix.UserState, bool, error) {
	stored := new(storedUserState)
	found, err := s.load(userStateKey(owner.Bytes()), stored)
	if err != nil || !found {
		return nil, false, err
	}
	return stored.toUserState(), true, nil
}

// PutStakeUserState persists the cooldown marker.
func (s store) PutStakeUserState(state *stfix.UserState) error {
	if state == nil {
		return errors.New("state: nil user state")
	}
	return s.save(userStateKey(state.Owner.Bytes()), newStoredUserState(state))
}

// GetAccount returns the balance record for the address. Unknown addresses
// yield a zeroed account.
func (s store) GetAccount(addr crypto.Address) (*types.Account, error) {
	stored := new(storedAccount)
	found, err := s.load(accountKey(addr.Bytes()), stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return (&types.Account{}).EnsureBalances(), nil
	}
	return stored.toAccount(), nil
}

// PutAccount persists the balance record for the address.
func (s store) PutAccount(addr crypto.Address, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	return s.save(accountKey(addr.Bytes()), newStoredAccount(account))
}

func (s store) tokenMeta() (*storedTokenMeta, error) {
	stored := new(storedTokenMeta)
	found, err := s.load(tokenMetaKey(), stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return &storedTokenMeta{Symbol: stfix.ReceiptSymbol, Decimals: receiptDecimals, Supply: big.NewInt(0)}, nil
	}
	if stored.Supply == nil {
		stored.Supply = big.NewInt(0)
	}
	return stored, nil
}

// MintReceipt issues receipt tokens to the address and grows the supply.
func (s store) MintReceipt(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return stfix.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	meta, err := s.tokenMeta()
	if err != nil {
		return err
	}
	account, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	account.BalanceSTFIX = new(big.Int).Add(account.BalanceSTFIX, amount)
	meta.Supply = new(big.Int).Add(meta.Supply, amount)
	if err := s.PutAccount(addr, account); err != nil {
		return err
	}
	return s.save(tokenMetaKey(), meta)
}

// BurnReceipt destroys receipt tokens held by the address and shrinks the
// supply. Burning more than the held balance fails.
func (s store) BurnReceipt(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return stfix.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	meta, err := s.tokenMeta()
	if err != nil {
		return err
	}
	account, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if account.BalanceSTFIX.Cmp(amount) < 0 {
		return stfix.ErrInsufficientBalance
	}
	if meta.Supply.Cmp(amount) < 0 {
		return stfix.ErrInsufficientBalance
	}
	account.BalanceSTFIX = new(big.Int).Sub(account.BalanceSTFIX, amount)
	meta.Supply = new(big.Int).Sub(meta.Supply, amount)
	if err := s.PutAccount(addr, account); err != nil {
		return err
	}
	return s.save(tokenMetaKey(), meta)
}

// ReceiptSupply returns the outstanding receipt token supply.
func (s store) ReceiptSupply() (*big.Int, error) {
	meta, err := s.tokenMeta()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(meta.Supply), nil
}
