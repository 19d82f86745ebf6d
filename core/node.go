package core

import (
	"math/big"
	"sync"
	"time"

	"stfix/core/events"
	"stfix/core/state"
	"stfix/crypto"
	nativecommon "stfix/native/common"
	"stfix/native/stfix"
	"stfix/observability/metrics"
	"stfix/storage"
)

// Node serialises protocol operations against the persistent state. Every
// mutating call runs inside one buffered state transaction: the transaction
// commits only when the engine reports success, so a failed operation is
// treated as never having happened. Events surface on the recent-events ring
// only after the commit.
type Node struct {
	mu      sync.Mutex
	manager *state.Manager
	recent  *events.RingEmitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewNode creates a node over the provided database.
func NewNode(db storage.Database) *Node {
	return &Node{
		manager: state.NewManager(db),
		recent:  events.NewRingEmitter(256),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetPauses wires the pause switch consulted by every operation.
func (n *Node) SetPauses(p nativecommon.PauseView) {
	if n == nil {
		return
	}
	n.pauses = p
}

// SetNowFunc overrides the node clock, primarily for tests.
func (n *Node) SetNowFunc(now func() int64) {
	if n == nil {
		return
	}
	if now == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	n.nowFn = now
}

// RecentEvents returns the committed events retained by the node, oldest
// first.
func (n *Node) RecentEvents() []events.Event {
	if n == nil {
		return nil
	}
	return n.recent.Recent()
}

// captureEmitter buffers events produced during one transaction so they are
// published only after the transaction commits.
type captureEmitter struct {
	buf []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	c.buf = append(c.buf, evt)
}

func (n *Node) withTxn(op string, fn func(*stfix.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	txn := n.manager.Begin()
	capture := &captureEmitter{}
	engine := stfix.NewEngine()
	engine.SetState(txn)
	engine.SetEmitter(capture)
	engine.SetPauses(n.pauses)
	engine.SetNowFunc(n.nowFn)

	if err := fn(engine); err != nil {
		txn.Discard()
		metrics.Stfix().ObserveOperation(op, "error")
		return err
	}
	if err := txn.Commit(); err != nil {
		metrics.Stfix().ObserveOperation(op, "error")
		return err
	}
	for _, evt := range capture.buf {
		n.recent.Emit(evt)
		metrics.Stfix().ObserveEvent(evt.EventType())
	}
	metrics.Stfix().ObserveOperation(op, "ok")
	return nil
}

func (n *Node) readEngine() *stfix.Engine {
	engine := stfix.NewEngine()
	engine.SetState(n.manager.Begin())
	engine.SetNowFunc(n.nowFn)
	return engine
}

// Initialize creates the protocol configuration exactly once.
func (n *Node) Initialize(admin crypto.Address, params stfix.Params) (*stfix.Config, error) {
	var cfg *stfix.Config
	err := n.withTxn("initialize", func(engine *stfix.Engine) error {
		created, err := engine.Initialize(admin, stfix.PrincipalVaultAddress, stfix.YieldVaultAddress, params)
		if err != nil {
			return err
		}
		cfg = created
		return nil
	})
	return cfg, err
}

// Stake creates a new position for the caller.
func (n *Node) Stake(caller crypto.Address, amount *big.Int, term stfix.LockTerm, nonce uint64, memo string) (*stfix.StakePosition, error) {
	var pos *stfix.StakePosition
	err := n.withTxn("stake", func(engine *stfix.Engine) error {
		created, err := engine.Stake(caller, amount, term, nonce, memo)
		if err != nil {
			return err
		}
		pos = created
		return nil
	})
	if err == nil {
		n.publishGauges()
	}
	return pos, err
}

// Redeem settles a matured position for principal plus interest.
func (n *Node) Redeem(caller crypto.Address, nonce uint64) (*big.Int, *big.Int, error) {
	var principal, interest *big.Int
	err := n.withTxn("redeem", func(engine *stfix.Engine) error {
		p, i, err := engine.Redeem(caller, nonce)
		if err != nil {
			return err
		}
		principal, interest = p, i
		return nil
	})
	if err == nil {
		metrics.Stfix().AddInterestPaid(gaugeValue(interest))
		n.publishGauges()
	}
	return principal, interest, err
}

// EarlyRedeem exits a position before maturity for a penalty.
func (n *Node) EarlyRedeem(caller crypto.Address, nonce uint64) (*big.Int, *big.Int, error) {
	var payout, penalty *big.Int
	err := n.withTxn("early_redeem", func(engine *stfix.Engine) error {
		p, pen, err := engine.EarlyRedeem(caller, nonce)
		if err != nil {
			return err
		}
		payout, penalty = p, pen
		return nil
	})
	if err == nil {
		n.publishGauges()
	}
	return payout, penalty, err
}

// ExtendLock compounds accrued interest and restarts the lock clock.
func (n *Node) ExtendLock(caller crypto.Address, nonce uint64, newTerm stfix.LockTerm) (*stfix.StakePosition, *big.Int, error) {
	var pos *stfix.StakePosition
	var accrued *big.Int
	err := n.withTxn("extend_lock", func(engine *stfix.Engine) error {
		p, a, err := engine.ExtendLock(caller, nonce, newTerm)
		if err != nil {
			return err
		}
		pos, accrued = p, a
		return nil
	})
	if err == nil {
		metrics.Stfix().AddInterestPaid(gaugeValue(accrued))
		n.publishGauges()
	}
	return pos, accrued, err
}

// TopUpYield funds the yield vault from the admin account.
func (n *Node) TopUpYield(caller crypto.Address, amount *big.Int) error {
	err := n.withTxn("top_up_yield", func(engine *stfix.Engine) error {
		return engine.TopUpYield(caller, amount)
	})
	if err == nil {
		n.publishGauges()
	}
	return err
}

// AddToWhitelist inserts a user into the whitelist.
func (n *Node) AddToWhitelist(caller, user crypto.Address) error {
	return n.withTxn("add_to_whitelist", func(engine *stfix.Engine) error {
		return engine.AddToWhitelist(caller, user)
	})
}

// RemoveFromWhitelist removes a user from the whitelist.
func (n *Node) RemoveFromWhitelist(caller, user crypto.Address) error {
	return n.withTxn("remove_from_whitelist", func(engine *stfix.Engine) error {
		return engine.RemoveFromWhitelist(caller, user)
	})
}

// Config returns the current protocol configuration.
func (n *Node) Config() (*stfix.Config, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readEngine().Config()
}

// Position returns the position stored under (owner, nonce).
func (n *Node) Position(owner crypto.Address, nonce uint64) (*stfix.StakePosition, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readEngine().Position(owner, nonce)
}

// UserState returns the cooldown marker for the owner.
func (n *Node) UserState(owner crypto.Address) (*stfix.UserState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readEngine().UserState(owner)
}

// VaultBalances returns the principal and yield vault balances.
func (n *Node) VaultBalances() (*big.Int, *big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readEngine().VaultBalances()
}

// ReceiptSupply returns the outstanding receipt token supply.
func (n *Node) ReceiptSupply() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readEngine().ReceiptSupply()
}

// Account returns the balance record for an address. Useful for dev faucets
// and tests; balances of unknown addresses read as zero.
func (n *Node) Account(addr crypto.Address) (*big.Int, *big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, err := n.manager.GetAccount(addr)
	if err != nil {
		return nil, nil, err
	}
	acc = acc.EnsureBalances()
	return new(big.Int).Set(acc.Balance), new(big.Int).Set(acc.BalanceSTFIX), nil
}

// Credit adds base currency to an address outside protocol accounting. The
// surrounding platform normally owns balance funding; this entry point backs
// genesis allocations and tests.
func (n *Node) Credit(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return stfix.ErrInvalidAmount
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, err := n.manager.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = acc.EnsureBalances()
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return n.manager.PutAccount(addr, acc)
}

func (n *Node) publishGauges() {
	engine := n.readEngine()
	if principal, yield, err := engine.VaultBalances(); err == nil {
		metrics.Stfix().SetVaultBalance("principal", gaugeValue(principal))
		metrics.Stfix().SetVaultBalance("yield", gaugeValue(yield))
	}
	if supply, err := engine.ReceiptSupply(); err == nil {
		metrics.Stfix().SetReceiptSupply(gaugeValue(supply))
	}
}

// gaugeValue converts a ledger amount for a float-valued metric. Int64 is
// undefined once the amount leaves the int64 range, so the conversion goes
// through big.Float and rounds instead of corrupting.
func gaugeValue(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
