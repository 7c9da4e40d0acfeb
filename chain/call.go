package chain

import (
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type txContext struct {
	hash ethcommon.Hash
	time time.Time
	undo []func()
	logs []*Log
}

type snapshot struct {
	undo int
	logs int
}

func (tx *txContext) snapshot() snapshot {
	return snapshot{undo: len(tx.undo), logs: len(tx.logs)}
}

func (tx *txContext) revertTo(s snapshot) {
	for i := len(tx.undo) - 1; i >= s.undo; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:s.undo]
	tx.logs = tx.logs[:s.logs]
}

// Call is one contract invocation inside a transaction. Sender is the
// immediate caller (an account for the outermost call, a contract for
// nested ones), Origin the account that sent the transaction.
type Call struct {
	env   *Env
	tx    *txContext
	depth int

	Sender ethcommon.Address
	Origin ethcommon.Address
}

func (c *Call) ChainID() *big.Int {
	return new(big.Int).Set(c.env.chainID)
}

func (c *Call) TxHash() ethcommon.Hash {
	return c.tx.hash
}

// Now is the transaction time.
func (c *Call) Now() time.Time {
	return c.tx.time
}

func (c *Call) Depth() int {
	return c.depth
}

func (c *Call) CodeAt(addr ethcommon.Address) (any, bool) {
	code, ok := c.env.code[addr]
	return code, ok
}

func (c *Call) IsContract(addr ethcommon.Address) bool {
	_, ok := c.env.code[addr]
	return ok
}

// Sub returns the call made by contract `from` to another contract.
func (c *Call) Sub(from ethcommon.Address) *Call {
	return &Call{
		env:    c.env,
		tx:     c.tx,
		depth:  c.depth + 1,
		Sender: from,
		Origin: c.Origin,
	}
}

// Try runs a nested call from contract `from`. If it fails, only its own
// effects are reverted and the error is handed back to the caller, which
// may carry on.
func (c *Call) Try(from ethcommon.Address, fn func(sub *Call) error) error {
	if c.depth+1 > MaxCallDepth {
		return ErrCallDepth
	}

	snap := c.tx.snapshot()
	if err := fn(c.Sub(from)); err != nil {
		c.tx.revertTo(snap)
		return err
	}
	return nil
}

// Atomic reverts whatever fn changed if fn fails.
func (c *Call) Atomic(fn func() error) error {
	snap := c.tx.snapshot()
	if err := fn(); err != nil {
		c.tx.revertTo(snap)
		return err
	}
	return nil
}

// OnRevert journals the inverse of a state change.
func (c *Call) OnRevert(undo func()) {
	c.tx.undo = append(c.tx.undo, undo)
}

// NextLogIndex is the index the next emitted event will get.
func (c *Call) NextLogIndex() uint {
	return uint(len(c.tx.logs))
}

// Emit appends an event to the transaction and returns its log index.
func (c *Call) Emit(emitter ethcommon.Address, ev Event) uint {
	idx := uint(len(c.tx.logs))
	c.tx.logs = append(c.tx.logs, &Log{
		TxHash:  c.tx.hash,
		Index:   idx,
		Address: emitter,
		Time:    c.tx.time,
		Event:   ev,
	})
	return idx
}
