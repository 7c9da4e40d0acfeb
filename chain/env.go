package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrAddressInUse = errors.New("address already has code")
	ErrNilContract  = errors.New("nil contract")
	ErrCallDepth    = errors.New("max call depth exceeded")
)

// MaxCallDepth bounds nested contract calls of a single transaction.
const MaxCallDepth = 64

// Env is one chain. It owns the code registry and the event log, and
// serializes every state transition of the contracts deployed on it.
//
// Contract state is guarded by the env lock: mutate it only inside
// Transact, read it from outside only inside View. Deploy, CodeAt,
// IsContract and LogsSince take the lock themselves and must not be
// called from inside Transact or View.
type Env struct {
	mu sync.RWMutex

	chainID *big.Int
	clock   Clock

	code        map[ethcommon.Address]any
	deployNonce uint64
	txNonce     uint64
	logs        []*Log
}

func NewEnv(chainID *big.Int, clock Clock) *Env {
	if clock == nil {
		clock = SystemClock{}
	}

	return &Env{
		chainID: new(big.Int).Set(chainID),
		clock:   clock,
		code:    make(map[ethcommon.Address]any),
	}
}

func (e *Env) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

func (e *Env) Now() time.Time {
	return e.clock.Now()
}

// Deploy registers a contract under a fresh deterministic address.
func (e *Env) Deploy(contract any) ethcommon.Address {
	if contract == nil {
		panic(ErrNilContract)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		e.deployNonce++
		h := crypto.Keccak256(common.EncodePacked(e.chainID, e.deployNonce))
		addr := ethcommon.BytesToAddress(h[12:])
		if _, ok := e.code[addr]; ok {
			continue
		}
		e.code[addr] = contract
		logger.WithFields(logger.Fields{
			"chain":   e.chainID.String(),
			"address": addr.String(),
		}).Debugf("deployed %T", contract)
		return addr
	}
}

// DeployAt registers a contract under a chosen address.
func (e *Env) DeployAt(addr ethcommon.Address, contract any) error {
	if contract == nil {
		return ErrNilContract
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.code[addr]; ok || common.IsZeroAddress(addr) {
		return fmt.Errorf("%w: %s", ErrAddressInUse, addr.String())
	}
	e.code[addr] = contract
	return nil
}

func (e *Env) CodeAt(addr ethcommon.Address) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.code[addr]
	return c, ok
}

func (e *Env) IsContract(addr ethcommon.Address) bool {
	_, ok := e.CodeAt(addr)
	return ok
}

// Transact runs fn as a single transaction sent by sender. Either all of
// its effects are kept, or none: on error (or panic) every journaled
// change and every emitted event is rolled back.
func (e *Env) Transact(sender ethcommon.Address, fn func(c *Call) error) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.txNonce++
	tx := &txContext{
		hash: crypto.Keccak256Hash(common.EncodePacked(e.chainID, e.txNonce, sender)),
		time: e.clock.Now(),
	}
	c := &Call{env: e, tx: tx, Sender: sender, Origin: sender}

	defer func() {
		if r := recover(); r != nil {
			tx.revertTo(snapshot{})
			panic(r)
		}
	}()

	if err := fn(c); err != nil {
		tx.revertTo(snapshot{})
		logger.WithFields(logger.Fields{
			"chain":  e.chainID.String(),
			"tx":     common.Shorten(tx.hash.String(), 8),
			"sender": sender.String(),
		}).Debugf("transaction reverted: %v", err)
		return nil, err
	}

	for _, l := range tx.logs {
		l.Seq = uint64(len(e.logs)) + 1
		e.logs = append(e.logs, l)
	}

	return &Receipt{
		TxHash: tx.hash,
		Sender: sender,
		Logs:   append([]*Log(nil), tx.logs...),
	}, nil
}

// View runs a read-only closure against contract state.
func (e *Env) View(fn func()) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn()
}

// LogsSince returns up to limit committed logs with Seq > seq.
// limit <= 0 means no limit.
func (e *Env) LogsSince(seq uint64, limit int) []*Log {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if seq >= uint64(len(e.logs)) {
		return []*Log{}
	}
	logs := e.logs[seq:]
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return append([]*Log(nil), logs...)
}

func (e *Env) LogCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(len(e.logs))
}
