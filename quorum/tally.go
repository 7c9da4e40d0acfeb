package quorum

import (
	"fmt"
	"sync"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Tally accumulates distinct validator signatures per message id. It can
// be read from outside a transaction.
type Tally struct {
	mu    sync.RWMutex
	votes map[ethcommon.Hash][]ethcommon.Address
}

func NewTally() *Tally {
	return &Tally{votes: make(map[ethcommon.Hash][]ethcommon.Address)}
}

// Add records a vote and reports whether it was new.
func (t *Tally) Add(id ethcommon.Hash, validator ethcommon.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range t.votes[id] {
		if v == validator {
			return false
		}
	}
	t.votes[id] = append(t.votes[id], validator)
	return true
}

// Remove drops a vote, it undoes Add.
func (t *Tally) Remove(id ethcommon.Hash, validator ethcommon.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	votes := t.votes[id]
	for i, v := range votes {
		if v == validator {
			votes = append(votes[:i:i], votes[i+1:]...)
			break
		}
	}
	if len(votes) == 0 {
		delete(t.votes, id)
		return
	}
	t.votes[id] = votes
}

func (t *Tally) Has(id ethcommon.Hash, validator ethcommon.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, v := range t.votes[id] {
		if v == validator {
			return true
		}
	}
	return false
}

// Signers returns the votes for id in arrival order.
func (t *Tally) Signers(id ethcommon.Hash) []ethcommon.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]ethcommon.Address{}, t.votes[id]...)
}

func (t *Tally) Count(id ethcommon.Hash) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.votes[id])
}

// Attest counts signer's vote for id. Only signatures of validators still
// in the set count toward the threshold. Re-attesting is a no-op.
func Attest(
	c *chain.Call,
	q *Quorum,
	tally *Tally,
	id ethcommon.Hash,
	signer ethcommon.Address,
) (added bool, reached bool, err error) {
	if !q.IsValidator(signer) {
		return false, false, fmt.Errorf("%w: %s is not a validator", agreement.ErrUnauthorized, signer.String())
	}

	added = tally.Add(id, signer)
	if added {
		c.OnRevert(func() { tally.Remove(id, signer) })
	}

	var live uint64
	for _, v := range tally.Signers(id) {
		if q.IsValidator(v) {
			live++
		}
	}
	return added, live >= q.RequiredSignatures(), nil
}
