package quorum

import (
	"fmt"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// Quorum is the validator set contract: an ordered, duplicate-free list of
// validators and the number of distinct signatures a message needs.
type Quorum struct {
	address ethcommon.Address

	initialized        bool
	owner              ethcommon.Address
	validators         []ethcommon.Address
	requiredSignatures uint64
}

// New deploys an uninitialized validator set.
func New(env *chain.Env) *Quorum {
	q := &Quorum{}
	q.address = env.Deploy(q)
	return q
}

func (q *Quorum) Initialize(
	c *chain.Call,
	requiredSignatures uint64,
	validators []ethcommon.Address,
	owner ethcommon.Address,
) error {
	if q.initialized {
		return agreement.ErrAlreadyInitialized
	}
	if requiredSignatures == 0 || requiredSignatures > uint64(len(validators)) {
		return fmt.Errorf("%w: required=%d, validators=%d",
			agreement.ErrInvalidThreshold, requiredSignatures, len(validators))
	}

	seen := make(map[ethcommon.Address]struct{}, len(validators))
	for _, v := range validators {
		if common.IsZeroAddress(v) {
			return agreement.ErrInvalidValidator
		}
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: %s", agreement.ErrDuplicateValidator, v.String())
		}
		seen[v] = struct{}{}
	}
	if common.IsZeroAddress(owner) {
		return agreement.ErrInvalidOwner
	}

	q.initialized = true
	q.owner = owner
	q.validators = append([]ethcommon.Address{}, validators...)
	q.requiredSignatures = requiredSignatures
	c.OnRevert(func() {
		q.initialized = false
		q.owner = ethcommon.Address{}
		q.validators = nil
		q.requiredSignatures = 0
	})

	for _, v := range validators {
		c.Emit(q.address, &ValidatorAddedEvent{Validator: v})
	}
	c.Emit(q.address, &RequiredSignaturesChangedEvent{RequiredSignatures: requiredSignatures})

	logger.WithFields(logger.Fields{
		"address":  q.address.String(),
		"required": requiredSignatures,
		"count":    len(validators),
	}).Debug("validator set initialized")

	return nil
}

func (q *Quorum) Address() ethcommon.Address { return q.address }
func (q *Quorum) Owner() ethcommon.Address   { return q.owner }
func (q *Quorum) Initialized() bool          { return q.initialized }
func (q *Quorum) RequiredSignatures() uint64 { return q.requiredSignatures }
func (q *Quorum) Count() int                 { return len(q.validators) }

func (q *Quorum) Validators() []ethcommon.Address {
	return append([]ethcommon.Address{}, q.validators...)
}

func (q *Quorum) IsValidator(addr ethcommon.Address) bool {
	return q.indexOf(addr) >= 0
}

func (q *Quorum) AddValidator(c *chain.Call, validator ethcommon.Address) error {
	if err := q.onlyOwner(c); err != nil {
		return err
	}
	if common.IsZeroAddress(validator) {
		return agreement.ErrInvalidValidator
	}
	if q.IsValidator(validator) {
		return fmt.Errorf("%w: %s", agreement.ErrDuplicateValidator, validator.String())
	}

	prev := q.validators
	q.validators = append(append([]ethcommon.Address{}, prev...), validator)
	c.OnRevert(func() { q.validators = prev })

	c.Emit(q.address, &ValidatorAddedEvent{Validator: validator})
	return nil
}

func (q *Quorum) RemoveValidator(c *chain.Call, validator ethcommon.Address) error {
	if err := q.onlyOwner(c); err != nil {
		return err
	}
	i := q.indexOf(validator)
	if i < 0 {
		return fmt.Errorf("%w: %s", agreement.ErrUnknownValidator, validator.String())
	}
	if uint64(len(q.validators)-1) < q.requiredSignatures {
		return fmt.Errorf("%w: %d validators would remain, %d signatures required",
			agreement.ErrThresholdViolation, len(q.validators)-1, q.requiredSignatures)
	}

	prev := q.validators
	next := make([]ethcommon.Address, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	q.validators = append(next, prev[i+1:]...)
	c.OnRevert(func() { q.validators = prev })

	c.Emit(q.address, &ValidatorRemovedEvent{Validator: validator})
	return nil
}

func (q *Quorum) SetRequiredSignatures(c *chain.Call, n uint64) error {
	if err := q.onlyOwner(c); err != nil {
		return err
	}
	if n == 0 || n > uint64(len(q.validators)) {
		return fmt.Errorf("%w: required=%d, validators=%d",
			agreement.ErrInvalidThreshold, n, len(q.validators))
	}

	prev := q.requiredSignatures
	q.requiredSignatures = n
	c.OnRevert(func() { q.requiredSignatures = prev })

	c.Emit(q.address, &RequiredSignaturesChangedEvent{RequiredSignatures: n})
	return nil
}

func (q *Quorum) TransferOwnership(c *chain.Call, newOwner ethcommon.Address) error {
	if err := q.onlyOwner(c); err != nil {
		return err
	}
	if common.IsZeroAddress(newOwner) {
		return agreement.ErrInvalidOwner
	}

	prev := q.owner
	q.owner = newOwner
	c.OnRevert(func() { q.owner = prev })

	c.Emit(q.address, &OwnershipTransferredEvent{PreviousOwner: prev, NewOwner: newOwner})
	return nil
}

func (q *Quorum) onlyOwner(c *chain.Call) error {
	if !q.initialized {
		return fmt.Errorf("%w: validator set not initialized", agreement.ErrUnauthorized)
	}
	if c.Sender != q.owner {
		return fmt.Errorf("%w: only owner can change the validator set", agreement.ErrUnauthorized)
	}
	return nil
}

func (q *Quorum) indexOf(addr ethcommon.Address) int {
	for i, v := range q.validators {
		if v == addr {
			return i
		}
	}
	return -1
}
