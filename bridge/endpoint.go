package bridge

import (
	"fmt"
	"math/big"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/ledger"
	"github.com/TEENet-io/tokenbridge/quorum"
	"github.com/TEENet-io/tokenbridge/ratelimit"
	"github.com/TEENet-io/tokenbridge/signers"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	Side                       agreement.Side
	Quorum                     *quorum.Quorum
	Limits                     *ratelimit.Limits
	Asset                      Asset
	RequiredBlockConfirmations uint64
	GasPrice                   *big.Int
	Owner                      ethcommon.Address
}

// Endpoint is one side of the bridge. It takes deposits through the token
// hook and executes inbound messages once enough validators signed them.
type Endpoint struct {
	address ethcommon.Address

	initialized   bool
	side          agreement.Side
	owner         ethcommon.Address
	quorum        *quorum.Quorum
	tally         *quorum.Tally
	limiter       *ratelimit.Limiter
	asset         Asset
	confirmations uint64
	gasPrice      *big.Int

	records  map[ethcommon.Hash]*Record
	requests map[ethcommon.Hash]*Request

	// set while RelayTokens pulls a deposit so the hook does not count it again
	relaying bool
}

// New deploys an uninitialized endpoint.
func New(env *chain.Env) *Endpoint {
	e := &Endpoint{
		tally:    quorum.NewTally(),
		records:  make(map[ethcommon.Hash]*Record),
		requests: make(map[ethcommon.Hash]*Request),
	}
	e.address = env.Deploy(e)
	return e
}

func (e *Endpoint) Initialize(c *chain.Call, cfg *Config) error {
	if e.initialized {
		return agreement.ErrAlreadyInitialized
	}
	if !cfg.Side.IsValid() {
		return fmt.Errorf("%w: unknown side %q", agreement.ErrInvalidConfiguration, cfg.Side)
	}
	if cfg.Quorum == nil || !cfg.Quorum.Initialized() {
		return fmt.Errorf("%w: initialized validator set required", agreement.ErrInvalidConfiguration)
	}
	if cfg.Asset == nil || cfg.Asset.Token() == nil {
		return fmt.Errorf("%w: asset required", agreement.ErrInvalidConfiguration)
	}
	if cfg.RequiredBlockConfirmations == 0 {
		return fmt.Errorf("%w: required block confirmations must be positive", agreement.ErrInvalidConfiguration)
	}
	if cfg.GasPrice == nil || cfg.GasPrice.Sign() <= 0 {
		return fmt.Errorf("%w: gas price must be positive", agreement.ErrInvalidConfiguration)
	}
	if common.IsZeroAddress(cfg.Owner) {
		return agreement.ErrInvalidOwner
	}
	limiter, err := ratelimit.New(cfg.Limits)
	if err != nil {
		return err
	}

	e.initialized = true
	e.side = cfg.Side
	e.owner = cfg.Owner
	e.quorum = cfg.Quorum
	e.limiter = limiter
	e.asset = cfg.Asset
	e.confirmations = cfg.RequiredBlockConfirmations
	e.gasPrice = common.BigIntClone(cfg.GasPrice)
	c.OnRevert(func() {
		e.initialized = false
		e.side = ""
		e.owner = ethcommon.Address{}
		e.quorum = nil
		e.limiter = nil
		e.asset = nil
		e.confirmations = 0
		e.gasPrice = nil
	})

	c.Emit(e.address, &LimitsChangedEvent{Limits: limiter.Limits()})
	c.Emit(e.address, &GasPriceChangedEvent{GasPrice: common.BigIntClone(e.gasPrice)})
	c.Emit(e.address, &RequiredBlockConfirmationChangedEvent{RequiredBlockConfirmations: e.confirmations})

	logger.WithFields(logger.Fields{
		"address": e.address.String(),
		"side":    e.side,
		"token":   e.asset.Token().Address().String(),
		"quorum":  e.quorum.Address().String(),
	}).Debug("bridge endpoint initialized")

	return nil
}

// OnTokenTransfer receives deposits. Only the endpoint's own token may call
// it. The recipient on the other chain is `from` unless data carries a
// 20-byte address.
func (e *Endpoint) OnTokenTransfer(c *chain.Call, from ethcommon.Address, value *big.Int, data []byte) error {
	if !e.initialized {
		return fmt.Errorf("%w: endpoint not initialized", agreement.ErrInvalidConfiguration)
	}
	if c.Sender != e.asset.Token().Address() {
		return fmt.Errorf("%w: only %s can notify deposits",
			agreement.ErrUnauthorized, e.asset.Token().Address().String())
	}
	if e.relaying {
		return nil
	}

	recipient := from
	switch len(data) {
	case 0:
	case ethcommon.AddressLength:
		recipient = ethcommon.BytesToAddress(data)
	default:
		return fmt.Errorf("%w: data must be empty or a 20-byte address", agreement.ErrInvalidRecipient)
	}

	return e.requestOutbound(c, from, recipient, value)
}

// RelayTokens pulls amount from the caller through an allowance and
// requests it be bridged to recipient.
func (e *Endpoint) RelayTokens(c *chain.Call, recipient ethcommon.Address, amount *big.Int) error {
	if !e.initialized {
		return fmt.Errorf("%w: endpoint not initialized", agreement.ErrInvalidConfiguration)
	}

	sender := c.Sender
	return c.Atomic(func() error {
		e.relaying = true
		err := e.asset.Token().TransferFrom(c.Sub(e.address), sender, e.address, amount)
		e.relaying = false
		if err != nil {
			return err
		}
		return e.requestOutbound(c, sender, recipient, amount)
	})
}

func (e *Endpoint) requestOutbound(c *chain.Call, sender, recipient ethcommon.Address, amount *big.Int) error {
	if common.IsZeroAddress(recipient) {
		return agreement.ErrInvalidRecipient
	}
	if err := e.limiter.CheckAndRecordOutbound(c, amount); err != nil {
		return err
	}
	if err := e.asset.Settle(c, e.address, amount); err != nil {
		return err
	}

	req := &Request{
		ID:          MessageID(c.ChainID(), c.TxHash(), c.NextLogIndex()),
		Sender:      sender,
		Recipient:   recipient,
		Amount:      common.BigIntClone(amount),
		SourceChain: c.ChainID(),
		TxHash:      c.TxHash(),
		LogIndex:    c.NextLogIndex(),
	}
	c.Emit(e.address, &UserRequestForSignatureEvent{
		MessageID: req.ID,
		Sender:    sender,
		Recipient: recipient,
		Amount:    common.BigIntClone(amount),
	})

	e.requests[req.ID] = req
	c.OnRevert(func() { delete(e.requests, req.ID) })

	logger.WithFields(logger.Fields{
		"id":        req.ID.String(),
		"side":      e.side,
		"recipient": recipient.String(),
		"amount":    amount.String(),
	}).Debug("outbound request")

	return nil
}

// SubmitSignature counts one validator signature for the content of msg
// and executes the message once that content reaches the threshold.
// Signatures are tallied per content hash, so a validator signing
// different content under the same id cannot block the honest quorum.
func (e *Endpoint) SubmitSignature(c *chain.Call, msg *Message, sig []byte) error {
	if !e.initialized {
		return fmt.Errorf("%w: endpoint not initialized", agreement.ErrInvalidConfiguration)
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.SourceChain.Cmp(c.ChainID()) == 0 {
		return fmt.Errorf("%w: message originates on this chain", agreement.ErrInvalidMessage)
	}

	hash := msg.SigningHash(e.address)
	signer, err := signers.Recover(hash.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", agreement.ErrInvalidSignature, err)
	}
	if !e.quorum.IsValidator(signer) {
		return fmt.Errorf("%w: %s is not a validator", agreement.ErrUnauthorized, signer.String())
	}

	rec, ok := e.records[msg.ID]
	if ok {
		if rec.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is %s", agreement.ErrAlreadyExecuted, msg.ID.String(), rec.Status)
		}
	} else {
		rec = &Record{Message: msg.Clone(), Status: agreement.MessageStatusPending}
		e.records[msg.ID] = rec
		c.OnRevert(func() { delete(e.records, msg.ID) })

		c.Emit(e.address, &MessageSubmittedEvent{
			MessageID:   msg.ID,
			Recipient:   msg.Recipient,
			Amount:      common.BigIntClone(msg.Amount),
			SourceChain: common.BigIntClone(msg.SourceChain),
		})
	}

	added, reached, err := quorum.Attest(c, e.quorum, e.tally, hash, signer)
	if err != nil {
		return err
	}
	if added {
		c.Emit(e.address, &SignedForMessageEvent{
			Validator:   signer,
			MessageID:   msg.ID,
			MessageHash: hash,
			Signature:   append([]byte{}, sig...),
		})

		logger.WithFields(logger.Fields{
			"id":        msg.ID.String(),
			"hash":      hash.String(),
			"validator": signer.String(),
			"signed":    e.tally.Count(hash),
			"required":  e.quorum.RequiredSignatures(),
		}).Debug("signature counted")
	}

	// A repeated signature still executes when the threshold was lowered
	// after it was first counted.
	if !reached {
		return nil
	}
	return e.execute(c, rec, msg)
}

// execute releases msg, the content that reached quorum for rec. A rate
// limit refusal rejects the message for good; any other failure aborts
// the transaction.
func (e *Endpoint) execute(c *chain.Call, rec *Record, msg *Message) error {
	if !rec.Message.Equal(msg) {
		prev := rec.Message
		rec.Message = msg.Clone()
		c.OnRevert(func() { rec.Message = prev })
	}
	msg = rec.Message

	err := c.Try(e.address, func(sub *chain.Call) error {
		if err := e.limiter.CheckAndRecordInbound(sub, msg.Amount); err != nil {
			return err
		}
		return e.asset.Release(sub, e.address, msg.Recipient, msg.Amount)
	})

	switch {
	case err == nil:
		e.setStatus(c, rec, agreement.MessageStatusExecuted, "")
		c.Emit(e.address, &MessageExecutedEvent{
			MessageID: msg.ID,
			Recipient: msg.Recipient,
			Amount:    common.BigIntClone(msg.Amount),
		})
		logger.WithField("id", msg.ID.String()).Debug("message executed")
		return nil
	case agreement.IsRateLimitError(err):
		e.setStatus(c, rec, agreement.MessageStatusRejected, err.Error())
		c.Emit(e.address, &MessageRejectedEvent{MessageID: msg.ID, Reason: err.Error()})
		logger.WithField("id", msg.ID.String()).Debugf("message rejected: %v", err)
		return nil
	default:
		return err
	}
}

func (e *Endpoint) setStatus(c *chain.Call, rec *Record, status agreement.MessageStatus, reason string) {
	prevStatus, prevReason := rec.Status, rec.Reason
	rec.Status, rec.Reason = status, reason
	c.OnRevert(func() { rec.Status, rec.Reason = prevStatus, prevReason })
}

func (e *Endpoint) SetLimits(c *chain.Call, limits *ratelimit.Limits) error {
	if err := e.onlyOwner(c); err != nil {
		return err
	}
	if err := e.limiter.SetLimits(c, limits); err != nil {
		return err
	}
	c.Emit(e.address, &LimitsChangedEvent{Limits: e.limiter.Limits()})
	return nil
}

func (e *Endpoint) SetGasPrice(c *chain.Call, gasPrice *big.Int) error {
	if err := e.onlyOwner(c); err != nil {
		return err
	}
	if gasPrice == nil || gasPrice.Sign() <= 0 {
		return fmt.Errorf("%w: gas price must be positive", agreement.ErrInvalidConfiguration)
	}

	prev := e.gasPrice
	e.gasPrice = common.BigIntClone(gasPrice)
	c.OnRevert(func() { e.gasPrice = prev })

	c.Emit(e.address, &GasPriceChangedEvent{GasPrice: common.BigIntClone(gasPrice)})
	return nil
}

func (e *Endpoint) SetRequiredBlockConfirmations(c *chain.Call, n uint64) error {
	if err := e.onlyOwner(c); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: required block confirmations must be positive", agreement.ErrInvalidConfiguration)
	}

	prev := e.confirmations
	e.confirmations = n
	c.OnRevert(func() { e.confirmations = prev })

	c.Emit(e.address, &RequiredBlockConfirmationChangedEvent{RequiredBlockConfirmations: n})
	return nil
}

func (e *Endpoint) TransferOwnership(c *chain.Call, newOwner ethcommon.Address) error {
	if err := e.onlyOwner(c); err != nil {
		return err
	}
	if common.IsZeroAddress(newOwner) {
		return agreement.ErrInvalidOwner
	}

	prev := e.owner
	e.owner = newOwner
	c.OnRevert(func() { e.owner = prev })

	c.Emit(e.address, &OwnershipTransferredEvent{PreviousOwner: prev, NewOwner: newOwner})
	return nil
}

// ClaimTokens rescues tokens sent to the endpoint by mistake. The bridged
// token itself cannot be claimed.
func (e *Endpoint) ClaimTokens(c *chain.Call, token, to ethcommon.Address) error {
	if err := e.onlyOwner(c); err != nil {
		return err
	}
	if common.IsZeroAddress(to) {
		return agreement.ErrInvalidRecipient
	}
	if token == e.asset.Token().Address() {
		return fmt.Errorf("%w: cannot claim the bridged token", agreement.ErrInvalidToken)
	}
	return ledger.ClaimForeignToken(c, e.address, token, to)
}

func (e *Endpoint) onlyOwner(c *chain.Call) error {
	if !e.initialized {
		return fmt.Errorf("%w: endpoint not initialized", agreement.ErrUnauthorized)
	}
	if c.Sender != e.owner {
		return fmt.Errorf("%w: only owner", agreement.ErrUnauthorized)
	}
	return nil
}

func (e *Endpoint) Address() ethcommon.Address         { return e.address }
func (e *Endpoint) Initialized() bool                  { return e.initialized }
func (e *Endpoint) Side() agreement.Side               { return e.side }
func (e *Endpoint) Owner() ethcommon.Address           { return e.owner }
func (e *Endpoint) Quorum() *quorum.Quorum             { return e.quorum }
func (e *Endpoint) Asset() Asset                       { return e.asset }
func (e *Endpoint) RequiredBlockConfirmations() uint64 { return e.confirmations }

func (e *Endpoint) GasPrice() *big.Int {
	return common.BigIntClone(e.gasPrice)
}

func (e *Endpoint) Limits() *ratelimit.Limits {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Limits()
}

// Limiter exposes the rate limiter for read-only checks.
func (e *Endpoint) Limiter() *ratelimit.Limiter {
	return e.limiter
}

func (e *Endpoint) SpentOutbound(day uint64) *big.Int {
	return e.limiter.SpentOutbound(day)
}

func (e *Endpoint) SpentInbound(day uint64) *big.Int {
	return e.limiter.SpentInbound(day)
}

func (e *Endpoint) Status(id ethcommon.Hash) agreement.MessageStatus {
	if rec, ok := e.records[id]; ok {
		return rec.Status
	}
	return agreement.MessageStatusUnseen
}

func (e *Endpoint) Record(id ethcommon.Hash) (*Record, bool) {
	rec, ok := e.records[id]
	if !ok {
		return nil, false
	}
	return &Record{Message: rec.Message.Clone(), Status: rec.Status, Reason: rec.Reason}, true
}

// Signers lists the validators that signed exactly the content of msg.
func (e *Endpoint) Signers(msg *Message) []ethcommon.Address {
	return e.tally.Signers(msg.SigningHash(e.address))
}

func (e *Endpoint) Request(id ethcommon.Hash) (*Request, bool) {
	req, ok := e.requests[id]
	if !ok {
		return nil, false
	}
	cp := *req
	cp.Amount = common.BigIntClone(req.Amount)
	cp.SourceChain = common.BigIntClone(req.SourceChain)
	return &cp, true
}
