package ledger

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	Name     string
	Symbol   string
	Decimals uint8
	Owner    ethcommon.Address
}

// Ledger is the bridgeable token. Its state is guarded by the env lock, see
// chain.Env.
type Ledger struct {
	address ethcommon.Address

	name     string
	symbol   string
	decimals uint8

	owner           ethcommon.Address
	mintingFinished bool // kept in the layout, nothing ever sets it
	bridgeContract  ethcommon.Address

	totalSupply *uint256.Int
	balances    map[ethcommon.Address]*uint256.Int
	allowances  map[ethcommon.Address]map[ethcommon.Address]*uint256.Int
}

func New(env *chain.Env, cfg *Config) (*Ledger, error) {
	if cfg.Name == "" || cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: token name and symbol are required", agreement.ErrInvalidConfiguration)
	}
	if common.IsZeroAddress(cfg.Owner) {
		return nil, agreement.ErrInvalidOwner
	}

	l := &Ledger{
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		decimals:    cfg.Decimals,
		owner:       cfg.Owner,
		totalSupply: uint256.NewInt(0),
		balances:    make(map[ethcommon.Address]*uint256.Int),
		allowances:  make(map[ethcommon.Address]map[ethcommon.Address]*uint256.Int),
	}
	l.address = env.Deploy(l)

	logger.WithFields(logger.Fields{
		"address": l.address.String(),
		"symbol":  l.symbol,
		"owner":   l.owner.String(),
	}).Debug("token ledger created")

	return l, nil
}

func (l *Ledger) Address() ethcommon.Address { return l.address }
func (l *Ledger) Name() string               { return l.name }
func (l *Ledger) Symbol() string             { return l.symbol }
func (l *Ledger) Decimals() uint8            { return l.decimals }
func (l *Ledger) Owner() ethcommon.Address   { return l.owner }
func (l *Ledger) MintingFinished() bool      { return l.mintingFinished }

// InterfacesVersion reports the version of the token interfaces the
// ledger implements.
func (l *Ledger) InterfacesVersion() (major, minor, patch uint64) {
	return 2, 0, 0
}

func (l *Ledger) BridgeContract() ethcommon.Address {
	return l.bridgeContract
}

func (l *Ledger) TotalSupply() *big.Int {
	return l.totalSupply.ToBig()
}

func (l *Ledger) BalanceOf(owner ethcommon.Address) *big.Int {
	return l.balanceOf(owner).ToBig()
}

func (l *Ledger) Allowance(owner, spender ethcommon.Address) *big.Int {
	return l.allowance(owner, spender).ToBig()
}

// Holders lists every address with a non-zero balance, sorted.
func (l *Ledger) Holders() []ethcommon.Address {
	holders := make([]ethcommon.Address, 0, len(l.balances))
	for addr := range l.balances {
		holders = append(holders, addr)
	}
	sort.Slice(holders, func(i, j int) bool {
		return holders[i].Cmp(holders[j]) < 0
	})
	return holders
}

func (l *Ledger) Mint(c *chain.Call, to ethcommon.Address, amount *big.Int) error {
	if c.Sender != l.owner {
		return fmt.Errorf("%w: only owner can mint", agreement.ErrUnauthorized)
	}
	if l.mintingFinished {
		return agreement.ErrMintingClosed
	}
	if common.IsZeroAddress(to) {
		return agreement.ErrInvalidRecipient
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, v)
	if overflow {
		return agreement.ErrAmountOverflow
	}
	l.setTotalSupply(c, supply)
	l.setBalance(c, to, new(uint256.Int).Add(l.balanceOf(to), v))

	c.Emit(l.address, &MintEvent{To: to, Amount: v.ToBig()})
	c.Emit(l.address, &TransferEvent{From: common.ZeroAddress, To: to, Value: v.ToBig()})

	logger.WithFields(logger.Fields{
		"to":     to.String(),
		"amount": v.Dec(),
	}).Debug("minted")

	return nil
}

// FinishMinting never succeeds: supply on the bridge side stays mintable.
func (l *Ledger) FinishMinting(c *chain.Call) error {
	return fmt.Errorf("%w: minting cannot be finished", agreement.ErrUnauthorized)
}

func (l *Ledger) Burn(c *chain.Call, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}
	burner := c.Sender
	bal := l.balanceOf(burner)
	if bal.Lt(v) {
		return fmt.Errorf("%w: balance=%s, burn=%s", agreement.ErrInsufficientBalance, bal.Dec(), v.Dec())
	}

	l.setBalance(c, burner, new(uint256.Int).Sub(bal, v))
	l.setTotalSupply(c, new(uint256.Int).Sub(l.totalSupply, v))

	c.Emit(l.address, &BurnEvent{Burner: burner, Amount: v.ToBig()})
	c.Emit(l.address, &TransferEvent{From: burner, To: common.ZeroAddress, Value: v.ToBig()})

	return nil
}

func (l *Ledger) SetBridgeContract(c *chain.Call, bridge ethcommon.Address) error {
	if c.Sender != l.owner {
		return fmt.Errorf("%w: only owner can set bridge contract", agreement.ErrUnauthorized)
	}
	if common.IsZeroAddress(bridge) || bridge == l.address || !c.IsContract(bridge) {
		return fmt.Errorf("%w: %s", agreement.ErrInvalidBridgeAddress, bridge.String())
	}

	prev := l.bridgeContract
	l.bridgeContract = bridge
	c.OnRevert(func() { l.bridgeContract = prev })

	c.Emit(l.address, &BridgeContractSetEvent{Address: bridge})
	return nil
}

func (l *Ledger) TransferOwnership(c *chain.Call, newOwner ethcommon.Address) error {
	if c.Sender != l.owner {
		return fmt.Errorf("%w: only owner can transfer ownership", agreement.ErrUnauthorized)
	}
	if common.IsZeroAddress(newOwner) {
		return agreement.ErrInvalidOwner
	}

	prev := l.owner
	l.owner = newOwner
	c.OnRevert(func() { l.owner = prev })

	c.Emit(l.address, &OwnershipTransferredEvent{PreviousOwner: prev, NewOwner: newOwner})
	return nil
}

// Transfer moves value from the caller to `to`. If `to` is a contract its
// hook is notified; a failing or missing hook is only logged unless `to`
// is the bridge contract, which must accept every deposit.
func (l *Ledger) Transfer(c *chain.Call, to ethcommon.Address, value *big.Int) error {
	return l.transfer(c, c.Sender, to, value, nil, false)
}

// TransferAndCall is Transfer for callers that depend on the hook: it fails
// unless `to` is a hook-aware contract that accepts the transfer.
func (l *Ledger) TransferAndCall(c *chain.Call, to ethcommon.Address, value *big.Int, data []byte) error {
	return l.transfer(c, c.Sender, to, value, data, true)
}

func (l *Ledger) TransferFrom(c *chain.Call, from, to ethcommon.Address, value *big.Int) error {
	v, err := toUint256(value)
	if err != nil {
		return err
	}
	spender := c.Sender
	allowed := l.allowance(from, spender)
	if allowed.Lt(v) {
		return fmt.Errorf("%w: allowance=%s, value=%s", agreement.ErrInsufficientAllowance, allowed.Dec(), v.Dec())
	}

	return c.Atomic(func() error {
		l.setAllowance(c, from, spender, new(uint256.Int).Sub(allowed, v))
		return l.transfer(c, from, to, value, nil, false)
	})
}

func (l *Ledger) Approve(c *chain.Call, spender ethcommon.Address, value *big.Int) error {
	v, err := toUint256(value)
	if err != nil {
		return err
	}
	if common.IsZeroAddress(spender) {
		return agreement.ErrInvalidRecipient
	}

	l.setAllowance(c, c.Sender, spender, v)
	c.Emit(l.address, &ApprovalEvent{Owner: c.Sender, Spender: spender, Value: v.ToBig()})
	return nil
}

func (l *Ledger) IncreaseAllowance(c *chain.Call, spender ethcommon.Address, added *big.Int) error {
	v, err := toUint256(added)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(l.allowance(c.Sender, spender), v)
	if overflow {
		return agreement.ErrAmountOverflow
	}
	return l.Approve(c, spender, next.ToBig())
}

// DecreaseAllowance floors at zero.
func (l *Ledger) DecreaseAllowance(c *chain.Call, spender ethcommon.Address, subtracted *big.Int) error {
	v, err := toUint256(subtracted)
	if err != nil {
		return err
	}
	current := l.allowance(c.Sender, spender)
	next := uint256.NewInt(0)
	if current.Gt(v) {
		next.Sub(current, v)
	}
	return l.Approve(c, spender, next.ToBig())
}

// ClaimTokens sweeps the ledger's balance of an unrelated token to `to`.
func (l *Ledger) ClaimTokens(c *chain.Call, token, to ethcommon.Address) error {
	if c.Sender != l.owner {
		return fmt.Errorf("%w: only owner can claim tokens", agreement.ErrUnauthorized)
	}
	if common.IsZeroAddress(to) {
		return agreement.ErrInvalidRecipient
	}
	return ClaimForeignToken(c, l.address, token, to)
}

// ClaimForeignToken moves holder's whole balance of token to `to`, as a call
// made by holder. The token must not be the holder itself.
func ClaimForeignToken(c *chain.Call, holder, token, to ethcommon.Address) error {
	if token == holder {
		return fmt.Errorf("%w: cannot claim own token", agreement.ErrInvalidToken)
	}
	code, _ := c.CodeAt(token)
	t, ok := code.(Token)
	if !ok {
		return fmt.Errorf("%w: %s is not a token contract", agreement.ErrInvalidToken, token.String())
	}

	balance := t.BalanceOf(holder)
	logger.WithFields(logger.Fields{
		"holder": holder.String(),
		"token":  token.String(),
		"to":     to.String(),
		"amount": balance.String(),
	}).Debug("claiming tokens")

	return t.Transfer(c.Sub(holder), to, balance)
}

// transfer is the single path behind Transfer, TransferFrom and
// TransferAndCall. strictHook turns hook problems into failures.
func (l *Ledger) transfer(
	c *chain.Call,
	from, to ethcommon.Address,
	value *big.Int,
	data []byte,
	strictHook bool,
) error {
	if strictHook && (to == l.address || common.IsZeroAddress(to)) {
		return agreement.ErrSelfTransferForbidden
	}
	if common.IsZeroAddress(to) {
		return agreement.ErrInvalidRecipient
	}
	v, err := toUint256(value)
	if err != nil {
		return err
	}

	capability := Probe(c, to)
	if strictHook && capability != ContractWithHook {
		return fmt.Errorf("%w: %s is %s", agreement.ErrHookRequired, to.String(), capability)
	}

	return c.Atomic(func() error {
		fromBal := l.balanceOf(from)
		if fromBal.Lt(v) {
			return fmt.Errorf("%w: balance=%s, value=%s", agreement.ErrInsufficientBalance, fromBal.Dec(), v.Dec())
		}
		l.setBalance(c, from, new(uint256.Int).Sub(fromBal, v))
		l.setBalance(c, to, new(uint256.Int).Add(l.balanceOf(to), v))
		c.Emit(l.address, &TransferEvent{From: from, To: to, Value: v.ToBig()})

		return l.notify(c, from, to, v, data, capability, strictHook)
	})
}

func (l *Ledger) notify(
	c *chain.Call,
	from, to ethcommon.Address,
	v *uint256.Int,
	data []byte,
	capability HookCapability,
	strictHook bool,
) error {
	if capability == NotContract {
		return nil
	}

	var err error
	if capability == ContractWithHook {
		receiver := receiverAt(c, to)
		err = c.Try(l.address, func(sub *chain.Call) error {
			return receiver.OnTokenTransfer(sub, from, v.ToBig(), data)
		})
	} else {
		err = fmt.Errorf("%w: %s has no hook", agreement.ErrHookRequired, to.String())
	}
	if err == nil {
		return nil
	}

	if strictHook || to == l.bridgeContract {
		return err
	}

	logger.WithFields(logger.Fields{
		"from":  from.String(),
		"to":    to.String(),
		"value": v.Dec(),
	}).Debugf("contract fallback call failed: %v", err)
	c.Emit(l.address, &ContractFallbackCallFailedEvent{From: from, To: to, Value: v.ToBig()})

	return nil
}

func (l *Ledger) balanceOf(owner ethcommon.Address) *uint256.Int {
	if bal, ok := l.balances[owner]; ok {
		return bal
	}
	return uint256.NewInt(0)
}

func (l *Ledger) allowance(owner, spender ethcommon.Address) *uint256.Int {
	if m, ok := l.allowances[owner]; ok {
		if v, ok := m[spender]; ok {
			return v
		}
	}
	return uint256.NewInt(0)
}

// Stored values are never mutated in place; setters swap pointers and
// journal the previous one.

func (l *Ledger) setBalance(c *chain.Call, owner ethcommon.Address, bal *uint256.Int) {
	prev, had := l.balances[owner]
	if bal.IsZero() {
		delete(l.balances, owner)
	} else {
		l.balances[owner] = bal
	}

	c.OnRevert(func() {
		if had {
			l.balances[owner] = prev
		} else {
			delete(l.balances, owner)
		}
	})
}

func (l *Ledger) setTotalSupply(c *chain.Call, supply *uint256.Int) {
	prev := l.totalSupply
	l.totalSupply = supply
	c.OnRevert(func() { l.totalSupply = prev })
}

func (l *Ledger) setAllowance(c *chain.Call, owner, spender ethcommon.Address, v *uint256.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[ethcommon.Address]*uint256.Int)
		l.allowances[owner] = m
	}
	prev, had := m[spender]
	m[spender] = v

	c.OnRevert(func() {
		if had {
			m[spender] = prev
		} else {
			delete(m, spender)
		}
	})
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, agreement.ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, agreement.ErrAmountOverflow
	}
	return v, nil
}
