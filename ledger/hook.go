package ledger

import (
	"math/big"

	"github.com/TEENet-io/tokenbridge/chain"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// TokenReceiver is the transfer notification hook a receiving contract may
// implement. Returning an error rejects the incoming transfer.
type TokenReceiver interface {
	OnTokenTransfer(c *chain.Call, from ethcommon.Address, value *big.Int, data []byte) error
}

// Token is the ERC20 surface that other contracts rely on.
type Token interface {
	Address() ethcommon.Address
	BalanceOf(owner ethcommon.Address) *big.Int
	Transfer(c *chain.Call, to ethcommon.Address, value *big.Int) error
	TransferFrom(c *chain.Call, from, to ethcommon.Address, value *big.Int) error
}

// HookCapability is what a transfer destination can do with a notification.
type HookCapability int

const (
	NotContract HookCapability = iota
	ContractWithoutHook
	ContractWithHook
)

func (h HookCapability) String() string {
	switch h {
	case NotContract:
		return "not-a-contract"
	case ContractWithoutHook:
		return "contract-without-hook"
	case ContractWithHook:
		return "contract-with-hook"
	}
	return "unknown"
}

// Probe inspects the code deployed at addr.
func Probe(c *chain.Call, addr ethcommon.Address) HookCapability {
	code, ok := c.CodeAt(addr)
	if !ok {
		return NotContract
	}
	if _, ok := code.(TokenReceiver); ok {
		return ContractWithHook
	}
	return ContractWithoutHook
}

func receiverAt(c *chain.Call, addr ethcommon.Address) TokenReceiver {
	code, _ := c.CodeAt(addr)
	receiver, _ := code.(TokenReceiver)
	return receiver
}
