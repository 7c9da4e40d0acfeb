package bridge

import (
	"math/big"

	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/ledger"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Asset is how an endpoint holds and pays out value on its chain.
type Asset interface {
	Token() ledger.Token
	// Release pays amount to `to` for an executed inbound message.
	Release(c *chain.Call, endpoint, to ethcommon.Address, amount *big.Int) error
	// Settle disposes of a deposit the endpoint already received.
	Settle(c *chain.Call, endpoint ethcommon.Address, amount *big.Int) error
}

// MintBurnAsset is used on the home side: the endpoint owns the bridgeable
// ledger, mints on release and burns deposits.
type MintBurnAsset struct {
	ledger *ledger.Ledger
}

func NewMintBurnAsset(l *ledger.Ledger) *MintBurnAsset {
	return &MintBurnAsset{ledger: l}
}

func (a *MintBurnAsset) Token() ledger.Token { return a.ledger }

func (a *MintBurnAsset) Release(c *chain.Call, endpoint, to ethcommon.Address, amount *big.Int) error {
	return a.ledger.Mint(c.Sub(endpoint), to, amount)
}

func (a *MintBurnAsset) Settle(c *chain.Call, endpoint ethcommon.Address, amount *big.Int) error {
	return a.ledger.Burn(c.Sub(endpoint), amount)
}

// EscrowAsset is used on the foreign side: deposits stay locked in the
// endpoint and releases are paid out of that balance.
type EscrowAsset struct {
	token ledger.Token
}

func NewEscrowAsset(token ledger.Token) *EscrowAsset {
	return &EscrowAsset{token: token}
}

func (a *EscrowAsset) Token() ledger.Token { return a.token }

func (a *EscrowAsset) Release(c *chain.Call, endpoint, to ethcommon.Address, amount *big.Int) error {
	return a.token.Transfer(c.Sub(endpoint), to, amount)
}

func (a *EscrowAsset) Settle(c *chain.Call, endpoint ethcommon.Address, amount *big.Int) error {
	return nil
}
