package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var errRejected = errors.New("rejected by receiver")

type receiver struct {
	reject bool
	calls  int
	data   []byte
	from   ethcommon.Address
}

func (r *receiver) OnTokenTransfer(c *chain.Call, from ethcommon.Address, value *big.Int, data []byte) error {
	r.calls++
	r.data = data
	r.from = from
	if r.reject {
		return errRejected
	}
	return nil
}

type plainContract struct{}

type testEnv struct {
	env    *chain.Env
	ledger *Ledger
	owner  ethcommon.Address
	alice  ethcommon.Address
	bob    ethcommon.Address
}

func newTestEnv(t *testing.T) *testEnv {
	env := chain.NewEnv(big.NewInt(1), chain.NewManualClock(time.Unix(1_700_000_000, 0)))
	owner := common.RandEthAddress()
	l, err := New(env, &Config{Name: "Bridge Token", Symbol: "BT", Decimals: 18, Owner: owner})
	assert.NoError(t, err)

	return &testEnv{
		env:    env,
		ledger: l,
		owner:  owner,
		alice:  common.RandEthAddress(),
		bob:    common.RandEthAddress(),
	}
}

func (te *testEnv) mint(t *testing.T, to ethcommon.Address, amount *big.Int) {
	_, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.Mint(c, to, amount)
	})
	assert.NoError(t, err)
}

func (te *testEnv) assertSupplyInvariant(t *testing.T) {
	sum := big.NewInt(0)
	for _, h := range te.ledger.Holders() {
		sum.Add(sum, te.ledger.BalanceOf(h))
	}
	assert.Equal(t, 0, sum.Cmp(te.ledger.TotalSupply()))
}

func TestNew(t *testing.T) {
	env := chain.NewEnv(big.NewInt(1), nil)

	_, err := New(env, &Config{Name: "", Symbol: "BT", Owner: common.RandEthAddress()})
	assert.ErrorIs(t, err, agreement.ErrInvalidConfiguration)

	_, err = New(env, &Config{Name: "Bridge Token", Symbol: "BT"})
	assert.ErrorIs(t, err, agreement.ErrInvalidOwner)

	l, err := New(env, &Config{Name: "Bridge Token", Symbol: "BT", Decimals: 18, Owner: common.RandEthAddress()})
	assert.NoError(t, err)
	assert.True(t, env.IsContract(l.Address()))
	assert.Equal(t, uint8(18), l.Decimals())
	assert.False(t, l.MintingFinished())
	assert.Equal(t, 0, l.TotalSupply().Sign())

	major, minor, patch := l.InterfacesVersion()
	assert.Equal(t, [3]uint64{2, 0, 0}, [3]uint64{major, minor, patch})
}

func TestMint(t *testing.T) {
	te := newTestEnv(t)

	receipt, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.Mint(c, te.alice, common.Ether(100))
	})
	assert.NoError(t, err)
	assert.Len(t, receipt.Find(EventMint), 1)
	transfers := receipt.Find(EventTransfer)
	assert.Len(t, transfers, 1)
	assert.Equal(t, common.ZeroAddress, transfers[0].(*TransferEvent).From)
	assert.Equal(t, common.Ether(100), te.ledger.BalanceOf(te.alice))
	assert.Equal(t, common.Ether(100), te.ledger.TotalSupply())

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Mint(c, te.alice, common.Ether(1))
	})
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)

	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.Mint(c, common.ZeroAddress, common.Ether(1))
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidRecipient)

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.Mint(c, te.bob, maxUint256)
	})
	assert.ErrorIs(t, err, agreement.ErrAmountOverflow)
	assert.Equal(t, 0, te.ledger.BalanceOf(te.bob).Sign())

	te.assertSupplyInvariant(t)
}

func TestFinishMintingAlwaysFails(t *testing.T) {
	te := newTestEnv(t)

	_, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.FinishMinting(c)
	})
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)
	assert.False(t, te.ledger.MintingFinished())
}

func TestBurn(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	receipt, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Burn(c, common.Ether(4))
	})
	assert.NoError(t, err)
	assert.Len(t, receipt.Find(EventBurn), 1)
	assert.Equal(t, common.Ether(6), te.ledger.BalanceOf(te.alice))
	assert.Equal(t, common.Ether(6), te.ledger.TotalSupply())

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Burn(c, common.Ether(7))
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientBalance)
	te.assertSupplyInvariant(t)
}

func TestPlainTransfer(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, te.bob, common.Ether(3))
	})
	assert.NoError(t, err)
	assert.Equal(t, common.Ether(7), te.ledger.BalanceOf(te.alice))
	assert.Equal(t, common.Ether(3), te.ledger.BalanceOf(te.bob))

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, te.bob, common.Ether(8))
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientBalance)

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, common.ZeroAddress, common.Ether(1))
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidRecipient)

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, te.bob, big.NewInt(-1))
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidAmount)

	te.assertSupplyInvariant(t)
}

func TestPlainTransferToContractWithFailingHook(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	r := &receiver{reject: true}
	addr := te.env.Deploy(r)

	receipt, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, addr, common.Ether(2))
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Len(t, receipt.Find(EventContractFallbackCallFailed), 1)
	assert.Equal(t, common.Ether(2), te.ledger.BalanceOf(addr))
}

func TestPlainTransferToContractWithoutHook(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	addr := te.env.Deploy(&plainContract{})

	receipt, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, addr, common.Ether(1))
	})
	assert.NoError(t, err)
	assert.Len(t, receipt.Find(EventContractFallbackCallFailed), 1)
	assert.Equal(t, common.Ether(1), te.ledger.BalanceOf(addr))
}

func TestPlainTransferToBridgePropagatesHookError(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	bridge := &receiver{reject: true}
	bridgeAddr := te.env.Deploy(bridge)
	_, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.SetBridgeContract(c, bridgeAddr)
	})
	assert.NoError(t, err)

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Transfer(c, bridgeAddr, common.Ether(1))
	})
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, common.Ether(10), te.ledger.BalanceOf(te.alice))
	assert.Equal(t, 0, te.ledger.BalanceOf(bridgeAddr).Sign())
}

func TestTransferAndCall(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))

	r := &receiver{}
	addr := te.env.Deploy(r)
	data := te.bob.Bytes()

	_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.TransferAndCall(c, addr, common.Ether(2), data)
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, data, r.data)
	assert.Equal(t, te.alice, r.from)
	assert.Equal(t, common.Ether(2), te.ledger.BalanceOf(addr))

	// hook rejects: nothing moves
	r.reject = true
	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.TransferAndCall(c, addr, common.Ether(2), data)
	})
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, common.Ether(8), te.ledger.BalanceOf(te.alice))
	assert.Equal(t, common.Ether(2), te.ledger.BalanceOf(addr))

	tests := []struct {
		name string
		to   ethcommon.Address
		err  error
	}{
		{"externally owned", te.bob, agreement.ErrHookRequired},
		{"contract without hook", te.env.Deploy(&plainContract{}), agreement.ErrHookRequired},
		{"token itself", te.ledger.Address(), agreement.ErrSelfTransferForbidden},
		{"zero address", common.ZeroAddress, agreement.ErrSelfTransferForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
				return te.ledger.TransferAndCall(c, tt.to, common.Ether(1), nil)
			})
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Equal(t, common.Ether(8), te.ledger.BalanceOf(te.alice))
	te.assertSupplyInvariant(t)
}

func TestSetBridgeContract(t *testing.T) {
	te := newTestEnv(t)
	bridgeAddr := te.env.Deploy(&receiver{})

	_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.SetBridgeContract(c, bridgeAddr)
	})
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)

	for _, addr := range []ethcommon.Address{common.ZeroAddress, te.bob, te.ledger.Address()} {
		_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
			return te.ledger.SetBridgeContract(c, addr)
		})
		assert.ErrorIs(t, err, agreement.ErrInvalidBridgeAddress)
	}

	receipt, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.SetBridgeContract(c, bridgeAddr)
	})
	assert.NoError(t, err)
	assert.Len(t, receipt.Find(EventBridgeContractSet), 1)
	assert.Equal(t, bridgeAddr, te.ledger.BridgeContract())
}

func TestAllowance(t *testing.T) {
	te := newTestEnv(t)
	te.mint(t, te.alice, common.Ether(10))
	spender := common.RandEthAddress()

	_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Approve(c, spender, common.Ether(5))
	})
	assert.NoError(t, err)
	assert.Equal(t, common.Ether(5), te.ledger.Allowance(te.alice, spender))

	_, err = te.env.Transact(spender, func(c *chain.Call) error {
		return te.ledger.TransferFrom(c, te.alice, te.bob, common.Ether(6))
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientAllowance)

	_, err = te.env.Transact(spender, func(c *chain.Call) error {
		return te.ledger.TransferFrom(c, te.alice, te.bob, common.Ether(3))
	})
	assert.NoError(t, err)
	assert.Equal(t, common.Ether(2), te.ledger.Allowance(te.alice, spender))
	assert.Equal(t, common.Ether(3), te.ledger.BalanceOf(te.bob))

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.IncreaseAllowance(c, spender, common.Ether(1))
	})
	assert.NoError(t, err)
	assert.Equal(t, common.Ether(3), te.ledger.Allowance(te.alice, spender))

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.DecreaseAllowance(c, spender, common.Ether(100))
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, te.ledger.Allowance(te.alice, spender).Sign())

	// a failed transfer restores the allowance
	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.Approve(c, spender, common.Ether(50))
	})
	assert.NoError(t, err)
	_, err = te.env.Transact(spender, func(c *chain.Call) error {
		return te.ledger.TransferFrom(c, te.alice, te.bob, common.Ether(20))
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientBalance)
	assert.Equal(t, common.Ether(50), te.ledger.Allowance(te.alice, spender))
}

func TestClaimTokens(t *testing.T) {
	te := newTestEnv(t)

	other, err := New(te.env, &Config{Name: "Other", Symbol: "OT", Decimals: 18, Owner: te.owner})
	assert.NoError(t, err)
	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return other.Mint(c, te.ledger.Address(), common.Ether(4))
	})
	assert.NoError(t, err)

	_, err = te.env.Transact(te.alice, func(c *chain.Call) error {
		return te.ledger.ClaimTokens(c, other.Address(), te.bob)
	})
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)

	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.ClaimTokens(c, te.ledger.Address(), te.bob)
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidToken)

	notToken := te.env.Deploy(&plainContract{})
	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.ClaimTokens(c, notToken, te.bob)
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidToken)

	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.ClaimTokens(c, other.Address(), te.bob)
	})
	assert.NoError(t, err)
	assert.Equal(t, common.Ether(4), other.BalanceOf(te.bob))
	assert.Equal(t, 0, other.BalanceOf(te.ledger.Address()).Sign())
}

func TestTransferOwnership(t *testing.T) {
	te := newTestEnv(t)

	_, err := te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.TransferOwnership(c, common.ZeroAddress)
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidOwner)

	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.TransferOwnership(c, te.alice)
	})
	assert.NoError(t, err)
	assert.Equal(t, te.alice, te.ledger.Owner())

	_, err = te.env.Transact(te.owner, func(c *chain.Call) error {
		return te.ledger.Mint(c, te.bob, common.Ether(1))
	})
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)
}

func TestProbe(t *testing.T) {
	te := newTestEnv(t)
	withHook := te.env.Deploy(&receiver{})
	withoutHook := te.env.Deploy(&plainContract{})

	_, err := te.env.Transact(te.alice, func(c *chain.Call) error {
		assert.Equal(t, NotContract, Probe(c, te.bob))
		assert.Equal(t, ContractWithoutHook, Probe(c, withoutHook))
		assert.Equal(t, ContractWithHook, Probe(c, withHook))
		return nil
	})
	assert.NoError(t, err)
}
