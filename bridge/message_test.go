package bridge

import (
	"math/big"
	"testing"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/signers"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageID(t *testing.T) {
	txHash := ethcommon.Hash(common.RandBytes32())

	id := MessageID(big.NewInt(1), txHash, 2)
	assert.Equal(t, id, MessageID(big.NewInt(1), txHash, 2))
	assert.NotEqual(t, id, MessageID(big.NewInt(1), txHash, 3))
	assert.NotEqual(t, id, MessageID(big.NewInt(2), txHash, 2))
}

func TestSigningHash(t *testing.T) {
	msg := inboundMessage(common.Ether(1), common.RandEthAddress())
	endpoint := common.RandEthAddress()

	h := msg.SigningHash(endpoint)
	assert.Equal(t, h, msg.Clone().SigningHash(endpoint))
	assert.NotEqual(t, h, msg.SigningHash(common.RandEthAddress()))

	other := msg.Clone()
	other.Amount = common.Ether(2)
	assert.NotEqual(t, h, other.SigningHash(endpoint))
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, inboundMessage(common.Ether(1), common.RandEthAddress()).Validate())

	var nilMsg *Message
	assert.ErrorIs(t, nilMsg.Validate(), agreement.ErrInvalidMessage)

	tests := []struct {
		name   string
		modify func(m *Message)
		err    error
	}{
		{"empty id", func(m *Message) { m.ID = ethcommon.Hash{} }, agreement.ErrInvalidMessage},
		{"zero recipient", func(m *Message) { m.Recipient = ethcommon.Address{} }, agreement.ErrInvalidRecipient},
		{"zero amount", func(m *Message) { m.Amount = big.NewInt(0) }, agreement.ErrInvalidMessage},
		{"nil amount", func(m *Message) { m.Amount = nil }, agreement.ErrInvalidMessage},
		{"amount too large", func(m *Message) { m.Amount = new(big.Int).Lsh(big.NewInt(1), 256) }, agreement.ErrInvalidMessage},
		{"no source chain", func(m *Message) { m.SourceChain = nil }, agreement.ErrInvalidMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := inboundMessage(common.Ether(1), common.RandEthAddress())
			tt.modify(m)
			assert.ErrorIs(t, m.Validate(), tt.err)
		})
	}
}

func TestAttest(t *testing.T) {
	s, err := signers.NewRandomLocalSigner()
	require.NoError(t, err)
	msg := inboundMessage(common.Ether(1), common.RandEthAddress())
	endpoint := common.RandEthAddress()

	att, err := Attest(s, msg, endpoint)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), att.Validator)

	hash := msg.SigningHash(endpoint)
	addr, err := signers.Recover(hash.Bytes(), att.Signature)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)

	_, err = Attest(s, &Message{}, endpoint)
	assert.ErrorIs(t, err, agreement.ErrInvalidMessage)
}
