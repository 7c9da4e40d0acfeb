package bridge

import (
	"fmt"
	"math/big"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Message is one cross-chain value movement. ID is derived from the event
// that requested it on the source chain.
type Message struct {
	ID          ethcommon.Hash
	Recipient   ethcommon.Address
	Amount      *big.Int
	SourceChain *big.Int
}

// MessageID = keccak256(sourceChainId || txHash || logIndex)
func MessageID(sourceChain *big.Int, txHash ethcommon.Hash, logIndex uint) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(sourceChain, txHash, uint64(logIndex)))
}

// SigningHash is what validators sign. Binding the destination endpoint
// keeps an attestation from being replayed against another deployment.
func (m *Message) SigningHash(endpoint ethcommon.Address) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(
		m.ID,
		m.Recipient,
		m.Amount,
		m.SourceChain,
		endpoint,
	))
}

func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", agreement.ErrInvalidMessage)
	}
	if m.ID == (ethcommon.Hash{}) {
		return fmt.Errorf("%w: empty id", agreement.ErrInvalidMessage)
	}
	if common.IsZeroAddress(m.Recipient) {
		return agreement.ErrInvalidRecipient
	}
	if m.Amount == nil || m.Amount.Sign() <= 0 || m.Amount.BitLen() > 256 {
		return fmt.Errorf("%w: invalid amount", agreement.ErrInvalidMessage)
	}
	if m.SourceChain == nil || m.SourceChain.Sign() <= 0 {
		return fmt.Errorf("%w: invalid source chain", agreement.ErrInvalidMessage)
	}
	return nil
}

func (m *Message) Equal(other *Message) bool {
	return m.ID == other.ID &&
		m.Recipient == other.Recipient &&
		m.Amount.Cmp(other.Amount) == 0 &&
		m.SourceChain.Cmp(other.SourceChain) == 0
}

func (m *Message) Clone() *Message {
	return &Message{
		ID:          m.ID,
		Recipient:   m.Recipient,
		Amount:      common.BigIntClone(m.Amount),
		SourceChain: common.BigIntClone(m.SourceChain),
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{ID: %s, Recipient: %s, Amount: %s, SourceChain: %s}",
		m.ID.String(), m.Recipient.String(), m.Amount, m.SourceChain)
}

// Record is the destination side view of a message.
type Record struct {
	Message *Message
	Status  agreement.MessageStatus
	Reason  string
}

// Request is an outbound deposit recorded on the source side.
type Request struct {
	ID          ethcommon.Hash
	Sender      ethcommon.Address
	Recipient   ethcommon.Address
	Amount      *big.Int
	SourceChain *big.Int
	TxHash      ethcommon.Hash
	LogIndex    uint
}

// Message is what validators attest to on the counterpart endpoint.
func (r *Request) Message() *Message {
	return &Message{
		ID:          r.ID,
		Recipient:   r.Recipient,
		Amount:      common.BigIntClone(r.Amount),
		SourceChain: common.BigIntClone(r.SourceChain),
	}
}
