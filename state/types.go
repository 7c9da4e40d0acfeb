package state

import (
	"math/big"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Request is an outbound deposit seen on Chain.
type Request struct {
	ID          ethcommon.Hash
	Chain       agreement.Side
	SourceChain *big.Int
	TxHash      ethcommon.Hash
	LogIndex    uint
	Sender      ethcommon.Address
	Recipient   ethcommon.Address
	Amount      *big.Int
}

// Message is an inbound message on its destination Chain.
type Message struct {
	ID           ethcommon.Hash
	Chain        agreement.Side
	Recipient    ethcommon.Address
	Amount       *big.Int
	SourceChain  *big.Int
	Status       agreement.MessageStatus
	Reason       string
	SubmitTxHash ethcommon.Hash
	FinalTxHash  ethcommon.Hash // zero while pending
}

type Signature struct {
	ID        ethcommon.Hash
	Validator ethcommon.Address
	Chain     agreement.Side
	Signature []byte
	TxHash    ethcommon.Hash
}

type Transfer struct {
	Chain    agreement.Side
	Seq      uint64
	TxHash   ethcommon.Hash
	LogIndex uint
	From     ethcommon.Address
	To       ethcommon.Address
	Amount   *big.Int
}

type JSONRequest struct {
	ID          string `json:"id"`
	Chain       string `json:"chain"`
	SourceChain string `json:"source_chain"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint   `json:"log_index"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
}

type JSONMessage struct {
	ID           string `json:"id"`
	Chain        string `json:"chain"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	SourceChain  string `json:"source_chain"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	SubmitTxHash string `json:"submit_tx_hash"`
	FinalTxHash  string `json:"final_tx_hash,omitempty"`
}

type JSONSignature struct {
	ID        string `json:"id"`
	Validator string `json:"validator"`
	Chain     string `json:"chain"`
	Signature string `json:"signature"`
	TxHash    string `json:"tx_hash"`
}

func (r *Request) ToJSON() *JSONRequest {
	return &JSONRequest{
		ID:          r.ID.String(),
		Chain:       string(r.Chain),
		SourceChain: r.SourceChain.String(),
		TxHash:      r.TxHash.String(),
		LogIndex:    r.LogIndex,
		Sender:      r.Sender.String(),
		Recipient:   r.Recipient.String(),
		Amount:      r.Amount.String(),
	}
}

func (m *Message) ToJSON() *JSONMessage {
	j := &JSONMessage{
		ID:           m.ID.String(),
		Chain:        string(m.Chain),
		Recipient:    m.Recipient.String(),
		Amount:       m.Amount.String(),
		SourceChain:  m.SourceChain.String(),
		Status:       string(m.Status),
		Reason:       m.Reason,
		SubmitTxHash: m.SubmitTxHash.String(),
	}
	if m.FinalTxHash != (ethcommon.Hash{}) {
		j.FinalTxHash = m.FinalTxHash.String()
	}
	return j
}

func (s *Signature) ToJSON() *JSONSignature {
	return &JSONSignature{
		ID:        s.ID.String(),
		Validator: s.Validator.String(),
		Chain:     string(s.Chain),
		Signature: common.Prepend0xPrefix(common.ByteSliceToPureHexStr(s.Signature)),
		TxHash:    s.TxHash.String(),
	}
}
