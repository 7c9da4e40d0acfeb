package state

import (
	"fmt"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Hashes and addresses are stored as hex without the 0x prefix, amounts
// and chain ids as decimal strings.

type sqlRequest struct {
	ID          string
	Chain       string
	SourceChain string
	TxHash      string
	LogIndex    uint
	Sender      string
	Recipient   string
	Amount      string
}

func (s *sqlRequest) encode(r *Request) *sqlRequest {
	s.ID = r.ID.String()[2:]
	s.Chain = string(r.Chain)
	s.SourceChain = r.SourceChain.String()
	s.TxHash = r.TxHash.String()[2:]
	s.LogIndex = r.LogIndex
	s.Sender = common.ByteSliceToPureHexStr(r.Sender.Bytes())
	s.Recipient = common.ByteSliceToPureHexStr(r.Recipient.Bytes())
	s.Amount = r.Amount.String()
	return s
}

func (s *sqlRequest) decode() (*Request, error) {
	sourceChain, err := common.DecStrToBigInt(s.SourceChain)
	if err != nil {
		return nil, fmt.Errorf("invalid source chain: %w", err)
	}
	amount, err := common.DecStrToBigInt(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	return &Request{
		ID:          common.HexStrToBytes32("0x" + s.ID),
		Chain:       agreement.Side(s.Chain),
		SourceChain: sourceChain,
		TxHash:      common.HexStrToBytes32("0x" + s.TxHash),
		LogIndex:    s.LogIndex,
		Sender:      ethcommon.HexToAddress(s.Sender),
		Recipient:   ethcommon.HexToAddress(s.Recipient),
		Amount:      amount,
	}, nil
}

type sqlMessage struct {
	ID           string
	Chain        string
	Recipient    string
	Amount       string
	SourceChain  string
	Status       string
	Reason       string
	SubmitTxHash string
	FinalTxHash  string // empty while pending
}

func (s *sqlMessage) encode(m *Message) *sqlMessage {
	s.ID = m.ID.String()[2:]
	s.Chain = string(m.Chain)
	s.Recipient = common.ByteSliceToPureHexStr(m.Recipient.Bytes())
	s.Amount = m.Amount.String()
	s.SourceChain = m.SourceChain.String()
	s.Status = string(m.Status)
	s.Reason = m.Reason
	s.SubmitTxHash = m.SubmitTxHash.String()[2:]
	if m.FinalTxHash != (ethcommon.Hash{}) {
		s.FinalTxHash = m.FinalTxHash.String()[2:]
	}
	return s
}

func (s *sqlMessage) decode() (*Message, error) {
	amount, err := common.DecStrToBigInt(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	sourceChain, err := common.DecStrToBigInt(s.SourceChain)
	if err != nil {
		return nil, fmt.Errorf("invalid source chain: %w", err)
	}

	m := &Message{
		ID:           common.HexStrToBytes32("0x" + s.ID),
		Chain:        agreement.Side(s.Chain),
		Recipient:    ethcommon.HexToAddress(s.Recipient),
		Amount:       amount,
		SourceChain:  sourceChain,
		Status:       agreement.MessageStatus(s.Status),
		Reason:       s.Reason,
		SubmitTxHash: common.HexStrToBytes32("0x" + s.SubmitTxHash),
	}
	if s.FinalTxHash != "" {
		m.FinalTxHash = common.HexStrToBytes32("0x" + s.FinalTxHash)
	}
	return m, nil
}
