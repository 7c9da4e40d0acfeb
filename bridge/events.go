package bridge

import (
	"math/big"

	"github.com/TEENet-io/tokenbridge/ratelimit"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	EventUserRequestForSignature          = "UserRequestForSignature"
	EventMessageSubmitted                 = "MessageSubmitted"
	EventSignedForMessage                 = "SignedForMessage"
	EventMessageExecuted                  = "MessageExecuted"
	EventMessageRejected                  = "MessageRejected"
	EventLimitsChanged                    = "LimitsChanged"
	EventGasPriceChanged                  = "GasPriceChanged"
	EventRequiredBlockConfirmationChanged = "RequiredBlockConfirmationChanged"
	EventOwnershipTransferred             = "OwnershipTransferred"
)

type UserRequestForSignatureEvent struct {
	MessageID ethcommon.Hash
	Sender    ethcommon.Address
	Recipient ethcommon.Address
	Amount    *big.Int
}

func (ev *UserRequestForSignatureEvent) EventName() string {
	return EventUserRequestForSignature
}

type MessageSubmittedEvent struct {
	MessageID   ethcommon.Hash
	Recipient   ethcommon.Address
	Amount      *big.Int
	SourceChain *big.Int
}

func (ev *MessageSubmittedEvent) EventName() string { return EventMessageSubmitted }

type SignedForMessageEvent struct {
	Validator   ethcommon.Address
	MessageID   ethcommon.Hash
	MessageHash ethcommon.Hash
	Signature   []byte
}

func (ev *SignedForMessageEvent) EventName() string { return EventSignedForMessage }

type MessageExecutedEvent struct {
	MessageID ethcommon.Hash
	Recipient ethcommon.Address
	Amount    *big.Int
}

func (ev *MessageExecutedEvent) EventName() string { return EventMessageExecuted }

type MessageRejectedEvent struct {
	MessageID ethcommon.Hash
	Reason    string
}

func (ev *MessageRejectedEvent) EventName() string { return EventMessageRejected }

type LimitsChangedEvent struct {
	Limits *ratelimit.Limits
}

func (ev *LimitsChangedEvent) EventName() string { return EventLimitsChanged }

type GasPriceChangedEvent struct {
	GasPrice *big.Int
}

func (ev *GasPriceChangedEvent) EventName() string { return EventGasPriceChanged }

type RequiredBlockConfirmationChangedEvent struct {
	RequiredBlockConfirmations uint64
}

func (ev *RequiredBlockConfirmationChangedEvent) EventName() string {
	return EventRequiredBlockConfirmationChanged
}

type OwnershipTransferredEvent struct {
	PreviousOwner ethcommon.Address
	NewOwner      ethcommon.Address
}

func (ev *OwnershipTransferredEvent) EventName() string { return EventOwnershipTransferred }
