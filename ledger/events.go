package ledger

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	EventTransfer                   = "Transfer"
	EventApproval                   = "Approval"
	EventMint                       = "Mint"
	EventBurn                       = "Burn"
	EventContractFallbackCallFailed = "ContractFallbackCallFailed"
	EventBridgeContractSet          = "BridgeContractSet"
	EventOwnershipTransferred       = "OwnershipTransferred"
)

type TransferEvent struct {
	From  ethcommon.Address
	To    ethcommon.Address
	Value *big.Int
}

func (ev *TransferEvent) EventName() string { return EventTransfer }

type ApprovalEvent struct {
	Owner   ethcommon.Address
	Spender ethcommon.Address
	Value   *big.Int
}

func (ev *ApprovalEvent) EventName() string { return EventApproval }

type MintEvent struct {
	To     ethcommon.Address
	Amount *big.Int
}

func (ev *MintEvent) EventName() string { return EventMint }

type BurnEvent struct {
	Burner ethcommon.Address
	Amount *big.Int
}

func (ev *BurnEvent) EventName() string { return EventBurn }

// ContractFallbackCallFailedEvent is emitted when a plain transfer reached
// a contract whose hook was missing or failed. The transfer itself stands.
type ContractFallbackCallFailedEvent struct {
	From  ethcommon.Address
	To    ethcommon.Address
	Value *big.Int
}

func (ev *ContractFallbackCallFailedEvent) EventName() string {
	return EventContractFallbackCallFailed
}

type BridgeContractSetEvent struct {
	Address ethcommon.Address
}

func (ev *BridgeContractSetEvent) EventName() string { return EventBridgeContractSet }

type OwnershipTransferredEvent struct {
	PreviousOwner ethcommon.Address
	NewOwner      ethcommon.Address
}

func (ev *OwnershipTransferredEvent) EventName() string { return EventOwnershipTransferred }
