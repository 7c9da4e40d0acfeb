package quorum

import ethcommon "github.com/ethereum/go-ethereum/common"

const (
	EventValidatorAdded            = "ValidatorAdded"
	EventValidatorRemoved          = "ValidatorRemoved"
	EventRequiredSignaturesChanged = "RequiredSignaturesChanged"
	EventOwnershipTransferred      = "OwnershipTransferred"
)

type ValidatorAddedEvent struct {
	Validator ethcommon.Address
}

func (ev *ValidatorAddedEvent) EventName() string { return EventValidatorAdded }

type ValidatorRemovedEvent struct {
	Validator ethcommon.Address
}

func (ev *ValidatorRemovedEvent) EventName() string { return EventValidatorRemoved }

type RequiredSignaturesChangedEvent struct {
	RequiredSignatures uint64
}

func (ev *RequiredSignaturesChangedEvent) EventName() string {
	return EventRequiredSignaturesChanged
}

type OwnershipTransferredEvent struct {
	PreviousOwner ethcommon.Address
	NewOwner      ethcommon.Address
}

func (ev *OwnershipTransferredEvent) EventName() string { return EventOwnershipTransferred }
