// Global agreement on types

package agreement

// MessageStatus is the life cycle of a cross-chain message on its
// destination endpoint. Transitions only move forward:
// unseen -> pending -> executed | rejected.
type MessageStatus string

const (
	MessageStatusUnseen   MessageStatus = "unseen"
	MessageStatusPending  MessageStatus = "pending"  // collecting validator signatures
	MessageStatusExecuted MessageStatus = "executed" // funds minted / unlocked
	MessageStatusRejected MessageStatus = "rejected" // quorum reached but rate limited
)

func (s MessageStatus) IsTerminal() bool {
	return s == MessageStatusExecuted || s == MessageStatusRejected
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	switch s {
	case MessageStatusUnseen:
		return next == MessageStatusPending
	case MessageStatusPending:
		return next == MessageStatusExecuted || next == MessageStatusRejected
	default:
		return false
	}
}

// Side names one of the two bridge endpoints.
type Side string

const (
	SideHome    Side = "home"    // bridgeable token is minted / burned here
	SideForeign Side = "foreign" // original token is locked / unlocked here
)

func (s Side) IsValid() bool {
	return s == SideHome || s == SideForeign
}

// Counterpart is the side that executes messages requested on s.
func (s Side) Counterpart() Side {
	if s == SideHome {
		return SideForeign
	}
	return SideHome
}
