// Global agreement on errors.
// Every component of the bridge core fails with one of these, usually
// wrapped with some context. Compare with errors.Is.

package agreement

import "errors"

var (
	// caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized")

	// malformed input
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrInvalidBridgeAddress = errors.New("invalid bridge address")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidOwner         = errors.New("invalid owner")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSignature     = errors.New("invalid signature")

	// ledger guards
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrAmountOverflow        = errors.New("amount overflows uint256")
	ErrMintingClosed         = errors.New("minting closed")
	ErrHookRequired          = errors.New("receiver hook required")
	ErrSelfTransferForbidden = errors.New("transfer to token itself or zero address forbidden")

	// rate limits
	ErrBelowMinimum       = errors.New("amount below minimum per tx")
	ErrAboveMaxPerTx      = errors.New("amount above maximum per tx")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")

	// idempotency guards
	ErrAlreadyExecuted    = errors.New("message already executed")
	ErrAlreadyInitialized = errors.New("already initialized")

	// quorum configuration
	ErrThresholdViolation = errors.New("validator count would drop below required signatures")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrInvalidThreshold   = errors.New("invalid threshold")
	ErrInvalidValidator   = errors.New("invalid validator address")
	ErrUnknownValidator   = errors.New("unknown validator")
)

// IsRateLimitError tells whether err is one of the rate limiter violations.
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrAboveMaxPerTx) ||
		errors.Is(err, ErrDailyLimitExceeded)
}
