package errors

import "errors"

// Bridge protocol sentinel errors. Services wrap these into DomainError
// values so handlers can map them to HTTP statuses with errors.Is.
var (
	// ErrChainNotSupported indicates the destination chain is not registered or inactive
	ErrChainNotSupported = errors.New("chain not supported")

	// ErrDailyLimitExceeded indicates the transfer would push a route past its daily cap
	ErrDailyLimitExceeded = errors.New("daily volume limit exceeded")

	// ErrAlreadyExecuted indicates the transaction was already settled
	ErrAlreadyExecuted = errors.New("transaction already executed")

	// ErrTransactionExpired indicates the deadline passed before execution
	ErrTransactionExpired = errors.New("transaction expired")

	// ErrTransactionCancelled indicates the transaction was voided by arbitration
	ErrTransactionCancelled = errors.New("transaction cancelled")

	// ErrChallengeActive indicates an unresolved challenge blocks execution
	ErrChallengeActive = errors.New("active challenge blocks execution")

	// ErrChallengeResolved indicates the challenge verdict was already recorded
	ErrChallengeResolved = errors.New("challenge already resolved")

	// ErrQuorumNotReached indicates attestations cover insufficient voting power
	ErrQuorumNotReached = errors.New("signature quorum not reached")

	// ErrInvalidSignature indicates a signature failed verification
	ErrInvalidSignature = errors.New("invalid attestation signature")

	// ErrInsufficientStake indicates a stake below the protocol minimum
	ErrInsufficientStake = errors.New("stake below minimum")

	// ErrValidatorNotActive indicates the address is not an active validator
	ErrValidatorNotActive = errors.New("validator not active")

	// ErrInsufficientLiquidity indicates the pool cannot cover an instant settlement
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")

	// ErrInsufficientShare indicates a provider withdrawal exceeds their recorded balance
	ErrInsufficientShare = errors.New("withdrawal exceeds provider share")

	// ErrBridgePaused indicates value-moving operations are suspended
	ErrBridgePaused = errors.New("bridge is paused")

	// ErrBondTooLow indicates a challenge bond below the protocol minimum
	ErrBondTooLow = errors.New("challenge bond below minimum")
)

// ChainNotSupportedError creates a chain not supported error
func ChainNotSupportedError(chainID uint64) *DomainError {
	return &DomainError{
		Err:     ErrChainNotSupported,
		Code:    "CHAIN_NOT_SUPPORTED",
		Message: "destination chain is not supported",
		Details: map[string]interface{}{
			"chain_id": chainID,
		},
	}
}

// DailyLimitExceededError creates a daily limit error with the remaining headroom
func DailyLimitExceededError(chainID uint64, remaining string) *DomainError {
	return &DomainError{
		Err:     ErrDailyLimitExceeded,
		Code:    "DAILY_LIMIT_EXCEEDED",
		Message: "transfer exceeds the route's remaining daily capacity",
		Details: map[string]interface{}{
			"chain_id":  chainID,
			"remaining": remaining,
		},
	}
}

// QuorumNotReachedError creates a quorum error with the observed power
func QuorumNotReachedError(collected, required string) *DomainError {
	return &DomainError{
		Err:     ErrQuorumNotReached,
		Code:    "QUORUM_NOT_REACHED",
		Message: "attested voting power below execution threshold",
		Details: map[string]interface{}{
			"collected_power": collected,
			"required_power":  required,
		},
	}
}

// BridgePausedError creates a paused error
func BridgePausedError() *DomainError {
	return &DomainError{
		Err:       ErrBridgePaused,
		Code:      "BRIDGE_PAUSED",
		Message:   "bridge operations are temporarily suspended",
		Retryable: true,
	}
}
