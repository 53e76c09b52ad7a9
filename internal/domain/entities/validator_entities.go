package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Validator is a staked party authorized to attest to cross-chain transfers.
// Deactivated validators are kept for audit; rows are never deleted.
type Validator struct {
	Address      string          `json:"address" db:"address"`
	Stake        decimal.Decimal `json:"stake" db:"stake"`
	VotingPower  decimal.Decimal `json:"voting_power" db:"voting_power"`
	Reputation   int             `json:"reputation" db:"reputation"`
	Active       bool            `json:"active" db:"active"`
	JoinedAt     time.Time       `json:"joined_at" db:"joined_at"`
	LastActiveAt time.Time       `json:"last_active_at" db:"last_active_at"`
	SlashedTotal decimal.Decimal `json:"slashed_total" db:"slashed_total"`
}

// JoinValidatorRequest is the request to stake into the validator set
type JoinValidatorRequest struct {
	Address    string `json:"address" binding:"required"`
	Stake      string `json:"stake" binding:"required"`
	Reputation int    `json:"reputation" binding:"gte=0,lte=100"`
}
