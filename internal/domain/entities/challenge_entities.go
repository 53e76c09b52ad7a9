package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Challenge disputes a pending bridge transaction. It is resolved exactly
// once by governance and immutable afterward.
type Challenge struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Challenger    string          `json:"challenger" db:"challenger"`
	Bond          decimal.Decimal `json:"bond" db:"bond"`
	Evidence      []byte          `json:"evidence" db:"evidence"`
	SubmittedAt   time.Time       `json:"submitted_at" db:"submitted_at"`
	Resolved      bool            `json:"resolved" db:"resolved"`
	Valid         bool            `json:"valid" db:"valid"`
	SlashedAmount decimal.Decimal `json:"slashed_amount" db:"slashed_amount"`
	RewardPaid    decimal.Decimal `json:"reward_paid" db:"reward_paid"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// OpenChallengeRequest stakes a bond against a not-yet-executed transaction
type OpenChallengeRequest struct {
	Challenger string `json:"challenger" binding:"required"`
	Bond       string `json:"bond" binding:"required"`
	Evidence   string `json:"evidence" binding:"required"` // base64 fraud proof payload
}

// ResolveChallengeRequest is the governance verdict for a challenge
type ResolveChallengeRequest struct {
	Valid             bool     `json:"valid"`
	ValidatorsToSlash []string `json:"validators_to_slash"`
	SlashAmounts      []string `json:"slash_amounts"`
}
