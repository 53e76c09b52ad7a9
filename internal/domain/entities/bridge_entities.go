package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetKind selects the transfer adapter used to move an asset
type AssetKind string

const (
	AssetKindNative  AssetKind = "native"
	AssetKindWrapped AssetKind = "wrapped"
)

// AssetRef identifies a bridgeable asset and how it is custodied
type AssetRef struct {
	Symbol string    `json:"symbol" db:"asset_symbol"`
	Kind   AssetKind `json:"kind" db:"asset_kind"`
}

// TxStatus is the explicit state of a bridge transaction. Expired is
// derived from the deadline, never stored.
type TxStatus string

const (
	TxStatusInitiated  TxStatus = "initiated"
	TxStatusChallenged TxStatus = "challenged"
	TxStatusExecuted   TxStatus = "executed"
	TxStatusCancelled  TxStatus = "cancelled"
	TxStatusExpired    TxStatus = "expired"
)

// BridgeTransaction is the unit of transfer moving value between chains.
// The ID is a deterministic digest over the transaction-defining fields plus
// the sender's nonce; records are kept forever for audit.
type BridgeTransaction struct {
	ID                string          `json:"id" db:"id"`
	Sender            string          `json:"sender" db:"sender"`
	Recipient         string          `json:"recipient" db:"recipient"`
	Asset             AssetRef        `json:"asset"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	SourceChainID     uint64          `json:"source_chain_id" db:"source_chain_id"`
	DestChainID       uint64          `json:"dest_chain_id" db:"dest_chain_id"`
	Nonce             uint64          `json:"nonce" db:"nonce"`
	InitiatedAt       time.Time       `json:"initiated_at" db:"initiated_at"`
	Deadline          time.Time       `json:"deadline" db:"deadline"`
	Executed          bool            `json:"executed" db:"executed"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty" db:"executed_at"`
	Challenged        bool            `json:"challenged" db:"challenged"`
	ChallengeDeadline *time.Time      `json:"challenge_deadline,omitempty" db:"challenge_deadline"`
	Cancelled         bool            `json:"cancelled" db:"cancelled"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Status derives the logical state at the given instant
func (t *BridgeTransaction) Status(now time.Time) TxStatus {
	switch {
	case t.Executed:
		return TxStatusExecuted
	case t.Cancelled:
		return TxStatusCancelled
	case t.Challenged && t.ChallengeDeadline != nil && now.Before(*t.ChallengeDeadline):
		return TxStatusChallenged
	case now.After(t.Deadline):
		return TxStatusExpired
	default:
		return TxStatusInitiated
	}
}

// UnderActiveChallenge reports whether an unresolved challenge still blocks
// execution at the given instant.
func (t *BridgeTransaction) UnderActiveChallenge(now time.Time) bool {
	return t.Challenged && t.ChallengeDeadline != nil && now.Before(*t.ChallengeDeadline)
}

// InitiateRequest is the caller request to start a standard-path transfer
type InitiateRequest struct {
	Sender      string   `json:"sender" binding:"required" validate:"required,min=1,max=128"`
	Recipient   string   `json:"recipient" binding:"required" validate:"required,min=1,max=128"`
	Asset       AssetRef `json:"asset" binding:"required"`
	Amount      string   `json:"amount" binding:"required" validate:"required"`
	DestChainID uint64   `json:"dest_chain_id" binding:"required" validate:"required,gt=0"`
	Deadline    string   `json:"deadline" binding:"required" validate:"required"` // RFC3339
}

// ExecuteRequest carries the relayer's signature bundle for release
type ExecuteRequest struct {
	Signatures []string `json:"signatures" binding:"required"`
	Signers    []string `json:"signers" binding:"required"`
}
