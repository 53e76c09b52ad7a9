package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainRoute represents one supported destination network. Routes are
// created by governance and never deleted, only deactivated.
type ChainRoute struct {
	ChainID               uint64          `json:"chain_id" db:"chain_id"`
	Name                  string          `json:"name" db:"name"`
	BridgeEndpoint        string          `json:"bridge_endpoint" db:"bridge_endpoint"`
	BlockTimeSeconds      int64           `json:"block_time_seconds" db:"block_time_seconds"`
	RequiredConfirmations int             `json:"required_confirmations" db:"required_confirmations"`
	Active                bool            `json:"active" db:"active"`
	DailyLimit            decimal.Decimal `json:"daily_limit" db:"daily_limit"`
	DailyVolume           decimal.Decimal `json:"daily_volume" db:"daily_volume"`
	VolumeResetAt         time.Time       `json:"volume_reset_at" db:"volume_reset_at"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// BlockTime returns the expected block interval of the route
func (r *ChainRoute) BlockTime() time.Duration {
	return time.Duration(r.BlockTimeSeconds) * time.Second
}

// EstimatedSettlementTime is the standard-path latency estimate:
// block time times the confirmation depth the route requires.
func (r *ChainRoute) EstimatedSettlementTime() time.Duration {
	return r.BlockTime() * time.Duration(r.RequiredConfirmations)
}

// RegisterChainRequest is the governance request to add a destination network
type RegisterChainRequest struct {
	ChainID               uint64 `json:"chain_id" binding:"required"`
	Name                  string `json:"name" binding:"required"`
	BridgeEndpoint        string `json:"bridge_endpoint" binding:"required"`
	BlockTimeSeconds      int64  `json:"block_time_seconds" binding:"required,gt=0"`
	RequiredConfirmations int    `json:"required_confirmations" binding:"required,gt=0"`
	DailyLimit            string `json:"daily_limit" binding:"required"`
}
