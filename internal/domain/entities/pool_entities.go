package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidityPool holds pre-funded balances on both sides of a lane for one
// asset. The bridge custodies the balances; providers hold a recorded claim
// redeemable pro rata.
type LiquidityPool struct {
	Asset          AssetRef        `json:"asset"`
	SourceBalance  decimal.Decimal `json:"source_balance" db:"source_balance"`
	DestBalance    decimal.Decimal `json:"dest_balance" db:"dest_balance"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity" db:"total_liquidity"`
	FeeBps         int64           `json:"fee_bps" db:"fee_bps"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Utilization is totalLiquidity / (sourceBalance + destBalance).
// Zero when the pool is empty.
func (p *LiquidityPool) Utilization() decimal.Decimal {
	denom := p.SourceBalance.Add(p.DestBalance)
	if denom.IsZero() {
		return decimal.Zero
	}
	return p.TotalLiquidity.Div(denom)
}

// PoolPosition is one provider's recorded contribution to a pool
type PoolPosition struct {
	Asset     AssetRef        `json:"asset"`
	Provider  string          `json:"provider" db:"provider"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PoolMetrics is the read-only view served to dashboards and the route advisor
type PoolMetrics struct {
	Asset          AssetRef        `json:"asset"`
	SourceBalance  decimal.Decimal `json:"source_balance"`
	DestBalance    decimal.Decimal `json:"dest_balance"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
	Utilization    decimal.Decimal `json:"utilization"`
	FeeBps         int64           `json:"fee_bps"`
	ProviderCount  int             `json:"provider_count"`
}

// AddLiquidityRequest contributes funds to both sides of a pool
type AddLiquidityRequest struct {
	Provider     string   `json:"provider" binding:"required"`
	Asset        AssetRef `json:"asset" binding:"required"`
	SourceAmount string   `json:"source_amount" binding:"required"`
	DestAmount   string   `json:"dest_amount" binding:"required"`
}

// RemoveLiquidityRequest redeems part of a provider's recorded share
type RemoveLiquidityRequest struct {
	Provider string   `json:"provider" binding:"required"`
	Asset    AssetRef `json:"asset" binding:"required"`
	Amount   string   `json:"amount" binding:"required"`
}

// InstantBridgeRequest settles immediately from pooled liquidity
type InstantBridgeRequest struct {
	Sender      string   `json:"sender" binding:"required" validate:"required,min=1,max=128"`
	Recipient   string   `json:"recipient" binding:"required" validate:"required,min=1,max=128"`
	Asset       AssetRef `json:"asset" binding:"required"`
	Amount      string   `json:"amount" binding:"required" validate:"required"`
	DestChainID uint64   `json:"dest_chain_id" binding:"required" validate:"required,gt=0"`
}

// InstantBridgeResult reports the settled amounts
type InstantBridgeResult struct {
	Asset     AssetRef        `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	NetAmount decimal.Decimal `json:"net_amount"`
	Recipient string          `json:"recipient"`
	SettledAt time.Time       `json:"settled_at"`
}
