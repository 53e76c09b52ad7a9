package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// BridgePath names the settlement path a quote refers to
type BridgePath string

const (
	BridgePathStandard BridgePath = "standard"
	BridgePathInstant  BridgePath = "instant"
)

// RouteQuote is a non-binding estimate for one settlement path
type RouteQuote struct {
	Path          BridgePath      `json:"path"`
	Available     bool            `json:"available"`
	Reason        string          `json:"reason,omitempty"`
	EstimatedTime time.Duration   `json:"estimated_time_ns"`
	Fee           decimal.Decimal `json:"fee"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// RouteAdvice pairs both path quotes with a recommendation
type RouteAdvice struct {
	Asset       AssetRef        `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	DestChainID uint64          `json:"dest_chain_id"`
	Standard    RouteQuote      `json:"standard"`
	Instant     RouteQuote      `json:"instant"`
	Recommended BridgePath      `json:"recommended"`
	QuotedAt    time.Time       `json:"quoted_at"`
}

// RouteQuoteRequest asks the advisor to compare settlement paths
type RouteQuoteRequest struct {
	Asset       AssetRef `json:"asset" binding:"required"`
	Amount      string   `json:"amount" binding:"required"`
	DestChainID uint64   `json:"dest_chain_id" binding:"required"`
	Urgent      bool     `json:"urgent"`
}
