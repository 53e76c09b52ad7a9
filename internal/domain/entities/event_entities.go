package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies protocol events for filtering
type EventType string

const (
	EventTypeChainRegistered   EventType = "chain_registered"
	EventTypeChainUpdated      EventType = "chain_updated"
	EventTypeValidatorJoined   EventType = "validator_joined"
	EventTypeValidatorSlashed  EventType = "validator_slashed"
	EventTypeTxInitiated       EventType = "tx_initiated"
	EventTypeTxExecuted        EventType = "tx_executed"
	EventTypeTxCancelled       EventType = "tx_cancelled"
	EventTypeTxExpired         EventType = "tx_expired"
	EventTypeSettlementStuck   EventType = "settlement_stuck"
	EventTypeChallengeOpened   EventType = "challenge_opened"
	EventTypeChallengeResolved EventType = "challenge_resolved"
	EventTypeLiquidityAdded    EventType = "liquidity_added"
	EventTypeLiquidityRemoved  EventType = "liquidity_removed"
	EventTypeInstantBridge     EventType = "instant_bridge"
	EventTypeBridgePaused      EventType = "bridge_paused"
	EventTypeBridgeResumed     EventType = "bridge_resumed"
)

// BridgeEvent is an append-only record of a protocol state change.
// Events are observable history; no control flow reads them back.
type BridgeEvent struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	Type      EventType              `json:"type" db:"event_type"`
	Actor     string                 `json:"actor" db:"actor"`
	Subject   string                 `json:"subject" db:"subject"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
