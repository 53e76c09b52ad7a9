package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslane/bridge_service/internal/domain/entities"
)

// ChainRouteRepository defines the interface for chain route persistence
type ChainRouteRepository interface {
	Create(ctx context.Context, route *entities.ChainRoute) error
	GetByChainID(ctx context.Context, chainID uint64) (*entities.ChainRoute, error)
	List(ctx context.Context, activeOnly bool) ([]*entities.ChainRoute, error)
	Update(ctx context.Context, route *entities.ChainRoute) error
	AddDailyVolume(ctx context.Context, chainID uint64, amount decimal.Decimal, resetAt time.Time) error
}

// ValidatorRepository defines the interface for validator set persistence
type ValidatorRepository interface {
	Create(ctx context.Context, validator *entities.Validator) error
	GetByAddress(ctx context.Context, address string) (*entities.Validator, error)
	ListActive(ctx context.Context) ([]*entities.Validator, error)
	Update(ctx context.Context, validator *entities.Validator) error
}

// BridgeTransactionRepository defines the interface for the transaction ledger
type BridgeTransactionRepository interface {
	Create(ctx context.Context, tx *entities.BridgeTransaction) error
	GetByID(ctx context.Context, id string) (*entities.BridgeTransaction, error)
	Update(ctx context.Context, tx *entities.BridgeTransaction) error
	ListBySender(ctx context.Context, sender string, limit, offset int) ([]*entities.BridgeTransaction, error)
	ListPending(ctx context.Context, before time.Time) ([]*entities.BridgeTransaction, error)
	NextNonce(ctx context.Context, sender string) (uint64, error)
	TotalVolume(ctx context.Context) (decimal.Decimal, error)
}

// ChallengeRepository defines the interface for challenge persistence
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *entities.Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Challenge, error)
	GetOpenByTransactionID(ctx context.Context, txID string) (*entities.Challenge, error)
	Update(ctx context.Context, challenge *entities.Challenge) error
	List(ctx context.Context, resolved *bool, limit, offset int) ([]*entities.Challenge, error)
	RewardPoolTotal(ctx context.Context) (decimal.Decimal, error)
}

// LiquidityPoolRepository defines the interface for pool and position persistence
type LiquidityPoolRepository interface {
	CreatePool(ctx context.Context, pool *entities.LiquidityPool) error
	GetPool(ctx context.Context, asset entities.AssetRef) (*entities.LiquidityPool, error)
	ListPools(ctx context.Context) ([]*entities.LiquidityPool, error)
	UpdatePool(ctx context.Context, pool *entities.LiquidityPool) error
	UpsertPosition(ctx context.Context, position *entities.PoolPosition) error
	GetPosition(ctx context.Context, asset entities.AssetRef, provider string) (*entities.PoolPosition, error)
	CountProviders(ctx context.Context, asset entities.AssetRef) (int, error)
}

// BridgeEventFilter narrows event history queries
type BridgeEventFilter struct {
	Type      *entities.EventType
	Actor     *string
	Subject   *string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// BridgeEventRepository defines the interface for the append-only event log
type BridgeEventRepository interface {
	Create(ctx context.Context, event *entities.BridgeEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.BridgeEvent, error)
	List(ctx context.Context, filter BridgeEventFilter) ([]*entities.BridgeEvent, error)
	Count(ctx context.Context, filter BridgeEventFilter) (int64, error)
}
