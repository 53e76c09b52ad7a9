package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/chainregistry"
	"github.com/crosslane/bridge_service/internal/domain/services/challenge"
	"github.com/crosslane/bridge_service/internal/domain/services/control"
	"github.com/crosslane/bridge_service/internal/domain/services/events"
	"github.com/crosslane/bridge_service/internal/domain/services/ledger"
	"github.com/crosslane/bridge_service/internal/domain/services/liquidity"
	"github.com/crosslane/bridge_service/internal/domain/services/quorum"
	"github.com/crosslane/bridge_service/internal/domain/services/routeadvisor"
	"github.com/crosslane/bridge_service/internal/domain/services/validators"
	"github.com/crosslane/bridge_service/internal/infrastructure/adapters/custody"
	"github.com/crosslane/bridge_service/internal/infrastructure/cache"
	"github.com/crosslane/bridge_service/internal/infrastructure/config"
	"github.com/crosslane/bridge_service/internal/infrastructure/repositories"
	"github.com/crosslane/bridge_service/pkg/logger"
)

// Container wires repositories, adapters and domain services together
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Repositories
	ChainRouteRepo    *repositories.ChainRouteRepository
	ValidatorRepo     *repositories.ValidatorRepository
	TransactionRepo   *repositories.BridgeTransactionRepository
	ChallengeRepo     *repositories.ChallengeRepository
	LiquidityPoolRepo *repositories.LiquidityPoolRepository
	EventRepo         *repositories.BridgeEventRepository

	// Infrastructure
	RedisClient   cache.RedisClient
	BridgeCache   *cache.BridgeCache
	CustodyClient *custody.Client
	AssetGateway  *custody.Gateway

	// Domain Services
	EventService     *events.Service
	ControlService   *control.Service
	ChainRegistry    *chainregistry.Service
	ValidatorService *validators.Service
	QuorumService    *quorum.Service
	LedgerService    *ledger.Service
	ChallengeService *challenge.Service
	LiquidityService *liquidity.Service
	RouteAdvisor     *routeadvisor.Service
}

// NewContainer creates the dependency injection container
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient cache.RedisClient, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()

	minimumStake, err := decimal.NewFromString(cfg.Protocol.MinimumStake)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum stake %q: %w", cfg.Protocol.MinimumStake, err)
	}
	minimumBond, err := decimal.NewFromString(cfg.Protocol.MinimumBond)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum bond %q: %w", cfg.Protocol.MinimumBond, err)
	}

	// Repositories
	chainRouteRepo := repositories.NewChainRouteRepository(db)
	validatorRepo := repositories.NewValidatorRepository(db)
	transactionRepo := repositories.NewBridgeTransactionRepository(db)
	challengeRepo := repositories.NewChallengeRepository(db)
	liquidityPoolRepo := repositories.NewLiquidityPoolRepository(db)
	eventRepo := repositories.NewBridgeEventRepository(db)

	// Infrastructure
	bridgeCache := cache.NewBridgeCache(redisClient, zapLog)

	custodyClient := custody.NewClient(custody.Config{
		BaseURL:     cfg.Custody.BaseURL,
		APIKey:      cfg.Custody.APIKey,
		Environment: cfg.Custody.Environment,
		Timeout:     time.Duration(cfg.Custody.Timeout) * time.Second,
		MaxRetries:  cfg.Custody.MaxRetries,
		RatePerSec:  float64(cfg.Custody.RatePerSec),
		RateBurst:   cfg.Custody.RateBurst,
	}, zapLog)
	assetGateway := custody.NewGateway(custodyClient, zapLog)

	// Domain services. Events and pause control first: nearly everything
	// else records events, and value movers consult the pause gate.
	eventService := events.NewService(eventRepo, zapLog)
	controlService := control.NewService(eventService, zapLog)

	chainRegistry := chainregistry.NewService(chainRouteRepo, eventService, zapLog)

	validatorService := validators.NewService(validatorRepo, eventService, validators.Config{
		MinimumStake:  minimumStake,
		MaxValidators: cfg.Protocol.MaxValidators,
	}, zapLog)

	quorumService := quorum.NewService(validatorService, quorum.Config{
		ThresholdBps:  cfg.Protocol.QuorumThresholdBps,
		MinSignatures: cfg.Protocol.MinSignatures,
	}, zapLog)

	ledgerService := ledger.NewService(
		transactionRepo,
		chainRegistry,
		quorumService,
		assetGateway,
		controlService,
		eventService,
		ledger.Config{
			SourceChainID: cfg.Protocol.SourceChainID,
			MaxDeadline:   time.Duration(cfg.Protocol.MaxDeadlineHours) * time.Hour,
		},
		zapLog,
	)

	challengeService := challenge.NewService(
		challengeRepo,
		ledgerService,
		validatorService.NewSlasher(),
		assetGateway,
		eventService,
		challenge.Config{
			MinimumBond:         minimumBond,
			ChallengeWindow:     time.Duration(cfg.Protocol.ChallengeWindowMins) * time.Minute,
			ChallengerRewardBps: cfg.Protocol.ChallengerRewardBps,
			BondAsset: entities.AssetRef{
				Symbol: cfg.Protocol.StakeSymbol,
				Kind:   entities.AssetKindNative,
			},
			HomeChainID: cfg.Protocol.SourceChainID,
		},
		zapLog,
	)

	liquidityService := liquidity.NewService(
		liquidityPoolRepo,
		chainRegistry,
		assetGateway,
		controlService,
		eventService,
		bridgeCache,
		liquidity.Config{
			DefaultFeeBps:   cfg.Protocol.PoolFeeBps,
			HomeChainID:     cfg.Protocol.SourceChainID,
			MetricsCacheTTL: time.Duration(cfg.Protocol.MetricsCacheTTLSecs) * time.Second,
		},
		zapLog,
	)

	routeAdvisor := routeadvisor.NewService(
		chainRegistry,
		liquidityService,
		bridgeCache,
		routeadvisor.Config{
			InstantEstimate: time.Duration(cfg.Protocol.InstantEstimateSecs) * time.Second,
			QuoteCacheTTL:   time.Duration(cfg.Protocol.QuoteCacheTTLSecs) * time.Second,
		},
		zapLog,
	)

	return &Container{
		Config:            cfg,
		DB:                db,
		Logger:            log,
		ZapLog:            zapLog,
		ChainRouteRepo:    chainRouteRepo,
		ValidatorRepo:     validatorRepo,
		TransactionRepo:   transactionRepo,
		ChallengeRepo:     challengeRepo,
		LiquidityPoolRepo: liquidityPoolRepo,
		EventRepo:         eventRepo,
		RedisClient:       redisClient,
		BridgeCache:       bridgeCache,
		CustodyClient:     custodyClient,
		AssetGateway:      assetGateway,
		EventService:      eventService,
		ControlService:    controlService,
		ChainRegistry:     chainRegistry,
		ValidatorService:  validatorService,
		QuorumService:     quorumService,
		LedgerService:     ledgerService,
		ChallengeService:  challengeService,
		LiquidityService:  liquidityService,
		RouteAdvisor:      routeAdvisor,
	}, nil
}

// Warm rebuilds in-memory aggregates from storage. Called once at startup
// before the container takes traffic.
func (c *Container) Warm(ctx context.Context) error {
	if err := c.ValidatorService.LoadTotals(ctx); err != nil {
		return fmt.Errorf("load validator totals: %w", err)
	}
	if err := c.LedgerService.LoadTotals(ctx); err != nil {
		return fmt.Errorf("load bridged volume: %w", err)
	}
	if err := c.ChallengeService.LoadRewardPool(ctx); err != nil {
		return fmt.Errorf("load reward pool: %w", err)
	}
	return nil
}
