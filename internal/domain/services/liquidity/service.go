package liquidity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
	"github.com/crosslane/bridge_service/pkg/metrics"
)

// RouteRegistry validates destinations and counts instant volume
// against the same daily caps as the standard path
type RouteRegistry interface {
	GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error)
	ReserveVolume(ctx context.Context, chainID uint64, amount decimal.Decimal) error
}

// PauseGate reports whether value-moving operations are suspended
type PauseGate interface {
	Paused() bool
}

// EventRecorder publishes pool changes to the event log
type EventRecorder interface {
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
	RecordInstantBridge(ctx context.Context, sender, asset, amount, fee string)
}

// MetricsCache caches computed pool metrics for dashboard reads
type MetricsCache interface {
	GetPoolMetrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, bool)
	SetPoolMetrics(ctx context.Context, m *entities.PoolMetrics, ttl time.Duration)
	Invalidate(ctx context.Context, asset entities.AssetRef)
}

// FundsGateway moves custody of pooled funds. A failed call aborts the
// operation with no pool mutation.
type FundsGateway interface {
	Deposit(ctx context.Context, asset entities.AssetRef, from string, amount decimal.Decimal, chainID uint64) error
	Payout(ctx context.Context, asset entities.AssetRef, to string, amount decimal.Decimal, destChainID uint64) error
}

// Config carries the pool protocol parameters
type Config struct {
	DefaultFeeBps   int64
	HomeChainID     uint64
	MetricsCacheTTL time.Duration
}

// Service manages pre-funded liquidity pools and instant settlement.
// Pool balance mutations are serialized under the service mutex; the
// repository persists the resulting state.
type Service struct {
	repo    repositories.LiquidityPoolRepository
	routes  RouteRegistry
	gateway FundsGateway
	pause   PauseGate
	events  EventRecorder
	cache   MetricsCache
	cfg     Config
	logger  *zap.Logger

	mu sync.Mutex
}

func NewService(
	repo repositories.LiquidityPoolRepository,
	routes RouteRegistry,
	gateway FundsGateway,
	pause PauseGate,
	events EventRecorder,
	cache MetricsCache,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:    repo,
		routes:  routes,
		gateway: gateway,
		pause:   pause,
		events:  events,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreatePool registers a pool for an asset with the default fee
func (s *Service) CreatePool(ctx context.Context, asset entities.AssetRef) (*entities.LiquidityPool, error) {
	existing, err := s.repo.GetPool(ctx, asset)
	if err != nil && !domainerrors.IsNotFound(err) {
		return nil, fmt.Errorf("check pool: %w", err)
	}
	if existing != nil {
		return nil, domainerrors.AlreadyExistsError("liquidity_pool")
	}

	now := time.Now().UTC()
	pool := &entities.LiquidityPool{
		Asset:          asset,
		SourceBalance:  decimal.Zero,
		DestBalance:    decimal.Zero,
		TotalLiquidity: decimal.Zero,
		FeeBps:         s.cfg.DefaultFeeBps,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreatePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s.logger.Info("Liquidity pool created",
		zap.String("asset", asset.Symbol),
		zap.Int64("fee_bps", pool.FeeBps))

	return pool, nil
}

// AddLiquidity contributes to both sides of a pool and records the
// provider's claim.
func (s *Service) AddLiquidity(ctx context.Context, req *entities.AddLiquidityRequest) (*entities.LiquidityPool, error) {
	srcAmount, err := decimal.NewFromString(req.SourceAmount)
	if err != nil || srcAmount.IsNegative() {
		return nil, domainerrors.ValidationError("source_amount", "source amount must be a non-negative decimal")
	}
	dstAmount, err := decimal.NewFromString(req.DestAmount)
	if err != nil || dstAmount.IsNegative() {
		return nil, domainerrors.ValidationError("dest_amount", "dest amount must be a non-negative decimal")
	}
	contribution := srcAmount.Add(dstAmount)
	if !contribution.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "contribution must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.repo.GetPool(ctx, req.Asset)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Deposit(ctx, req.Asset, req.Provider, contribution, s.cfg.HomeChainID); err != nil {
		return nil, fmt.Errorf("pull contribution: %w", err)
	}

	now := time.Now().UTC()
	pool.SourceBalance = pool.SourceBalance.Add(srcAmount)
	pool.DestBalance = pool.DestBalance.Add(dstAmount)
	pool.TotalLiquidity = pool.TotalLiquidity.Add(contribution)
	pool.UpdatedAt = now
	if err := s.repo.UpdatePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("update pool: %w", err)
	}

	position, err := s.repo.GetPosition(ctx, req.Asset, req.Provider)
	if err != nil {
		if !domainerrors.IsNotFound(err) {
			return nil, err
		}
		position = &entities.PoolPosition{
			Asset:    req.Asset,
			Provider: req.Provider,
			Balance:  decimal.Zero,
		}
	}
	position.Balance = position.Balance.Add(contribution)
	position.UpdatedAt = now
	if err := s.repo.UpsertPosition(ctx, position); err != nil {
		return nil, fmt.Errorf("upsert position: %w", err)
	}

	s.cache.Invalidate(ctx, req.Asset)
	s.publishUtilization(pool)

	s.events.Record(ctx, entities.EventTypeLiquidityAdded, req.Provider, req.Asset.Symbol, map[string]interface{}{
		"source_amount": srcAmount.String(),
		"dest_amount":   dstAmount.String(),
	})

	return pool, nil
}

// RemoveLiquidity redeems part of a provider's recorded claim, drawn from
// the two sides in proportion to their current balances.
func (s *Service) RemoveLiquidity(ctx context.Context, req *entities.RemoveLiquidityRequest) (*entities.LiquidityPool, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be a positive decimal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.repo.GetPool(ctx, req.Asset)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.GetPosition(ctx, req.Asset, req.Provider)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(position.Balance) {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInsufficientShare,
			"INSUFFICIENT_SHARE", "withdrawal exceeds provider share").WithDetails(map[string]interface{}{
			"share": position.Balance.String(),
		})
	}

	held := pool.SourceBalance.Add(pool.DestBalance)
	if amount.GreaterThan(held) {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInsufficientLiquidity,
			"INSUFFICIENT_LIQUIDITY", "pool cannot cover the withdrawal")
	}

	fromSource := decimal.Zero
	if held.IsPositive() {
		fromSource = amount.Mul(pool.SourceBalance).Div(held).Round(18)
	}
	if fromSource.GreaterThan(pool.SourceBalance) {
		fromSource = pool.SourceBalance
	}
	fromDest := amount.Sub(fromSource)

	if err := s.gateway.Payout(ctx, req.Asset, req.Provider, amount, s.cfg.HomeChainID); err != nil {
		return nil, fmt.Errorf("push withdrawal: %w", err)
	}

	now := time.Now().UTC()
	pool.SourceBalance = pool.SourceBalance.Sub(fromSource)
	pool.DestBalance = pool.DestBalance.Sub(fromDest)
	pool.TotalLiquidity = pool.TotalLiquidity.Sub(amount)
	if pool.TotalLiquidity.IsNegative() {
		pool.TotalLiquidity = decimal.Zero
	}
	pool.UpdatedAt = now
	if err := s.repo.UpdatePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("update pool: %w", err)
	}

	position.Balance = position.Balance.Sub(amount)
	position.UpdatedAt = now
	if err := s.repo.UpsertPosition(ctx, position); err != nil {
		return nil, fmt.Errorf("upsert position: %w", err)
	}

	s.cache.Invalidate(ctx, req.Asset)
	s.publishUtilization(pool)

	s.events.Record(ctx, entities.EventTypeLiquidityRemoved, req.Provider, req.Asset.Symbol, map[string]interface{}{
		"amount": amount.String(),
	})

	return pool, nil
}

// InstantBridge settles a transfer immediately from pooled liquidity.
// The sender's funds land on the source side, the recipient is paid the
// net amount from the destination side and the fee accrues to the pool.
func (s *Service) InstantBridge(ctx context.Context, req *entities.InstantBridgeRequest) (*entities.InstantBridgeResult, error) {
	if s.pause.Paused() {
		return nil, domainerrors.BridgePausedError()
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be a positive decimal")
	}

	route, err := s.routes.GetRoute(ctx, req.DestChainID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, domainerrors.ChainNotSupportedError(req.DestChainID)
		}
		return nil, err
	}
	if !route.Active {
		return nil, domainerrors.ChainNotSupportedError(req.DestChainID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.repo.GetPool(ctx, req.Asset)
	if err != nil {
		return nil, err
	}

	// The gate is the gross amount, not the net payout: a transfer larger
	// than the destination side is rejected even when the fee would bring
	// the payout under the balance.
	fee := amount.Mul(decimal.NewFromInt(pool.FeeBps)).Div(decimal.NewFromInt(10000))
	net := amount.Sub(fee)
	if amount.GreaterThan(pool.DestBalance) {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInsufficientLiquidity,
			"INSUFFICIENT_LIQUIDITY", "destination side cannot cover the transfer").WithDetails(map[string]interface{}{
			"available": pool.DestBalance.String(),
		})
	}

	if err := s.routes.ReserveVolume(ctx, req.DestChainID, amount); err != nil {
		return nil, err
	}

	if err := s.gateway.Deposit(ctx, req.Asset, req.Sender, amount, s.cfg.HomeChainID); err != nil {
		return nil, fmt.Errorf("pull transfer: %w", err)
	}
	if err := s.gateway.Payout(ctx, req.Asset, req.Recipient, net, req.DestChainID); err != nil {
		return nil, fmt.Errorf("push transfer: %w", err)
	}

	now := time.Now().UTC()
	pool.SourceBalance = pool.SourceBalance.Add(amount)
	pool.DestBalance = pool.DestBalance.Sub(net)
	pool.TotalLiquidity = pool.TotalLiquidity.Add(fee)
	pool.UpdatedAt = now
	if err := s.repo.UpdatePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("update pool: %w", err)
	}

	s.cache.Invalidate(ctx, req.Asset)
	s.publishUtilization(pool)
	metrics.InstantBridges.WithLabelValues(req.Asset.Symbol).Inc()

	s.logger.Info("Instant bridge settled",
		zap.String("asset", req.Asset.Symbol),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
		zap.Uint64("dest_chain_id", req.DestChainID))

	s.events.RecordInstantBridge(ctx, req.Sender, req.Asset.Symbol, amount.String(), fee.String())

	return &entities.InstantBridgeResult{
		Asset:     req.Asset,
		Amount:    amount,
		Fee:       fee,
		NetAmount: net,
		Recipient: req.Recipient,
		SettledAt: now,
	}, nil
}

// GetPool returns the pool for an asset
func (s *Service) GetPool(ctx context.Context, asset entities.AssetRef) (*entities.LiquidityPool, error) {
	return s.repo.GetPool(ctx, asset)
}

// ListPools returns all pools
func (s *Service) ListPools(ctx context.Context) ([]*entities.LiquidityPool, error) {
	return s.repo.ListPools(ctx)
}

// GetPosition returns a provider's claim on a pool
func (s *Service) GetPosition(ctx context.Context, asset entities.AssetRef, provider string) (*entities.PoolPosition, error) {
	return s.repo.GetPosition(ctx, asset, provider)
}

// Metrics returns the dashboard view of a pool, cached for a short TTL
func (s *Service) Metrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, error) {
	if cached, ok := s.cache.GetPoolMetrics(ctx, asset); ok {
		return cached, nil
	}

	pool, err := s.repo.GetPool(ctx, asset)
	if err != nil {
		return nil, err
	}
	providers, err := s.repo.CountProviders(ctx, asset)
	if err != nil {
		return nil, err
	}

	m := &entities.PoolMetrics{
		Asset:          pool.Asset,
		SourceBalance:  pool.SourceBalance,
		DestBalance:    pool.DestBalance,
		TotalLiquidity: pool.TotalLiquidity,
		Utilization:    pool.Utilization(),
		FeeBps:         pool.FeeBps,
		ProviderCount:  providers,
	}
	s.cache.SetPoolMetrics(ctx, m, s.cfg.MetricsCacheTTL)

	return m, nil
}

func (s *Service) publishUtilization(pool *entities.LiquidityPool) {
	metrics.PoolUtilization.WithLabelValues(pool.Asset.Symbol).Set(pool.Utilization().InexactFloat64())
}
