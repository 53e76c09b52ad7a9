package routeadvisor

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

// RouteRegistry provides destination lookups
type RouteRegistry interface {
	GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error)
}

// PoolMetrics provides the liquidity view a quote needs
type PoolMetrics interface {
	Metrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, error)
}

// QuoteCache caches computed advice for identical requests
type QuoteCache interface {
	GetAdvice(ctx context.Context, key string) (*entities.RouteAdvice, bool)
	SetAdvice(ctx context.Context, key string, advice *entities.RouteAdvice, ttl time.Duration)
}

// Config carries the advisor parameters
type Config struct {
	InstantEstimate time.Duration
	QuoteCacheTTL   time.Duration
}

// Service compares the standard and instant settlement paths for a
// transfer and recommends one. Quotes are estimates, never reservations.
type Service struct {
	routes RouteRegistry
	pools  PoolMetrics
	cache  QuoteCache
	cfg    Config
	logger *zap.Logger
}

func NewService(routes RouteRegistry, pools PoolMetrics, cache QuoteCache, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		routes: routes,
		pools:  pools,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Quote evaluates both paths for the requested transfer
func (s *Service) Quote(ctx context.Context, req *entities.RouteQuoteRequest) (*entities.RouteAdvice, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be a positive decimal")
	}

	key := cacheKey(req)
	if cached, ok := s.cache.GetAdvice(ctx, key); ok {
		return cached, nil
	}

	route, err := s.routes.GetRoute(ctx, req.DestChainID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, domainerrors.ChainNotSupportedError(req.DestChainID)
		}
		return nil, err
	}

	advice := &entities.RouteAdvice{
		Asset:       req.Asset,
		Amount:      amount,
		DestChainID: req.DestChainID,
		Standard:    s.standardQuote(route, amount),
		Instant:     s.instantQuote(ctx, route, req.Asset, amount),
		QuotedAt:    time.Now().UTC(),
	}
	advice.Recommended = recommend(advice, req.Urgent)

	s.cache.SetAdvice(ctx, key, advice, s.cfg.QuoteCacheTTL)

	return advice, nil
}

// standardQuote prices the attested path: free, but bounded by the
// route's daily headroom and its confirmation latency.
func (s *Service) standardQuote(route *entities.ChainRoute, amount decimal.Decimal) entities.RouteQuote {
	q := entities.RouteQuote{
		Path:          entities.BridgePathStandard,
		EstimatedTime: route.EstimatedSettlementTime(),
		Fee:           decimal.Zero,
		NetAmount:     amount,
	}

	if !route.Active {
		q.Reason = "route inactive"
		return q
	}
	remaining := route.DailyLimit.Sub(route.DailyVolume)
	if amount.GreaterThan(remaining) {
		q.Reason = "daily volume limit reached"
		return q
	}

	q.Available = true
	return q
}

// instantQuote prices the pool path: immediate, fee-bearing and bounded
// by the destination-side balance.
func (s *Service) instantQuote(ctx context.Context, route *entities.ChainRoute, asset entities.AssetRef, amount decimal.Decimal) entities.RouteQuote {
	q := entities.RouteQuote{
		Path:          entities.BridgePathInstant,
		EstimatedTime: s.cfg.InstantEstimate,
	}

	if !route.Active {
		q.Reason = "route inactive"
		return q
	}

	m, err := s.pools.Metrics(ctx, asset)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			q.Reason = "no pool for asset"
		} else {
			s.logger.Warn("pool metrics unavailable for quote",
				zap.Error(err),
				zap.String("asset", asset.Symbol))
			q.Reason = "pool metrics unavailable"
		}
		return q
	}

	q.Fee = amount.Mul(decimal.NewFromInt(m.FeeBps)).Div(decimal.NewFromInt(10000))
	q.NetAmount = amount.Sub(q.Fee)
	if q.NetAmount.GreaterThan(m.DestBalance) {
		q.Reason = "insufficient destination liquidity"
		return q
	}

	q.Available = true
	return q
}

// recommend prefers the instant path for urgent transfers and the free
// standard path otherwise, falling back to whichever is available.
func recommend(advice *entities.RouteAdvice, urgent bool) entities.BridgePath {
	switch {
	case advice.Instant.Available && (urgent || !advice.Standard.Available):
		return entities.BridgePathInstant
	default:
		return entities.BridgePathStandard
	}
}

func cacheKey(req *entities.RouteQuoteRequest) string {
	urgency := "normal"
	if req.Urgent {
		urgency = "urgent"
	}
	return "quote:" + req.Asset.Symbol + ":" + string(req.Asset.Kind) + ":" +
		req.Amount + ":" + urgency + ":" + strconv.FormatUint(req.DestChainID, 10)
}
