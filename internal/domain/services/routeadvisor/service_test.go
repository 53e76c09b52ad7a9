package routeadvisor_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/services/routeadvisor"
)

type mockRoutes struct {
	route *entities.ChainRoute
}

func (m *mockRoutes) GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error) {
	if m.route == nil || m.route.ChainID != chainID {
		return nil, domainerrors.NotFoundError("chain_route")
	}
	return m.route, nil
}

type mockPools struct {
	metrics *entities.PoolMetrics
	err     error
}

func (m *mockPools) Metrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.metrics, nil
}

type mockQuoteCache struct {
	store map[string]*entities.RouteAdvice
	hits  int
}

func newMockQuoteCache() *mockQuoteCache {
	return &mockQuoteCache{store: make(map[string]*entities.RouteAdvice)}
}

func (m *mockQuoteCache) GetAdvice(ctx context.Context, key string) (*entities.RouteAdvice, bool) {
	a, ok := m.store[key]
	if ok {
		m.hits++
	}
	return a, ok
}

func (m *mockQuoteCache) SetAdvice(ctx context.Context, key string, advice *entities.RouteAdvice, ttl time.Duration) {
	m.store[key] = advice
}

var usdc = entities.AssetRef{Symbol: "USDC", Kind: entities.AssetKindNative}

func testRoute() *entities.ChainRoute {
	return &entities.ChainRoute{
		ChainID:               137,
		Name:                  "polygon",
		Active:                true,
		BlockTimeSeconds:      2,
		RequiredConfirmations: 30,
		DailyLimit:            decimal.NewFromInt(100000),
		DailyVolume:           decimal.Zero,
	}
}

func testMetrics() *entities.PoolMetrics {
	return &entities.PoolMetrics{
		Asset:       usdc,
		DestBalance: decimal.NewFromInt(50000),
		FeeBps:      30,
	}
}

func newAdvisor(routes *mockRoutes, pools *mockPools, cache *mockQuoteCache) *routeadvisor.Service {
	return routeadvisor.NewService(routes, pools, cache, routeadvisor.Config{
		InstantEstimate: 5 * time.Second,
		QuoteCacheTTL:   30 * time.Second,
	}, zap.NewNop())
}

func quoteRequest(amount string, urgent bool) *entities.RouteQuoteRequest {
	return &entities.RouteQuoteRequest{
		Asset:       usdc,
		Amount:      amount,
		DestChainID: 137,
		Urgent:      urgent,
	}
}

func TestQuote_BothPathsAvailable(t *testing.T) {
	svc := newAdvisor(&mockRoutes{route: testRoute()}, &mockPools{metrics: testMetrics()}, newMockQuoteCache())

	advice, err := svc.Quote(context.Background(), quoteRequest("1000", false))
	require.NoError(t, err)

	assert.True(t, advice.Standard.Available)
	assert.Equal(t, 60*time.Second, advice.Standard.EstimatedTime)
	assert.True(t, advice.Standard.Fee.IsZero())

	assert.True(t, advice.Instant.Available)
	assert.Equal(t, 5*time.Second, advice.Instant.EstimatedTime)
	assert.True(t, advice.Instant.Fee.Equal(decimal.NewFromInt(3)))
	assert.True(t, advice.Instant.NetAmount.Equal(decimal.NewFromInt(997)))

	// not urgent: the free path wins
	assert.Equal(t, entities.BridgePathStandard, advice.Recommended)
}

func TestQuote_UrgentPrefersInstant(t *testing.T) {
	svc := newAdvisor(&mockRoutes{route: testRoute()}, &mockPools{metrics: testMetrics()}, newMockQuoteCache())

	advice, err := svc.Quote(context.Background(), quoteRequest("1000", true))
	require.NoError(t, err)
	assert.Equal(t, entities.BridgePathInstant, advice.Recommended)
}

func TestQuote_CapExhaustedFallsBackToInstant(t *testing.T) {
	route := testRoute()
	route.DailyVolume = route.DailyLimit
	svc := newAdvisor(&mockRoutes{route: route}, &mockPools{metrics: testMetrics()}, newMockQuoteCache())

	advice, err := svc.Quote(context.Background(), quoteRequest("1000", false))
	require.NoError(t, err)
	assert.False(t, advice.Standard.Available)
	assert.Equal(t, "daily volume limit reached", advice.Standard.Reason)
	assert.Equal(t, entities.BridgePathInstant, advice.Recommended)
}

func TestQuote_NoPoolStillQuotesStandard(t *testing.T) {
	svc := newAdvisor(&mockRoutes{route: testRoute()},
		&mockPools{err: domainerrors.NotFoundError("liquidity_pool")}, newMockQuoteCache())

	advice, err := svc.Quote(context.Background(), quoteRequest("1000", true))
	require.NoError(t, err)
	assert.False(t, advice.Instant.Available)
	assert.Equal(t, "no pool for asset", advice.Instant.Reason)
	assert.Equal(t, entities.BridgePathStandard, advice.Recommended)
}

func TestQuote_ThinPoolUnavailable(t *testing.T) {
	m := testMetrics()
	m.DestBalance = decimal.NewFromInt(500)
	svc := newAdvisor(&mockRoutes{route: testRoute()}, &mockPools{metrics: m}, newMockQuoteCache())

	advice, err := svc.Quote(context.Background(), quoteRequest("1000", true))
	require.NoError(t, err)
	assert.False(t, advice.Instant.Available)
	assert.Equal(t, "insufficient destination liquidity", advice.Instant.Reason)
}

func TestQuote_UnknownChain(t *testing.T) {
	svc := newAdvisor(&mockRoutes{}, &mockPools{metrics: testMetrics()}, newMockQuoteCache())

	_, err := svc.Quote(context.Background(), quoteRequest("1000", false))
	assert.ErrorIs(t, err, domainerrors.ErrChainNotSupported)
}

func TestQuote_CachedOnRepeat(t *testing.T) {
	cache := newMockQuoteCache()
	svc := newAdvisor(&mockRoutes{route: testRoute()}, &mockPools{metrics: testMetrics()}, cache)

	first, err := svc.Quote(context.Background(), quoteRequest("1000", false))
	require.NoError(t, err)

	second, err := svc.Quote(context.Background(), quoteRequest("1000", false))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)
}
