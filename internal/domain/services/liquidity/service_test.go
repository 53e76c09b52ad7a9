package liquidity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/services/liquidity"
)

type poolKey struct {
	symbol string
	kind   entities.AssetKind
}

func keyOf(asset entities.AssetRef) poolKey {
	return poolKey{symbol: asset.Symbol, kind: asset.Kind}
}

type mockPoolRepo struct {
	pools     map[poolKey]*entities.LiquidityPool
	positions map[poolKey]map[string]*entities.PoolPosition
}

func newMockPoolRepo() *mockPoolRepo {
	return &mockPoolRepo{
		pools:     make(map[poolKey]*entities.LiquidityPool),
		positions: make(map[poolKey]map[string]*entities.PoolPosition),
	}
}

func (m *mockPoolRepo) CreatePool(ctx context.Context, pool *entities.LiquidityPool) error {
	cp := *pool
	m.pools[keyOf(pool.Asset)] = &cp
	return nil
}

func (m *mockPoolRepo) GetPool(ctx context.Context, asset entities.AssetRef) (*entities.LiquidityPool, error) {
	p, ok := m.pools[keyOf(asset)]
	if !ok {
		return nil, domainerrors.NotFoundError("liquidity_pool")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPoolRepo) ListPools(ctx context.Context) ([]*entities.LiquidityPool, error) {
	var result []*entities.LiquidityPool
	for _, p := range m.pools {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockPoolRepo) UpdatePool(ctx context.Context, pool *entities.LiquidityPool) error {
	cp := *pool
	m.pools[keyOf(pool.Asset)] = &cp
	return nil
}

func (m *mockPoolRepo) UpsertPosition(ctx context.Context, position *entities.PoolPosition) error {
	k := keyOf(position.Asset)
	if m.positions[k] == nil {
		m.positions[k] = make(map[string]*entities.PoolPosition)
	}
	cp := *position
	m.positions[k][position.Provider] = &cp
	return nil
}

func (m *mockPoolRepo) GetPosition(ctx context.Context, asset entities.AssetRef, provider string) (*entities.PoolPosition, error) {
	p, ok := m.positions[keyOf(asset)][provider]
	if !ok {
		return nil, domainerrors.NotFoundError("pool_position")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPoolRepo) CountProviders(ctx context.Context, asset entities.AssetRef) (int, error) {
	return len(m.positions[keyOf(asset)]), nil
}

type mockRoutes struct {
	routes map[uint64]*entities.ChainRoute
}

func (m *mockRoutes) GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error) {
	r, ok := m.routes[chainID]
	if !ok {
		return nil, domainerrors.NotFoundError("chain_route")
	}
	return r, nil
}

func (m *mockRoutes) ReserveVolume(ctx context.Context, chainID uint64, amount decimal.Decimal) error {
	r, ok := m.routes[chainID]
	if !ok {
		return domainerrors.NotFoundError("chain_route")
	}
	if r.DailyVolume.Add(amount).GreaterThan(r.DailyLimit) {
		return domainerrors.DailyLimitExceededError(chainID, r.DailyLimit.Sub(r.DailyVolume).String())
	}
	r.DailyVolume = r.DailyVolume.Add(amount)
	return nil
}

type mockPause struct {
	paused bool
}

func (m *mockPause) Paused() bool { return m.paused }

type mockEvents struct{}

func (m *mockEvents) Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{}) {
}

func (m *mockEvents) RecordInstantBridge(ctx context.Context, sender, asset, amount, fee string) {}

type mockGateway struct {
	deposits []string
	payouts  []string
	fail     error
}

func (m *mockGateway) Deposit(ctx context.Context, asset entities.AssetRef, from string, amount decimal.Decimal, chainID uint64) error {
	if m.fail != nil {
		return m.fail
	}
	m.deposits = append(m.deposits, from+":"+amount.String())
	return nil
}

func (m *mockGateway) Payout(ctx context.Context, asset entities.AssetRef, to string, amount decimal.Decimal, destChainID uint64) error {
	if m.fail != nil {
		return m.fail
	}
	m.payouts = append(m.payouts, to+":"+amount.String())
	return nil
}

type mockCache struct {
	invalidated int
}

func (m *mockCache) GetPoolMetrics(ctx context.Context, asset entities.AssetRef) (*entities.PoolMetrics, bool) {
	return nil, false
}

func (m *mockCache) SetPoolMetrics(ctx context.Context, metrics *entities.PoolMetrics, ttl time.Duration) {
}

func (m *mockCache) Invalidate(ctx context.Context, asset entities.AssetRef) {
	m.invalidated++
}

var usdc = entities.AssetRef{Symbol: "USDC", Kind: entities.AssetKindNative}

type liquidityFixture struct {
	svc     *liquidity.Service
	repo    *mockPoolRepo
	pause   *mockPause
	cache   *mockCache
	gateway *mockGateway
}

func newLiquidityFixture(t *testing.T) *liquidityFixture {
	t.Helper()
	f := &liquidityFixture{
		repo:    newMockPoolRepo(),
		pause:   &mockPause{},
		cache:   &mockCache{},
		gateway: &mockGateway{},
	}
	routes := &mockRoutes{routes: map[uint64]*entities.ChainRoute{
		137: {
			ChainID:     137,
			Name:        "polygon",
			Active:      true,
			DailyLimit:  decimal.NewFromInt(1000000),
			DailyVolume: decimal.Zero,
		},
	}}
	f.svc = liquidity.NewService(f.repo, routes, f.gateway, f.pause, &mockEvents{}, f.cache, liquidity.Config{
		DefaultFeeBps:   30,
		HomeChainID:     1,
		MetricsCacheTTL: time.Minute,
	}, zap.NewNop())

	_, err := f.svc.CreatePool(context.Background(), usdc)
	require.NoError(t, err)
	return f
}

func (f *liquidityFixture) fund(t *testing.T, provider, src, dst string) {
	t.Helper()
	_, err := f.svc.AddLiquidity(context.Background(), &entities.AddLiquidityRequest{
		Provider:     provider,
		Asset:        usdc,
		SourceAmount: src,
		DestAmount:   dst,
	})
	require.NoError(t, err)
}

func TestCreatePool_Duplicate(t *testing.T) {
	f := newLiquidityFixture(t)

	_, err := f.svc.CreatePool(context.Background(), usdc)
	assert.True(t, domainerrors.IsAlreadyExists(err))
}

func TestAddLiquidity_TracksPoolAndPosition(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")

	pool, err := f.svc.GetPool(context.Background(), usdc)
	require.NoError(t, err)
	assert.True(t, pool.SourceBalance.Equal(decimal.NewFromInt(6000)))
	assert.True(t, pool.DestBalance.Equal(decimal.NewFromInt(4000)))
	assert.True(t, pool.TotalLiquidity.Equal(decimal.NewFromInt(10000)))

	position, err := f.svc.GetPosition(context.Background(), usdc, "lp-1")
	require.NoError(t, err)
	assert.True(t, position.Balance.Equal(decimal.NewFromInt(10000)))
}

func TestRemoveLiquidity_ExceedsShare(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")
	f.fund(t, "lp-2", "1000", "1000")

	// lp-2 cannot drain lp-1's contribution
	_, err := f.svc.RemoveLiquidity(context.Background(), &entities.RemoveLiquidityRequest{
		Provider: "lp-2",
		Asset:    usdc,
		Amount:   "5000",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientShare)
}

func TestRemoveLiquidity_ProRataSides(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")

	pool, err := f.svc.RemoveLiquidity(context.Background(), &entities.RemoveLiquidityRequest{
		Provider: "lp-1",
		Asset:    usdc,
		Amount:   "1000",
	})
	require.NoError(t, err)
	assert.True(t, pool.SourceBalance.Equal(decimal.NewFromInt(5400)))
	assert.True(t, pool.DestBalance.Equal(decimal.NewFromInt(3600)))
	assert.True(t, pool.TotalLiquidity.Equal(decimal.NewFromInt(9000)))

	position, err := f.svc.GetPosition(context.Background(), usdc, "lp-1")
	require.NoError(t, err)
	assert.True(t, position.Balance.Equal(decimal.NewFromInt(9000)))
}

func TestInstantBridge_FeeAccruesToPool(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")

	result, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "1000",
		DestChainID: 137,
	})
	require.NoError(t, err)

	// 30 bps of 1000
	assert.True(t, result.Fee.Equal(decimal.NewFromInt(3)))
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(997)))

	pool, err := f.svc.GetPool(context.Background(), usdc)
	require.NoError(t, err)
	assert.True(t, pool.SourceBalance.Equal(decimal.NewFromInt(7000)))
	assert.True(t, pool.DestBalance.Equal(decimal.NewFromInt(3003)))
	assert.True(t, pool.TotalLiquidity.Equal(decimal.NewFromInt(10003)))
}

func TestInstantBridge_InsufficientDestinationLiquidity(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "500")

	_, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "1000",
		DestChainID: 137,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientLiquidity)
}

func TestInstantBridge_GrossAmountGatesDestination(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "100")

	// the fee would bring the payout under the balance, but the gross
	// amount exceeds it
	_, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "100.30",
		DestChainID: 137,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientLiquidity)

	// exactly the destination balance is still serviceable
	result, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "100",
		DestChainID: 137,
	})
	require.NoError(t, err)
	assert.True(t, result.NetAmount.Equal(decimal.RequireFromString("99.7")))
}

func TestInstantBridge_Paused(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")
	f.pause.paused = true

	_, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "1000",
		DestChainID: 137,
	})
	assert.ErrorIs(t, err, domainerrors.ErrBridgePaused)
}

func TestInstantBridge_UnsupportedChain(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")

	_, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "1000",
		DestChainID: 999,
	})
	assert.ErrorIs(t, err, domainerrors.ErrChainNotSupported)
}

func TestInstantBridge_MovesCustody(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")

	_, err := f.svc.InstantBridge(context.Background(), &entities.InstantBridgeRequest{
		Sender:      "alice",
		Recipient:   "bob",
		Asset:       usdc,
		Amount:      "1000",
		DestChainID: 137,
	})
	require.NoError(t, err)

	// Provider deposit plus the sender's pull; recipient paid net of fee
	assert.Equal(t, []string{"lp-1:10000", "alice:1000"}, f.gateway.deposits)
	assert.Equal(t, []string{"bob:997"}, f.gateway.payouts)
}

func TestAddLiquidity_CustodyFailureLeavesPoolUntouched(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")
	f.gateway.fail = errors.New("custody unavailable")

	_, err := f.svc.AddLiquidity(context.Background(), &entities.AddLiquidityRequest{
		Provider:     "lp-2",
		Asset:        usdc,
		SourceAmount: "100",
		DestAmount:   "100",
	})
	require.Error(t, err)

	pool, err := f.svc.GetPool(context.Background(), usdc)
	require.NoError(t, err)
	assert.True(t, pool.TotalLiquidity.Equal(decimal.NewFromInt(10000)))
}

func TestMetrics_ComputesUtilization(t *testing.T) {
	f := newLiquidityFixture(t)
	f.fund(t, "lp-1", "6000", "4000")
	f.fund(t, "lp-2", "500", "500")

	m, err := f.svc.Metrics(context.Background(), usdc)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ProviderCount)
	assert.True(t, m.Utilization.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(30), m.FeeBps)
}
