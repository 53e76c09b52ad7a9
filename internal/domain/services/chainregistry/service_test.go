package chainregistry_test

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
	"github.com/crosslane/bridge_service/internal/domain/services/chainregistry"
)

type mockRouteRepo struct {
	routes map[uint64]*entities.ChainRoute
}

func newMockRouteRepo() *mockRouteRepo {
	return &mockRouteRepo{routes: make(map[uint64]*entities.ChainRoute)}
}

func (m *mockRouteRepo) Create(ctx context.Context, route *entities.ChainRoute) error {
	cp := *route
	m.routes[route.ChainID] = &cp
	return nil
}

func (m *mockRouteRepo) GetByChainID(ctx context.Context, chainID uint64) (*entities.ChainRoute, error) {
	r, ok := m.routes[chainID]
	if !ok {
		return nil, domainerrors.NotFoundError("chain_route")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRouteRepo) List(ctx context.Context, activeOnly bool) ([]*entities.ChainRoute, error) {
	var result []*entities.ChainRoute
	for _, r := range m.routes {
		if activeOnly && !r.Active {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockRouteRepo) Update(ctx context.Context, route *entities.ChainRoute) error {
	cp := *route
	m.routes[route.ChainID] = &cp
	return nil
}

func (m *mockRouteRepo) AddDailyVolume(ctx context.Context, chainID uint64, amount decimal.Decimal, resetAt time.Time) error {
	r := m.routes[chainID]
	r.DailyVolume = r.DailyVolume.Add(amount)
	r.VolumeResetAt = resetAt
	return nil
}

type mockEvents struct {
	recorded []entities.EventType
}

func (m *mockEvents) Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{}) {
	m.recorded = append(m.recorded, eventType)
}

func newRegistry(t *testing.T) (*chainregistry.Service, *mockRouteRepo) {
	t.Helper()
	repo := newMockRouteRepo()
	return chainregistry.NewService(repo, &mockEvents{}, zap.NewNop()), repo
}

func registerTestChain(t *testing.T, svc *chainregistry.Service, chainID uint64, dailyLimit string) *entities.ChainRoute {
	t.Helper()
	route, err := svc.RegisterChain(context.Background(), &entities.RegisterChainRequest{
		ChainID:               chainID,
		Name:                  "testchain",
		BridgeEndpoint:        "https://bridge.test",
		BlockTimeSeconds:      12,
		RequiredConfirmations: 10,
		DailyLimit:            dailyLimit,
	})
	require.NoError(t, err)
	return route
}

func TestRegisterChain_DuplicateID(t *testing.T) {
	svc, _ := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	_, err := svc.RegisterChain(context.Background(), &entities.RegisterChainRequest{
		ChainID:               137,
		Name:                  "other",
		BridgeEndpoint:        "https://other.test",
		BlockTimeSeconds:      2,
		RequiredConfirmations: 30,
		DailyLimit:            "500",
	})
	require.Error(t, err)
	assert.True(t, domainerrors.IsAlreadyExists(err))
}

func TestRegisterChain_SettlementEstimate(t *testing.T) {
	svc, _ := newRegistry(t)
	route := registerTestChain(t, svc, 137, "1000")

	assert.Equal(t, 120*time.Second, route.EstimatedSettlementTime())
	assert.True(t, route.Active)
	assert.True(t, route.DailyVolume.IsZero())
}

func TestReserveVolume_WithinCap(t *testing.T) {
	svc, repo := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(600)))
	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(400)))

	route, err := repo.GetByChainID(context.Background(), 137)
	require.NoError(t, err)
	assert.True(t, route.DailyVolume.Equal(decimal.NewFromInt(1000)))
}

func TestReserveVolume_ExceedsCap(t *testing.T) {
	svc, _ := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(900)))

	err := svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(200))
	require.Error(t, err)
	var derr *domainerrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", derr.Code)
	assert.Equal(t, "100", derr.Details["remaining"])
}

func TestReserveVolume_InactiveRoute(t *testing.T) {
	svc, _ := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	_, err := svc.SetActive(context.Background(), 137, false)
	require.NoError(t, err)

	err = svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domainerrors.ErrChainNotSupported)
}

func TestReserveVolume_WindowReset(t *testing.T) {
	svc, repo := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(1000)))

	// Age the window past a full day; the next reservation must start a
	// fresh one anchored at now.
	route := repo.routes[137]
	route.VolumeResetAt = time.Now().UTC().Add(-25 * time.Hour)

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(800)))

	updated, err := repo.GetByChainID(context.Background(), 137)
	require.NoError(t, err)
	assert.True(t, updated.DailyVolume.Equal(decimal.NewFromInt(800)))
	assert.WithinDuration(t, time.Now().UTC(), updated.VolumeResetAt, time.Minute)
}

func TestReserveVolume_NoResetWithinTwentyFourHours(t *testing.T) {
	svc, repo := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(1000)))

	// A window opened 23 hours ago is still the same day: filling the
	// cap and coming back near a calendar boundary must not double it.
	route := repo.routes[137]
	route.VolumeResetAt = time.Now().UTC().Add(-23 * time.Hour)

	err := svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(800))
	assert.ErrorIs(t, err, domainerrors.ErrDailyLimitExceeded)

	updated, gerr := repo.GetByChainID(context.Background(), 137)
	require.NoError(t, gerr)
	assert.True(t, updated.DailyVolume.Equal(decimal.NewFromInt(1000)))
}

func TestReleaseVolume_RestoresCapacity(t *testing.T) {
	svc, repo := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	reservedAt := time.Now().UTC()
	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(1000)))
	require.NoError(t, svc.ReleaseVolume(context.Background(), 137, decimal.NewFromInt(400), reservedAt))

	route, err := repo.GetByChainID(context.Background(), 137)
	require.NoError(t, err)
	assert.True(t, route.DailyVolume.Equal(decimal.NewFromInt(600)))

	require.NoError(t, svc.ReserveVolume(context.Background(), 137, decimal.NewFromInt(400)))
}

func TestUpdateDailyLimit_Negative(t *testing.T) {
	svc, _ := newRegistry(t)
	registerTestChain(t, svc, 137, "1000")

	_, err := svc.UpdateDailyLimit(context.Background(), 137, decimal.NewFromInt(-1))
	assert.True(t, domainerrors.IsInvalidInput(err))
}
