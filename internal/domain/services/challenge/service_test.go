package challenge_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/services/challenge"
)

type mockChallengeRepo struct {
	byID map[uuid.UUID]*entities.Challenge
}

func newMockChallengeRepo() *mockChallengeRepo {
	return &mockChallengeRepo{byID: make(map[uuid.UUID]*entities.Challenge)}
}

func (m *mockChallengeRepo) Create(ctx context.Context, c *entities.Challenge) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Challenge, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, domainerrors.NotFoundError("challenge")
	}
	cp := *c
	return &cp, nil
}

func (m *mockChallengeRepo) GetOpenByTransactionID(ctx context.Context, txID string) (*entities.Challenge, error) {
	for _, c := range m.byID {
		if c.TransactionID == txID && !c.Resolved {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domainerrors.NotFoundError("challenge")
}

func (m *mockChallengeRepo) Update(ctx context.Context, c *entities.Challenge) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockChallengeRepo) RewardPoolTotal(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range m.byID {
		switch {
		case !c.Resolved, !c.Valid:
			total = total.Add(c.Bond)
		default:
			total = total.Add(c.SlashedAmount).Sub(c.Bond).Sub(c.RewardPaid)
		}
	}
	return total, nil
}

func (m *mockChallengeRepo) List(ctx context.Context, resolved *bool, limit, offset int) ([]*entities.Challenge, error) {
	var result []*entities.Challenge
	for _, c := range m.byID {
		if resolved != nil && c.Resolved != *resolved {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

type mockLedger struct {
	challenged map[string]time.Time
	cancelled  []string
	cleared    []string
	markErr    error
}

func newMockLedger() *mockLedger {
	return &mockLedger{challenged: make(map[string]time.Time)}
}

func (m *mockLedger) MarkChallenged(ctx context.Context, id string, deadline time.Time) (*entities.BridgeTransaction, error) {
	if m.markErr != nil {
		return nil, m.markErr
	}
	m.challenged[id] = deadline
	return &entities.BridgeTransaction{ID: id}, nil
}

func (m *mockLedger) Cancel(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	m.cancelled = append(m.cancelled, id)
	return &entities.BridgeTransaction{ID: id, Cancelled: true}, nil
}

func (m *mockLedger) ClearChallenge(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	m.cleared = append(m.cleared, id)
	return &entities.BridgeTransaction{ID: id}, nil
}

type mockSlasher struct {
	slashed map[string]decimal.Decimal
	errFor  map[string]error
}

func newMockSlasher() *mockSlasher {
	return &mockSlasher{slashed: make(map[string]decimal.Decimal), errFor: make(map[string]error)}
}

func (m *mockSlasher) Slash(ctx context.Context, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := m.errFor[address]; err != nil {
		return decimal.Zero, err
	}
	m.slashed[address] = amount
	return amount, nil
}

type mockEvents struct{}

func (m *mockEvents) RecordChallengeOpened(ctx context.Context, challengeID uuid.UUID, txID, challenger, bond string) {
}

func (m *mockEvents) RecordChallengeResolved(ctx context.Context, challengeID uuid.UUID, txID string, valid bool, slashed string) {
}

func (m *mockEvents) Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{}) {
}

type mockGateway struct {
	deposits   []string
	payouts    []string
	depositErr error
}

func (m *mockGateway) Deposit(ctx context.Context, asset entities.AssetRef, from string, amount decimal.Decimal, chainID uint64) error {
	if m.depositErr != nil {
		return m.depositErr
	}
	m.deposits = append(m.deposits, from+":"+amount.String())
	return nil
}

func (m *mockGateway) Payout(ctx context.Context, asset entities.AssetRef, to string, amount decimal.Decimal, destChainID uint64) error {
	m.payouts = append(m.payouts, to+":"+amount.String())
	return nil
}

type challengeFixture struct {
	svc     *challenge.Service
	repo    *mockChallengeRepo
	ledger  *mockLedger
	slasher *mockSlasher
	gateway *mockGateway
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		repo:    newMockChallengeRepo(),
		ledger:  newMockLedger(),
		slasher: newMockSlasher(),
		gateway: &mockGateway{},
	}
	f.svc = challenge.NewService(f.repo, f.ledger, f.slasher, f.gateway, &mockEvents{}, challenge.Config{
		MinimumBond:         decimal.NewFromInt(100),
		ChallengeWindow:     24 * time.Hour,
		ChallengerRewardBps: 5000,
		BondAsset:           entities.AssetRef{Symbol: "BRG", Kind: entities.AssetKindNative},
		HomeChainID:         1,
	}, zap.NewNop())
	return f
}

func openRequest(bond string) *entities.OpenChallengeRequest {
	return &entities.OpenChallengeRequest{
		Challenger: "watcher",
		Bond:       bond,
		Evidence:   base64.StdEncoding.EncodeToString([]byte("fraud proof")),
	}
}

func TestOpen_FreezesTransaction(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", c.TransactionID)
	assert.False(t, c.Resolved)
	assert.Equal(t, []byte("fraud proof"), c.Evidence)

	deadline, ok := f.ledger.challenged["tx-1"]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), deadline, time.Minute)

	assert.True(t, f.svc.RewardPool().Equal(decimal.NewFromInt(500)))
}

func TestOpen_BondBelowMinimum(t *testing.T) {
	f := newChallengeFixture(t)

	_, err := f.svc.Open(context.Background(), "tx-1", openRequest("99"))
	assert.ErrorIs(t, err, domainerrors.ErrBondTooLow)
}

func TestOpen_SecondChallengeRejected(t *testing.T) {
	f := newChallengeFixture(t)

	_, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	_, err = f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	assert.ErrorIs(t, err, domainerrors.ErrChallengeActive)
}

func TestOpen_LedgerRejectsChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	f.ledger.markErr = domainerrors.NewDomainError(domainerrors.ErrAlreadyExecuted,
		"ALREADY_EXECUTED", "transaction already executed")

	_, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExecuted)
	assert.True(t, f.svc.RewardPool().IsZero())
}

func TestResolve_UpheldCancelsAndSlashes(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{
		Valid:             true,
		ValidatorsToSlash: []string{"val-1", "val-2"},
		SlashAmounts:      []string{"1000", "600"},
	})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.True(t, resolved.Valid)
	assert.True(t, resolved.SlashedAmount.Equal(decimal.NewFromInt(1600)))
	assert.Equal(t, []string{"tx-1"}, f.ledger.cancelled)
	assert.True(t, f.slasher.slashed["val-1"].Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.slasher.slashed["val-2"].Equal(decimal.NewFromInt(600)))

	// pool holds bond + slash, minus bond repayment and the 50% reward
	assert.True(t, f.svc.RewardPool().Equal(decimal.NewFromInt(800)), "got %s", f.svc.RewardPool())
}

func TestResolve_RejectedForfeitsBond(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{Valid: false})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.False(t, resolved.Valid)
	assert.Empty(t, f.ledger.cancelled)
	assert.Equal(t, []string{"tx-1"}, f.ledger.cleared)
	assert.True(t, f.svc.RewardPool().Equal(decimal.NewFromInt(500)))
}

func TestResolve_Twice(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{Valid: false})
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{Valid: true})
	assert.ErrorIs(t, err, domainerrors.ErrChallengeResolved)
	assert.Empty(t, f.ledger.cancelled)
}

func TestResolve_SlashFailureAbortsVerdict(t *testing.T) {
	f := newChallengeFixture(t)
	f.slasher.errFor["val-2"] = domainerrors.NewDomainError(domainerrors.ErrValidatorNotActive,
		"VALIDATOR_NOT_ACTIVE", "cannot slash an inactive validator")

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{
		Valid:             true,
		ValidatorsToSlash: []string{"val-1", "val-2"},
		SlashAmounts:      []string{"1000", "600"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidatorNotActive)

	// the verdict is not recorded; governance can resubmit
	stored, gerr := f.svc.Get(context.Background(), c.ID)
	require.NoError(t, gerr)
	assert.False(t, stored.Resolved)
	assert.Empty(t, f.gateway.payouts)

	// a corrected verdict still goes through
	f.slasher.errFor = map[string]error{}
	resolved, err := f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{
		Valid:             true,
		ValidatorsToSlash: []string{"val-1", "val-2"},
		SlashAmounts:      []string{"1000", "600"},
	})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.True(t, resolved.SlashedAmount.Equal(decimal.NewFromInt(1600)))
}

func TestOpen_PullsBondIntoCustody(t *testing.T) {
	f := newChallengeFixture(t)

	_, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)
	assert.Equal(t, []string{"watcher:500"}, f.gateway.deposits)
}

func TestOpen_BondPullFailureLiftsFreeze(t *testing.T) {
	f := newChallengeFixture(t)
	f.gateway.depositErr = domainerrors.ServiceUnavailableError("custody", nil)

	_, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.Error(t, err)
	assert.Equal(t, []string{"tx-1"}, f.ledger.cleared)
	assert.True(t, f.svc.RewardPool().IsZero())
}

func TestResolve_UpheldPaysBondAndReward(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{
		Valid:             true,
		ValidatorsToSlash: []string{"val-1"},
		SlashAmounts:      []string{"1600"},
	})
	require.NoError(t, err)

	// bond back plus 50% of the slashed stake
	assert.Equal(t, []string{"watcher:1300"}, f.gateway.payouts)
	assert.True(t, resolved.RewardPaid.Equal(decimal.NewFromInt(800)))
}

func TestResolve_RejectedPaysNothing(t *testing.T) {
	f := newChallengeFixture(t)

	c, err := f.svc.Open(context.Background(), "tx-1", openRequest("500"))
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), c.ID, &entities.ResolveChallengeRequest{Valid: false})
	require.NoError(t, err)
	assert.Empty(t, f.gateway.payouts)
}

func TestLoadRewardPool_RebuildsFromHistory(t *testing.T) {
	f := newChallengeFixture(t)

	// open (bond held), rejected (bond kept), upheld (slash net of payouts)
	resolvedAt := time.Now().UTC()
	f.repo.byID[uuid.New()] = &entities.Challenge{
		ID: uuid.New(), Bond: decimal.NewFromInt(500),
	}
	f.repo.byID[uuid.New()] = &entities.Challenge{
		ID: uuid.New(), Bond: decimal.NewFromInt(200),
		Resolved: true, ResolvedAt: &resolvedAt,
	}
	f.repo.byID[uuid.New()] = &entities.Challenge{
		ID: uuid.New(), Bond: decimal.NewFromInt(300),
		Resolved: true, Valid: true, ResolvedAt: &resolvedAt,
		SlashedAmount: decimal.NewFromInt(2000),
		RewardPaid:    decimal.NewFromInt(1000),
	}

	require.NoError(t, f.svc.LoadRewardPool(context.Background()))
	// 500 + 200 + (2000 - 300 - 1000)
	assert.True(t, f.svc.RewardPool().Equal(decimal.NewFromInt(1400)), "got %s", f.svc.RewardPool())
}
