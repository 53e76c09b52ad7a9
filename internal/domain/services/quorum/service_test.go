package quorum_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/services/quorum"
)

type mockValidatorSet struct {
	validators map[string]*entities.Validator
	total      decimal.Decimal
}

func (m *mockValidatorSet) GetValidator(ctx context.Context, address string) (*entities.Validator, error) {
	v, ok := m.validators[address]
	if !ok {
		return nil, domainerrors.NotFoundError("validator")
	}
	return v, nil
}

func (m *mockValidatorSet) TotalVotingPower() decimal.Decimal {
	return m.total
}

// three equal validators, 67% threshold: two signers fall just short,
// three clear it
func equalPowerSet() *mockValidatorSet {
	set := &mockValidatorSet{
		validators: make(map[string]*entities.Validator),
		total:      decimal.NewFromInt(30),
	}
	for _, addr := range []string{"val-1", "val-2", "val-3"} {
		set.validators[addr] = &entities.Validator{
			Address:     addr,
			Active:      true,
			VotingPower: decimal.NewFromInt(10),
		}
	}
	return set
}

func newQuorumService(set *mockValidatorSet) *quorum.Service {
	return quorum.NewService(set, quorum.Config{ThresholdBps: 6700, MinSignatures: 1}, zap.NewNop())
}

func signedBundle(txID string, signers ...string) ([]string, []string) {
	sigs := make([]string, len(signers))
	for i, s := range signers {
		sigs[i] = quorum.Attest(txID, s)
	}
	return sigs, signers
}

func TestVerify_QuorumReached(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	sigs, signers := signedBundle("tx-abc", "val-1", "val-2", "val-3")
	collected, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	require.NoError(t, err)
	assert.True(t, collected.Equal(decimal.NewFromInt(30)))
}

func TestVerify_TwoOfThreeFallsShort(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	sigs, signers := signedBundle("tx-abc", "val-1", "val-2")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	assert.ErrorIs(t, err, domainerrors.ErrQuorumNotReached)
}

func TestVerify_DuplicateSignerCountsOnce(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	sigs, signers := signedBundle("tx-abc", "val-1", "val-1", "val-1")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	assert.ErrorIs(t, err, domainerrors.ErrQuorumNotReached)
}

func TestVerify_InvalidSignatureRejected(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	sigs, signers := signedBundle("tx-abc", "val-1", "val-2", "val-3")
	sigs[1] = quorum.Attest("tx-other", "val-2")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
}

func TestVerify_UnknownSignerRejectsBundle(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	sigs, signers := signedBundle("tx-abc", "val-1", "val-2", "stranger")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
}

func TestVerify_InactiveSignerRejectsBundle(t *testing.T) {
	set := equalPowerSet()
	set.validators["val-3"].Active = false
	svc := newQuorumService(set)

	sigs, signers := signedBundle("tx-abc", "val-1", "val-2", "val-3")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidatorNotActive)
}

func TestVerify_BelowMinimumSignerCount(t *testing.T) {
	// one whale past the power threshold still cannot execute alone
	set := &mockValidatorSet{
		validators: map[string]*entities.Validator{
			"whale": {Address: "whale", Active: true, VotingPower: decimal.NewFromInt(90)},
		},
		total: decimal.NewFromInt(100),
	}
	svc := quorum.NewService(set, quorum.Config{ThresholdBps: 6700, MinSignatures: 2}, zap.NewNop())

	sigs, signers := signedBundle("tx-abc", "whale")
	_, err := svc.Verify(context.Background(), "tx-abc", sigs, signers)
	assert.ErrorIs(t, err, domainerrors.ErrQuorumNotReached)

	// duplicates do not raise the distinct-signer count
	sigs, signers = signedBundle("tx-abc", "whale", "whale")
	_, err = svc.Verify(context.Background(), "tx-abc", sigs, signers)
	assert.ErrorIs(t, err, domainerrors.ErrQuorumNotReached)
}

func TestVerify_MismatchedBundle(t *testing.T) {
	svc := newQuorumService(equalPowerSet())

	_, err := svc.Verify(context.Background(), "tx-abc", []string{"sig"}, []string{"val-1", "val-2"})
	assert.True(t, domainerrors.IsInvalidInput(err))
}

func TestVerify_EmptyValidatorSet(t *testing.T) {
	svc := newQuorumService(&mockValidatorSet{
		validators: map[string]*entities.Validator{},
		total:      decimal.Zero,
	})

	_, err := svc.Verify(context.Background(), "tx-abc", nil, nil)
	assert.ErrorIs(t, err, domainerrors.ErrQuorumNotReached)
}

func TestAttest_Deterministic(t *testing.T) {
	a := quorum.Attest("tx-abc", "val-1")
	b := quorum.Attest("tx-abc", "val-1")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, quorum.Attest("tx-abc", "val-2"))
	assert.NotEqual(t, a, quorum.Attest("tx-def", "val-1"))
	assert.Len(t, a, 64)
}
