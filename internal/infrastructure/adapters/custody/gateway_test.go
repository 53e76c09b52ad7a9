package custody

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
)

type fakeTransferAPI struct {
	calls []string
	last  *TransferRequest
	err   error
}

func (f *fakeTransferAPI) record(op string, req *TransferRequest) (*TransferResponse, error) {
	f.calls = append(f.calls, op)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &TransferResponse{Reference: req.Reference, Status: "confirmed"}, nil
}

func (f *fakeTransferAPI) Escrow(_ context.Context, req *TransferRequest) (*TransferResponse, error) {
	return f.record("escrow", req)
}

func (f *fakeTransferAPI) ReleaseEscrow(_ context.Context, req *TransferRequest) (*TransferResponse, error) {
	return f.record("release_escrow", req)
}

func (f *fakeTransferAPI) RefundEscrow(_ context.Context, req *TransferRequest) (*TransferResponse, error) {
	return f.record("refund_escrow", req)
}

func (f *fakeTransferAPI) Burn(_ context.Context, req *TransferRequest) (*TransferResponse, error) {
	return f.record("burn", req)
}

func (f *fakeTransferAPI) Mint(_ context.Context, req *TransferRequest) (*TransferResponse, error) {
	return f.record("mint", req)
}

func bridgeTx(kind entities.AssetKind) *entities.BridgeTransaction {
	return &entities.BridgeTransaction{
		ID:            "abc123",
		Sender:        "alice",
		Recipient:     "bob",
		Asset:         entities.AssetRef{Symbol: "USDC", Kind: kind},
		Amount:        decimal.NewFromInt(250),
		SourceChainID: 1,
		DestChainID:   137,
	}
}

func TestGatewayNativeFlow(t *testing.T) {
	api := &fakeTransferAPI{}
	gw := &Gateway{client: api, logger: zap.NewNop()}
	ctx := context.Background()
	tx := bridgeTx(entities.AssetKindNative)

	require.NoError(t, gw.Lock(ctx, tx))
	require.NoError(t, gw.Release(ctx, tx))
	require.NoError(t, gw.Refund(ctx, tx))

	assert.Equal(t, []string{"escrow", "release_escrow", "refund_escrow"}, api.calls)
}

func TestGatewayWrappedFlow(t *testing.T) {
	api := &fakeTransferAPI{}
	gw := &Gateway{client: api, logger: zap.NewNop()}
	ctx := context.Background()
	tx := bridgeTx(entities.AssetKindWrapped)

	require.NoError(t, gw.Lock(ctx, tx))
	require.NoError(t, gw.Release(ctx, tx))
	require.NoError(t, gw.Refund(ctx, tx))

	assert.Equal(t, []string{"burn", "mint", "mint"}, api.calls)
}

func TestGatewayReferencesDistinguishPhases(t *testing.T) {
	api := &fakeTransferAPI{}
	gw := &Gateway{client: api, logger: zap.NewNop()}
	ctx := context.Background()
	tx := bridgeTx(entities.AssetKindNative)

	require.NoError(t, gw.Lock(ctx, tx))
	assert.Equal(t, "abc123:lock", api.last.Reference)
	assert.Equal(t, "alice", api.last.Account)

	require.NoError(t, gw.Release(ctx, tx))
	assert.Equal(t, "abc123:release", api.last.Reference)
	assert.Equal(t, "bob", api.last.Account)

	require.NoError(t, gw.Refund(ctx, tx))
	assert.Equal(t, "abc123:refund", api.last.Reference)
	assert.Equal(t, tx.SourceChainID, api.last.DestChainID)
}

func TestGatewayPoolDepositAndPayout(t *testing.T) {
	api := &fakeTransferAPI{}
	gw := &Gateway{client: api, logger: zap.NewNop()}
	ctx := context.Background()
	asset := entities.AssetRef{Symbol: "USDC", Kind: entities.AssetKindNative}

	require.NoError(t, gw.Deposit(ctx, asset, "lp-1", decimal.NewFromInt(500), 1))
	assert.Equal(t, "lp-1", api.last.Account)
	assert.Equal(t, uint64(1), api.last.SourceChainID)

	require.NoError(t, gw.Payout(ctx, asset, "bob", decimal.NewFromInt(100), 137))
	assert.Equal(t, "bob", api.last.Account)
	assert.Equal(t, uint64(137), api.last.DestChainID)

	assert.Equal(t, []string{"escrow", "release_escrow"}, api.calls)

	wrapped := entities.AssetRef{Symbol: "wETH", Kind: entities.AssetKindWrapped}
	require.NoError(t, gw.Deposit(ctx, wrapped, "lp-1", decimal.NewFromInt(10), 1))
	require.NoError(t, gw.Payout(ctx, wrapped, "bob", decimal.NewFromInt(5), 137))
	assert.Equal(t, []string{"escrow", "release_escrow", "burn", "mint"}, api.calls)
}

func TestGatewayRejectsUnknownKind(t *testing.T) {
	gw := &Gateway{client: &fakeTransferAPI{}, logger: zap.NewNop()}
	tx := bridgeTx(entities.AssetKind("synthetic"))

	assert.Error(t, gw.Lock(context.Background(), tx))
	assert.Error(t, gw.Release(context.Background(), tx))
	assert.Error(t, gw.Refund(context.Background(), tx))
}
