package custody

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
)

// transferAPI is the subset of the custody client the gateway needs
type transferAPI interface {
	Escrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
	ReleaseEscrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
	RefundEscrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
	Burn(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
	Mint(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
}

// Gateway moves custody of bridged assets. Native assets are held in
// escrow on the source chain and paid out on execution; wrapped assets
// are burned on the source chain and minted on the destination.
type Gateway struct {
	client transferAPI
	logger *zap.Logger
}

func NewGateway(client *Client, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// Lock takes custody of the transfer amount on the source chain
func (g *Gateway) Lock(ctx context.Context, tx *entities.BridgeTransaction) error {
	req := transferRequest(tx, "lock")
	req.Account = tx.Sender

	var err error
	switch tx.Asset.Kind {
	case entities.AssetKindNative:
		_, err = g.client.Escrow(ctx, req)
	case entities.AssetKindWrapped:
		_, err = g.client.Burn(ctx, req)
	default:
		return fmt.Errorf("unknown asset kind %q", tx.Asset.Kind)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", tx.Asset.Kind, err)
	}

	g.logger.Info("asset locked",
		zap.String("transaction_id", tx.ID),
		zap.String("asset", tx.Asset.Symbol),
		zap.String("kind", string(tx.Asset.Kind)),
		zap.String("amount", tx.Amount.String()))
	return nil
}

// Release pays out the locked amount to the recipient on the destination chain
func (g *Gateway) Release(ctx context.Context, tx *entities.BridgeTransaction) error {
	req := transferRequest(tx, "release")
	req.Account = tx.Recipient

	var err error
	switch tx.Asset.Kind {
	case entities.AssetKindNative:
		_, err = g.client.ReleaseEscrow(ctx, req)
	case entities.AssetKindWrapped:
		_, err = g.client.Mint(ctx, req)
	default:
		return fmt.Errorf("unknown asset kind %q", tx.Asset.Kind)
	}
	if err != nil {
		return fmt.Errorf("release %s: %w", tx.Asset.Kind, err)
	}

	g.logger.Info("asset released",
		zap.String("transaction_id", tx.ID),
		zap.String("recipient", tx.Recipient),
		zap.String("amount", tx.Amount.String()))
	return nil
}

// Refund returns the locked amount to the sender on the source chain
func (g *Gateway) Refund(ctx context.Context, tx *entities.BridgeTransaction) error {
	req := transferRequest(tx, "refund")
	req.Account = tx.Sender
	// Refunds land back on the source chain regardless of the route
	req.DestChainID = tx.SourceChainID

	var err error
	switch tx.Asset.Kind {
	case entities.AssetKindNative:
		_, err = g.client.RefundEscrow(ctx, req)
	case entities.AssetKindWrapped:
		_, err = g.client.Mint(ctx, req)
	default:
		return fmt.Errorf("unknown asset kind %q", tx.Asset.Kind)
	}
	if err != nil {
		return fmt.Errorf("refund %s: %w", tx.Asset.Kind, err)
	}

	g.logger.Info("asset refunded",
		zap.String("transaction_id", tx.ID),
		zap.String("sender", tx.Sender),
		zap.String("amount", tx.Amount.String()))
	return nil
}

// Deposit takes custody of pooled funds contributed on the given chain
func (g *Gateway) Deposit(ctx context.Context, asset entities.AssetRef, from string, amount decimal.Decimal, chainID uint64) error {
	req := &TransferRequest{
		Reference:     fmt.Sprintf("pool:%s:%s", asset.Symbol, uuid.NewString()),
		Account:       from,
		AssetSymbol:   asset.Symbol,
		Amount:        amount.String(),
		SourceChainID: chainID,
		DestChainID:   chainID,
	}

	var err error
	switch asset.Kind {
	case entities.AssetKindNative:
		_, err = g.client.Escrow(ctx, req)
	case entities.AssetKindWrapped:
		_, err = g.client.Burn(ctx, req)
	default:
		return fmt.Errorf("unknown asset kind %q", asset.Kind)
	}
	if err != nil {
		return fmt.Errorf("deposit %s: %w", asset.Kind, err)
	}

	g.logger.Info("pool deposit taken",
		zap.String("asset", asset.Symbol),
		zap.String("from", from),
		zap.String("amount", amount.String()))
	return nil
}

// Payout releases pooled funds to an account on the destination chain
func (g *Gateway) Payout(ctx context.Context, asset entities.AssetRef, to string, amount decimal.Decimal, destChainID uint64) error {
	req := &TransferRequest{
		Reference:     fmt.Sprintf("pool:%s:%s", asset.Symbol, uuid.NewString()),
		Account:       to,
		Counterparty:  to,
		AssetSymbol:   asset.Symbol,
		Amount:        amount.String(),
		SourceChainID: destChainID,
		DestChainID:   destChainID,
	}

	var err error
	switch asset.Kind {
	case entities.AssetKindNative:
		_, err = g.client.ReleaseEscrow(ctx, req)
	case entities.AssetKindWrapped:
		_, err = g.client.Mint(ctx, req)
	default:
		return fmt.Errorf("unknown asset kind %q", asset.Kind)
	}
	if err != nil {
		return fmt.Errorf("payout %s: %w", asset.Kind, err)
	}

	g.logger.Info("pool payout released",
		zap.String("asset", asset.Symbol),
		zap.String("to", to),
		zap.String("amount", amount.String()),
		zap.Uint64("dest_chain_id", destChainID))
	return nil
}

func transferRequest(tx *entities.BridgeTransaction, phase string) *TransferRequest {
	return &TransferRequest{
		Reference:     fmt.Sprintf("%s:%s", tx.ID, phase),
		Counterparty:  tx.Recipient,
		AssetSymbol:   tx.Asset.Symbol,
		Amount:        tx.Amount.String(),
		SourceChainID: tx.SourceChainID,
		DestChainID:   tx.DestChainID,
	}
}
