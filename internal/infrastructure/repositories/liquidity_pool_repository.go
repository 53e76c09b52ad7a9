package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

type LiquidityPoolRepository struct {
	db *sqlx.DB
}

func NewLiquidityPoolRepository(db *sqlx.DB) *LiquidityPoolRepository {
	return &LiquidityPoolRepository{db: db}
}

func (r *LiquidityPoolRepository) CreatePool(ctx context.Context, pool *entities.LiquidityPool) error {
	query := `
		INSERT INTO liquidity_pools (asset_symbol, asset_kind, source_balance, dest_balance, total_liquidity, fee_bps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		pool.Asset.Symbol, pool.Asset.Kind, pool.SourceBalance, pool.DestBalance,
		pool.TotalLiquidity, pool.FeeBps, pool.CreatedAt, pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create liquidity pool: %w", err)
	}
	return nil
}

func scanPool(scan func(...interface{}) error) (*entities.LiquidityPool, error) {
	var pool entities.LiquidityPool
	err := scan(
		&pool.Asset.Symbol, &pool.Asset.Kind, &pool.SourceBalance, &pool.DestBalance,
		&pool.TotalLiquidity, &pool.FeeBps, &pool.CreatedAt, &pool.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *LiquidityPoolRepository) GetPool(ctx context.Context, asset entities.AssetRef) (*entities.LiquidityPool, error) {
	query := `
		SELECT asset_symbol, asset_kind, source_balance, dest_balance, total_liquidity, fee_bps, created_at, updated_at
		FROM liquidity_pools WHERE asset_symbol = $1 AND asset_kind = $2
	`
	row := r.db.QueryRowContext(ctx, query, asset.Symbol, asset.Kind)
	pool, err := scanPool(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("liquidity_pool")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get liquidity pool: %w", err)
	}
	return pool, nil
}

func (r *LiquidityPoolRepository) ListPools(ctx context.Context) ([]*entities.LiquidityPool, error) {
	query := `
		SELECT asset_symbol, asset_kind, source_balance, dest_balance, total_liquidity, fee_bps, created_at, updated_at
		FROM liquidity_pools ORDER BY asset_symbol
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list liquidity pools: %w", err)
	}
	defer rows.Close()

	var pools []*entities.LiquidityPool
	for rows.Next() {
		pool, err := scanPool(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liquidity pool: %w", err)
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

func (r *LiquidityPoolRepository) UpdatePool(ctx context.Context, pool *entities.LiquidityPool) error {
	query := `
		UPDATE liquidity_pools
		SET source_balance = $3, dest_balance = $4, total_liquidity = $5, fee_bps = $6, updated_at = $7
		WHERE asset_symbol = $1 AND asset_kind = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		pool.Asset.Symbol, pool.Asset.Kind, pool.SourceBalance, pool.DestBalance,
		pool.TotalLiquidity, pool.FeeBps, pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update liquidity pool: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("liquidity_pool")
	}
	return nil
}

func (r *LiquidityPoolRepository) UpsertPosition(ctx context.Context, position *entities.PoolPosition) error {
	query := `
		INSERT INTO pool_positions (asset_symbol, asset_kind, provider, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_symbol, asset_kind, provider)
		DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		position.Asset.Symbol, position.Asset.Kind, position.Provider, position.Balance, position.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pool position: %w", err)
	}
	return nil
}

func (r *LiquidityPoolRepository) GetPosition(ctx context.Context, asset entities.AssetRef, provider string) (*entities.PoolPosition, error) {
	query := `
		SELECT asset_symbol, asset_kind, provider, balance, updated_at
		FROM pool_positions WHERE asset_symbol = $1 AND asset_kind = $2 AND provider = $3
	`
	var position entities.PoolPosition
	err := r.db.QueryRowContext(ctx, query, asset.Symbol, asset.Kind, provider).Scan(
		&position.Asset.Symbol, &position.Asset.Kind, &position.Provider, &position.Balance, &position.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("pool_position")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool position: %w", err)
	}
	return &position, nil
}

func (r *LiquidityPoolRepository) CountProviders(ctx context.Context, asset entities.AssetRef) (int, error) {
	query := `SELECT COUNT(*) FROM pool_positions WHERE asset_symbol = $1 AND asset_kind = $2 AND balance > 0`

	var count int
	if err := r.db.QueryRowContext(ctx, query, asset.Symbol, asset.Kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}
