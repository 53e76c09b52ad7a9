package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

type ChainRouteRepository struct {
	db *sqlx.DB
}

func NewChainRouteRepository(db *sqlx.DB) *ChainRouteRepository {
	return &ChainRouteRepository{db: db}
}

func (r *ChainRouteRepository) Create(ctx context.Context, route *entities.ChainRoute) error {
	query := `
		INSERT INTO chain_routes (chain_id, name, bridge_endpoint, block_time_seconds, required_confirmations,
			active, daily_limit, daily_volume, volume_reset_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		route.ChainID, route.Name, route.BridgeEndpoint, route.BlockTimeSeconds, route.RequiredConfirmations,
		route.Active, route.DailyLimit, route.DailyVolume, route.VolumeResetAt, route.CreatedAt, route.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chain route: %w", err)
	}
	return nil
}

func (r *ChainRouteRepository) GetByChainID(ctx context.Context, chainID uint64) (*entities.ChainRoute, error) {
	query := `
		SELECT chain_id, name, bridge_endpoint, block_time_seconds, required_confirmations,
			active, daily_limit, daily_volume, volume_reset_at, created_at, updated_at
		FROM chain_routes WHERE chain_id = $1
	`
	var route entities.ChainRoute
	err := r.db.GetContext(ctx, &route, query, chainID)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("chain_route")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain route: %w", err)
	}
	return &route, nil
}

func (r *ChainRouteRepository) List(ctx context.Context, activeOnly bool) ([]*entities.ChainRoute, error) {
	query := `
		SELECT chain_id, name, bridge_endpoint, block_time_seconds, required_confirmations,
			active, daily_limit, daily_volume, volume_reset_at, created_at, updated_at
		FROM chain_routes
	`
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY chain_id"

	var routes []*entities.ChainRoute
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("failed to list chain routes: %w", err)
	}
	return routes, nil
}

func (r *ChainRouteRepository) Update(ctx context.Context, route *entities.ChainRoute) error {
	query := `
		UPDATE chain_routes
		SET name = $2, bridge_endpoint = $3, block_time_seconds = $4, required_confirmations = $5,
			active = $6, daily_limit = $7, daily_volume = $8, volume_reset_at = $9, updated_at = $10
		WHERE chain_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		route.ChainID, route.Name, route.BridgeEndpoint, route.BlockTimeSeconds, route.RequiredConfirmations,
		route.Active, route.DailyLimit, route.DailyVolume, route.VolumeResetAt, route.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update chain route: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("chain_route")
	}
	return nil
}

func (r *ChainRouteRepository) AddDailyVolume(ctx context.Context, chainID uint64, amount decimal.Decimal, resetAt time.Time) error {
	query := `
		UPDATE chain_routes
		SET daily_volume = daily_volume + $2, volume_reset_at = $3, updated_at = NOW()
		WHERE chain_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, chainID, amount, resetAt)
	if err != nil {
		return fmt.Errorf("failed to add daily volume: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("chain_route")
	}
	return nil
}
