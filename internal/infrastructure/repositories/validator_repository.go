package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

type ValidatorRepository struct {
	db *sqlx.DB
}

func NewValidatorRepository(db *sqlx.DB) *ValidatorRepository {
	return &ValidatorRepository{db: db}
}

func (r *ValidatorRepository) Create(ctx context.Context, v *entities.Validator) error {
	query := `
		INSERT INTO validators (address, stake, voting_power, reputation, active, joined_at, last_active_at, slashed_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.Address, v.Stake, v.VotingPower, v.Reputation, v.Active, v.JoinedAt, v.LastActiveAt, v.SlashedTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}
	return nil
}

func (r *ValidatorRepository) GetByAddress(ctx context.Context, address string) (*entities.Validator, error) {
	query := `
		SELECT address, stake, voting_power, reputation, active, joined_at, last_active_at, slashed_total
		FROM validators WHERE address = $1
	`
	var v entities.Validator
	err := r.db.GetContext(ctx, &v, query, address)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("validator")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validator: %w", err)
	}
	return &v, nil
}

func (r *ValidatorRepository) ListActive(ctx context.Context) ([]*entities.Validator, error) {
	query := `
		SELECT address, stake, voting_power, reputation, active, joined_at, last_active_at, slashed_total
		FROM validators WHERE active = true ORDER BY joined_at
	`
	var validators []*entities.Validator
	if err := r.db.SelectContext(ctx, &validators, query); err != nil {
		return nil, fmt.Errorf("failed to list active validators: %w", err)
	}
	return validators, nil
}

func (r *ValidatorRepository) Update(ctx context.Context, v *entities.Validator) error {
	query := `
		UPDATE validators
		SET stake = $2, voting_power = $3, reputation = $4, active = $5, last_active_at = $6, slashed_total = $7
		WHERE address = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		v.Address, v.Stake, v.VotingPower, v.Reputation, v.Active, v.LastActiveAt, v.SlashedTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to update validator: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("validator")
	}
	return nil
}
