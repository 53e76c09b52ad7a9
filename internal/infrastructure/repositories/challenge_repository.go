package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

type ChallengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

const challengeColumns = `id, transaction_id, challenger, bond, evidence, submitted_at, resolved, valid, slashed_amount, reward_paid, resolved_at`

func (r *ChallengeRepository) Create(ctx context.Context, c *entities.Challenge) error {
	query := `
		INSERT INTO challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.TransactionID, c.Challenger, c.Bond, c.Evidence,
		c.SubmittedAt, c.Resolved, c.Valid, c.SlashedAmount, c.RewardPaid, c.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	var c entities.Challenge
	err := r.db.GetContext(ctx, &c, query, id)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("challenge")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &c, nil
}

func (r *ChallengeRepository) GetOpenByTransactionID(ctx context.Context, txID string) (*entities.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges
		WHERE transaction_id = $1 AND resolved = false`

	var c entities.Challenge
	err := r.db.GetContext(ctx, &c, query, txID)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("challenge")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open challenge: %w", err)
	}
	return &c, nil
}

func (r *ChallengeRepository) Update(ctx context.Context, c *entities.Challenge) error {
	query := `
		UPDATE challenges
		SET resolved = $2, valid = $3, slashed_amount = $4, reward_paid = $5, resolved_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, c.ID, c.Resolved, c.Valid, c.SlashedAmount, c.RewardPaid, c.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("challenge")
	}
	return nil
}

// RewardPoolTotal derives the pool balance from the challenge history:
// open and rejected challenges hold their bond, upheld ones contribute
// the slashed stake net of the bond repayment and the reward paid out.
func (r *ChallengeRepository) RewardPoolTotal(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE
				WHEN NOT resolved THEN bond
				WHEN NOT valid THEN bond
				ELSE slashed_amount - bond - reward_paid
			END
		), 0) FROM challenges
	`
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum reward pool: %w", err)
	}
	return total, nil
}

func (r *ChallengeRepository) List(ctx context.Context, resolved *bool, limit, offset int) ([]*entities.Challenge, error) {
	var sb strings.Builder
	var args []interface{}
	argIdx := 1

	sb.WriteString(`SELECT ` + challengeColumns + ` FROM challenges WHERE 1=1`)

	if resolved != nil {
		sb.WriteString(fmt.Sprintf(" AND resolved = $%d", argIdx))
		args = append(args, *resolved)
		argIdx++
	}

	sb.WriteString(" ORDER BY submitted_at DESC")

	if limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argIdx))
		args = append(args, limit)
		argIdx++
	}
	if offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", argIdx))
		args = append(args, offset)
	}

	var challenges []*entities.Challenge
	if err := r.db.SelectContext(ctx, &challenges, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}
