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

type BridgeTransactionRepository struct {
	db *sqlx.DB
}

func NewBridgeTransactionRepository(db *sqlx.DB) *BridgeTransactionRepository {
	return &BridgeTransactionRepository{db: db}
}

const bridgeTxColumns = `id, sender, recipient, asset_symbol, asset_kind, amount, source_chain_id, dest_chain_id,
	nonce, initiated_at, deadline, executed, executed_at, challenged, challenge_deadline, cancelled, updated_at`

func (r *BridgeTransactionRepository) Create(ctx context.Context, tx *entities.BridgeTransaction) error {
	query := `
		INSERT INTO bridge_transactions (` + bridgeTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Sender, tx.Recipient, tx.Asset.Symbol, tx.Asset.Kind, tx.Amount,
		tx.SourceChainID, tx.DestChainID, tx.Nonce, tx.InitiatedAt, tx.Deadline,
		tx.Executed, tx.ExecutedAt, tx.Challenged, tx.ChallengeDeadline, tx.Cancelled, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bridge transaction: %w", err)
	}
	return nil
}

func scanBridgeTx(scan func(...interface{}) error) (*entities.BridgeTransaction, error) {
	var tx entities.BridgeTransaction
	err := scan(
		&tx.ID, &tx.Sender, &tx.Recipient, &tx.Asset.Symbol, &tx.Asset.Kind, &tx.Amount,
		&tx.SourceChainID, &tx.DestChainID, &tx.Nonce, &tx.InitiatedAt, &tx.Deadline,
		&tx.Executed, &tx.ExecutedAt, &tx.Challenged, &tx.ChallengeDeadline, &tx.Cancelled, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *BridgeTransactionRepository) GetByID(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	query := `SELECT ` + bridgeTxColumns + ` FROM bridge_transactions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	tx, err := scanBridgeTx(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("bridge_transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bridge transaction: %w", err)
	}
	return tx, nil
}

func (r *BridgeTransactionRepository) Update(ctx context.Context, tx *entities.BridgeTransaction) error {
	query := `
		UPDATE bridge_transactions
		SET executed = $2, executed_at = $3, challenged = $4, challenge_deadline = $5, cancelled = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Executed, tx.ExecutedAt, tx.Challenged, tx.ChallengeDeadline, tx.Cancelled, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bridge transaction: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domainerrors.NotFoundError("bridge_transaction")
	}
	return nil
}

func (r *BridgeTransactionRepository) ListBySender(ctx context.Context, sender string, limit, offset int) ([]*entities.BridgeTransaction, error) {
	query := `SELECT ` + bridgeTxColumns + ` FROM bridge_transactions
		WHERE sender = $1 ORDER BY initiated_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, sender, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bridge transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entities.BridgeTransaction
	for rows.Next() {
		tx, err := scanBridgeTx(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bridge transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *BridgeTransactionRepository) ListPending(ctx context.Context, before time.Time) ([]*entities.BridgeTransaction, error) {
	query := `SELECT ` + bridgeTxColumns + ` FROM bridge_transactions
		WHERE executed = false AND cancelled = false AND deadline < $1
		ORDER BY deadline`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entities.BridgeTransaction
	for rows.Next() {
		tx, err := scanBridgeTx(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bridge transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// TotalVolume sums the amount of every non-cancelled transaction
func (r *BridgeTransactionRepository) TotalVolume(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM bridge_transactions WHERE cancelled = false`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum bridged volume: %w", err)
	}
	return total, nil
}

// NextNonce atomically advances and returns the sender's nonce
func (r *BridgeTransactionRepository) NextNonce(ctx context.Context, sender string) (uint64, error) {
	query := `
		INSERT INTO bridge_nonces (sender, nonce) VALUES ($1, 1)
		ON CONFLICT (sender) DO UPDATE SET nonce = bridge_nonces.nonce + 1
		RETURNING nonce
	`
	var nonce uint64
	if err := r.db.QueryRowContext(ctx, query, sender).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("failed to advance nonce: %w", err)
	}
	return nonce, nil
}
