package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
	"github.com/crosslane/bridge_service/pkg/metrics"
)

// RouteRegistry provides route lookups and daily cap accounting
type RouteRegistry interface {
	GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error)
	ReserveVolume(ctx context.Context, chainID uint64, amount decimal.Decimal) error
	ReleaseVolume(ctx context.Context, chainID uint64, amount decimal.Decimal, reservedAt time.Time) error
}

// QuorumVerifier checks an attestation bundle against the validator set
type QuorumVerifier interface {
	Verify(ctx context.Context, txID string, signatures, signers []string) (decimal.Decimal, error)
}

// AssetGateway moves custody of the bridged asset
type AssetGateway interface {
	Lock(ctx context.Context, tx *entities.BridgeTransaction) error
	Release(ctx context.Context, tx *entities.BridgeTransaction) error
	Refund(ctx context.Context, tx *entities.BridgeTransaction) error
}

// PauseGate reports whether value-moving operations are suspended
type PauseGate interface {
	Paused() bool
}

// EventRecorder publishes ledger state changes to the event log
type EventRecorder interface {
	RecordTxInitiated(ctx context.Context, txID, sender string, amount string, destChainID uint64)
	RecordTxExecuted(ctx context.Context, txID string, signerCount int)
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
}

// Config carries the ledger protocol parameters
type Config struct {
	SourceChainID uint64
	MaxDeadline   time.Duration
}

// Service is the bridge transaction ledger. Per-transaction mutation is
// serialized by a keyed mutex so double execution cannot race past the
// status checks.
type Service struct {
	repo    repositories.BridgeTransactionRepository
	routes  RouteRegistry
	quorum  QuorumVerifier
	assets  AssetGateway
	pause   PauseGate
	events  EventRecorder
	cfg     Config
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	volMu       sync.Mutex
	totalVolume decimal.Decimal
}

func NewService(
	repo repositories.BridgeTransactionRepository,
	routes RouteRegistry,
	quorum QuorumVerifier,
	assets AssetGateway,
	pause PauseGate,
	events EventRecorder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:        repo,
		routes:      routes,
		quorum:      quorum,
		assets:      assets,
		pause:       pause,
		events:      events,
		cfg:         cfg,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
		totalVolume: decimal.Zero,
	}
}

// LoadTotals rebuilds the bridged-volume aggregate from storage.
// Called once at startup before the service takes traffic.
func (s *Service) LoadTotals(ctx context.Context) error {
	total, err := s.repo.TotalVolume(ctx)
	if err != nil {
		return fmt.Errorf("load bridged volume: %w", err)
	}

	s.volMu.Lock()
	s.totalVolume = total
	s.volMu.Unlock()
	metrics.TotalBridgedVolume.Set(total.InexactFloat64())

	s.logger.Info("Bridged volume loaded", zap.String("total", total.String()))
	return nil
}

// TotalBridgedVolume returns the cumulative volume accepted by initiate,
// net of cancellations.
func (s *Service) TotalBridgedVolume() decimal.Decimal {
	s.volMu.Lock()
	defer s.volMu.Unlock()
	return s.totalVolume
}

func (s *Service) addVolume(amount decimal.Decimal) {
	s.volMu.Lock()
	s.totalVolume = s.totalVolume.Add(amount)
	if s.totalVolume.IsNegative() {
		s.totalVolume = decimal.Zero
	}
	metrics.TotalBridgedVolume.Set(s.totalVolume.InexactFloat64())
	s.volMu.Unlock()
}

func (s *Service) txLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Initiate starts a standard-path transfer: validates the route, counts
// the amount against the daily cap, locks custody of the asset and
// records the transaction under its deterministic ID.
func (s *Service) Initiate(ctx context.Context, req *entities.InitiateRequest) (*entities.BridgeTransaction, error) {
	if s.pause.Paused() {
		return nil, domainerrors.BridgePausedError()
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainerrors.ValidationError("amount", "amount must be a positive decimal")
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return nil, domainerrors.ValidationError("deadline", "deadline must be RFC3339")
	}
	now := time.Now().UTC()
	if !deadline.After(now) {
		return nil, domainerrors.ValidationError("deadline", "deadline must be in the future")
	}
	if s.cfg.MaxDeadline > 0 && deadline.After(now.Add(s.cfg.MaxDeadline)) {
		return nil, domainerrors.ValidationError("deadline", "deadline exceeds the maximum window")
	}

	route, err := s.routes.GetRoute(ctx, req.DestChainID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, domainerrors.ChainNotSupportedError(req.DestChainID)
		}
		return nil, err
	}
	if !route.Active {
		return nil, domainerrors.ChainNotSupportedError(req.DestChainID)
	}

	if err := s.routes.ReserveVolume(ctx, req.DestChainID, amount); err != nil {
		return nil, err
	}

	nonce, err := s.repo.NextNonce(ctx, req.Sender)
	if err != nil {
		s.routes.ReleaseVolume(ctx, req.DestChainID, amount, now)
		return nil, fmt.Errorf("next nonce: %w", err)
	}

	tx := &entities.BridgeTransaction{
		Sender:        req.Sender,
		Recipient:     req.Recipient,
		Asset:         req.Asset,
		Amount:        amount,
		SourceChainID: s.cfg.SourceChainID,
		DestChainID:   req.DestChainID,
		Nonce:         nonce,
		InitiatedAt:   now,
		Deadline:      deadline.UTC(),
		UpdatedAt:     now,
	}
	tx.ID = TransactionID(tx)

	if err := s.assets.Lock(ctx, tx); err != nil {
		s.routes.ReleaseVolume(ctx, req.DestChainID, amount, now)
		return nil, fmt.Errorf("lock asset: %w", err)
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		s.assets.Refund(ctx, tx)
		s.routes.ReleaseVolume(ctx, req.DestChainID, amount, now)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	metrics.TransactionsInitiated.WithLabelValues(route.Name).Inc()
	s.addVolume(amount)

	s.logger.Info("Transfer initiated",
		zap.String("tx_id", tx.ID),
		zap.String("sender", tx.Sender),
		zap.String("amount", tx.Amount.String()),
		zap.Uint64("dest_chain_id", tx.DestChainID))

	s.events.RecordTxInitiated(ctx, tx.ID, tx.Sender, tx.Amount.String(), tx.DestChainID)

	return tx, nil
}

// Execute releases a transfer on the destination side once the signature
// bundle reaches quorum. Execution is idempotent-hostile: a second call
// fails rather than silently succeeding.
func (s *Service) Execute(ctx context.Context, id string, req *entities.ExecuteRequest) (*entities.BridgeTransaction, error) {
	if s.pause.Paused() {
		return nil, domainerrors.BridgePausedError()
	}

	lock := s.txLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch tx.Status(now) {
	case entities.TxStatusExecuted:
		return nil, domainerrors.NewDomainError(domainerrors.ErrAlreadyExecuted,
			"ALREADY_EXECUTED", "transaction already executed")
	case entities.TxStatusCancelled:
		return nil, domainerrors.NewDomainError(domainerrors.ErrTransactionCancelled,
			"TRANSACTION_CANCELLED", "transaction was cancelled by arbitration")
	case entities.TxStatusChallenged:
		return nil, domainerrors.NewDomainError(domainerrors.ErrChallengeActive,
			"CHALLENGE_ACTIVE", "an unresolved challenge blocks execution")
	case entities.TxStatusExpired:
		return nil, domainerrors.NewDomainError(domainerrors.ErrTransactionExpired,
			"TRANSACTION_EXPIRED", "deadline passed before execution")
	}

	if _, err := s.quorum.Verify(ctx, tx.ID, req.Signatures, req.Signers); err != nil {
		return nil, err
	}

	// The executed flag is persisted before funds move. A retry after a
	// failed release then hits the ALREADY_EXECUTED check instead of
	// paying out twice; the stuck release is surfaced for reconciliation.
	executedAt := time.Now().UTC()
	tx.Executed = true
	tx.ExecutedAt = &executedAt
	tx.UpdatedAt = executedAt
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if err := s.assets.Release(ctx, tx); err != nil {
		s.logger.Error("Release failed after execution was recorded",
			zap.Error(err),
			zap.String("tx_id", tx.ID))
		s.events.Record(ctx, entities.EventTypeSettlementStuck, "relayer", tx.ID, map[string]interface{}{
			"amount": tx.Amount.String(),
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("release asset: %w", err)
	}

	route, rerr := s.routes.GetRoute(ctx, tx.DestChainID)
	if rerr == nil {
		metrics.TransactionsExecuted.WithLabelValues(route.Name).Inc()
	}

	s.logger.Info("Transfer executed",
		zap.String("tx_id", tx.ID),
		zap.Int("signers", len(req.Signers)))

	s.events.RecordTxExecuted(ctx, tx.ID, len(req.Signers))

	return tx, nil
}

// Get returns a transaction with its derived status
func (s *Service) Get(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	return s.repo.GetByID(ctx, id)
}

// ListBySender returns a sender's transfer history
func (s *Service) ListBySender(ctx context.Context, sender string, limit, offset int) ([]*entities.BridgeTransaction, error) {
	return s.repo.ListBySender(ctx, sender, limit, offset)
}

// ListPending returns unsettled transfers with deadlines before the cutoff
func (s *Service) ListPending(ctx context.Context, before time.Time) ([]*entities.BridgeTransaction, error) {
	return s.repo.ListPending(ctx, before)
}

// MarkChallenged freezes a transaction under an active challenge window.
// Called by the arbitration engine when a challenge opens.
func (s *Service) MarkChallenged(ctx context.Context, id string, challengeDeadline time.Time) (*entities.BridgeTransaction, error) {
	lock := s.txLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch tx.Status(now) {
	case entities.TxStatusExecuted:
		return nil, domainerrors.NewDomainError(domainerrors.ErrAlreadyExecuted,
			"ALREADY_EXECUTED", "cannot challenge an executed transaction")
	case entities.TxStatusCancelled:
		return nil, domainerrors.NewDomainError(domainerrors.ErrTransactionCancelled,
			"TRANSACTION_CANCELLED", "transaction was already cancelled")
	case entities.TxStatusChallenged:
		return nil, domainerrors.NewDomainError(domainerrors.ErrChallengeActive,
			"CHALLENGE_ACTIVE", "a challenge is already open")
	}

	dl := challengeDeadline.UTC()
	tx.Challenged = true
	tx.ChallengeDeadline = &dl
	tx.UpdatedAt = now
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("mark challenged: %w", err)
	}

	return tx, nil
}

// Cancel voids a transaction after a valid challenge, refunds the locked
// asset to the sender and returns the reserved daily volume.
func (s *Service) Cancel(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	lock := s.txLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Executed {
		return nil, domainerrors.NewDomainError(domainerrors.ErrAlreadyExecuted,
			"ALREADY_EXECUTED", "cannot cancel an executed transaction")
	}
	if tx.Cancelled {
		return tx, nil
	}

	if err := s.assets.Refund(ctx, tx); err != nil {
		return nil, fmt.Errorf("refund asset: %w", err)
	}

	now := time.Now().UTC()
	tx.Cancelled = true
	tx.Challenged = false
	tx.ChallengeDeadline = nil
	tx.UpdatedAt = now
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("cancel transaction: %w", err)
	}

	s.routes.ReleaseVolume(ctx, tx.DestChainID, tx.Amount, tx.InitiatedAt)
	s.addVolume(tx.Amount.Neg())

	s.events.Record(ctx, entities.EventTypeTxCancelled, "governance", tx.ID, map[string]interface{}{
		"amount": tx.Amount.String(),
	})

	return tx, nil
}

// ClearChallenge lifts the freeze after a challenge is rejected
func (s *Service) ClearChallenge(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	lock := s.txLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tx.Challenged = false
	tx.ChallengeDeadline = nil
	tx.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("clear challenge: %w", err)
	}

	return tx, nil
}

// TransactionID derives the deterministic identifier: a blake2b-256 digest
// over the length-framed transfer fields plus the sender nonce.
func TransactionID(tx *entities.BridgeTransaction) string {
	var buf bytes.Buffer
	writeField := func(s string) {
		binary.Write(&buf, binary.BigEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	writeField(tx.Sender)
	writeField(tx.Recipient)
	writeField(string(tx.Asset.Kind))
	writeField(tx.Asset.Symbol)
	writeField(tx.Amount.String())
	binary.Write(&buf, binary.BigEndian, tx.SourceChainID)
	binary.Write(&buf, binary.BigEndian, tx.DestChainID)
	binary.Write(&buf, binary.BigEndian, tx.Nonce)
	binary.Write(&buf, binary.BigEndian, tx.InitiatedAt.UTC().UnixNano())

	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
