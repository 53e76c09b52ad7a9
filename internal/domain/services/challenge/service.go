package challenge

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
	"github.com/crosslane/bridge_service/pkg/metrics"
)

// Ledger exposes the transaction operations arbitration needs
type Ledger interface {
	MarkChallenged(ctx context.Context, id string, challengeDeadline time.Time) (*entities.BridgeTransaction, error)
	Cancel(ctx context.Context, id string) (*entities.BridgeTransaction, error)
	ClearChallenge(ctx context.Context, id string) (*entities.BridgeTransaction, error)
}

// StakeSlasher penalizes validator stake. Wired from the validator set's
// slashing capability; no other component holds one.
type StakeSlasher interface {
	Slash(ctx context.Context, address string, amount decimal.Decimal) (decimal.Decimal, error)
}

// EventRecorder publishes arbitration outcomes to the event log
type EventRecorder interface {
	RecordChallengeOpened(ctx context.Context, challengeID uuid.UUID, txID, challenger, bond string)
	RecordChallengeResolved(ctx context.Context, challengeID uuid.UUID, txID string, valid bool, slashed string)
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
}

// FundsGateway holds bond custody. The bond is pulled from the challenger
// when a challenge opens and paid back, plus the reward, on an upheld
// verdict. A failed pull aborts the open.
type FundsGateway interface {
	Deposit(ctx context.Context, asset entities.AssetRef, from string, amount decimal.Decimal, chainID uint64) error
	Payout(ctx context.Context, asset entities.AssetRef, to string, amount decimal.Decimal, destChainID uint64) error
}

// Config carries the arbitration protocol parameters
type Config struct {
	MinimumBond         decimal.Decimal
	ChallengeWindow     time.Duration
	ChallengerRewardBps int64
	// BondAsset denominates bonds, stake penalties and rewards.
	BondAsset   entities.AssetRef
	HomeChainID uint64
}

// Service is the arbitration engine: it opens challenges against pending
// transfers and applies governance verdicts. The reward pool aggregate is
// owned by the service and mutated only under its mutex.
type Service struct {
	repo    repositories.ChallengeRepository
	ledger  Ledger
	slasher StakeSlasher
	gateway FundsGateway
	events  EventRecorder
	cfg     Config
	logger  *zap.Logger

	mu         sync.Mutex
	rewardPool decimal.Decimal
}

func NewService(
	repo repositories.ChallengeRepository,
	ledger Ledger,
	slasher StakeSlasher,
	gateway FundsGateway,
	events EventRecorder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		slasher:    slasher,
		gateway:    gateway,
		events:     events,
		cfg:        cfg,
		logger:     logger,
		rewardPool: decimal.Zero,
	}
}

// LoadRewardPool rebuilds the reward pool aggregate from the challenge
// history. Called once at startup before the service takes traffic.
func (s *Service) LoadRewardPool(ctx context.Context) error {
	total, err := s.repo.RewardPoolTotal(ctx)
	if err != nil {
		return fmt.Errorf("load reward pool: %w", err)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}

	s.mu.Lock()
	s.rewardPool = total
	s.mu.Unlock()

	s.logger.Info("Reward pool loaded", zap.String("total", total.String()))
	return nil
}

// Open stakes a bond against a pending transfer. The transaction is frozen
// for the challenge window; a transfer can carry at most one open challenge.
func (s *Service) Open(ctx context.Context, txID string, req *entities.OpenChallengeRequest) (*entities.Challenge, error) {
	bond, err := decimal.NewFromString(req.Bond)
	if err != nil || !bond.IsPositive() {
		return nil, domainerrors.ValidationError("bond", "bond must be a positive decimal")
	}
	if bond.LessThan(s.cfg.MinimumBond) {
		return nil, domainerrors.NewDomainError(domainerrors.ErrBondTooLow, "BOND_TOO_LOW",
			"challenge bond below the protocol minimum").WithDetails(map[string]interface{}{
			"minimum": s.cfg.MinimumBond.String(),
		})
	}

	evidence, err := base64.StdEncoding.DecodeString(req.Evidence)
	if err != nil || len(evidence) == 0 {
		return nil, domainerrors.ValidationError("evidence", "evidence must be non-empty base64")
	}

	open, err := s.repo.GetOpenByTransactionID(ctx, txID)
	if err != nil && !domainerrors.IsNotFound(err) {
		return nil, fmt.Errorf("check open challenge: %w", err)
	}
	if open != nil {
		return nil, domainerrors.NewDomainError(domainerrors.ErrChallengeActive,
			"CHALLENGE_ACTIVE", "a challenge is already open for this transaction")
	}

	now := time.Now().UTC()
	if _, err := s.ledger.MarkChallenged(ctx, txID, now.Add(s.cfg.ChallengeWindow)); err != nil {
		return nil, err
	}

	if err := s.gateway.Deposit(ctx, s.cfg.BondAsset, req.Challenger, bond, s.cfg.HomeChainID); err != nil {
		s.ledger.ClearChallenge(ctx, txID)
		return nil, fmt.Errorf("pull bond: %w", err)
	}

	challenge := &entities.Challenge{
		ID:            uuid.New(),
		TransactionID: txID,
		Challenger:    req.Challenger,
		Bond:          bond,
		Evidence:      evidence,
		SubmittedAt:   now,
		SlashedAmount: decimal.Zero,
		RewardPaid:    decimal.Zero,
	}

	if err := s.repo.Create(ctx, challenge); err != nil {
		if perr := s.gateway.Payout(ctx, s.cfg.BondAsset, req.Challenger, bond, s.cfg.HomeChainID); perr != nil {
			s.logger.Error("Bond refund failed after create error",
				zap.Error(perr),
				zap.String("tx_id", txID),
				zap.String("challenger", req.Challenger))
		}
		s.ledger.ClearChallenge(ctx, txID)
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	s.mu.Lock()
	s.rewardPool = s.rewardPool.Add(bond)
	s.mu.Unlock()

	metrics.ChallengesOpened.Inc()

	s.logger.Info("Challenge opened",
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("tx_id", txID),
		zap.String("challenger", req.Challenger),
		zap.String("bond", bond.String()))

	s.events.RecordChallengeOpened(ctx, challenge.ID, txID, req.Challenger, bond.String())

	return challenge, nil
}

// Resolve applies the governance verdict. A valid challenge cancels the
// transfer, slashes the named validators and pays the challenger their
// bond back plus a share of the slashed stake. An invalid challenge
// forfeits the bond to the reward pool and lifts the freeze. Resolution
// happens exactly once.
func (s *Service) Resolve(ctx context.Context, challengeID uuid.UUID, req *entities.ResolveChallengeRequest) (*entities.Challenge, error) {
	challenge, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Resolved {
		return nil, domainerrors.NewDomainError(domainerrors.ErrChallengeResolved,
			"CHALLENGE_RESOLVED", "challenge verdict already recorded")
	}
	if len(req.ValidatorsToSlash) != len(req.SlashAmounts) {
		return nil, domainerrors.ValidationError("slash_amounts", "validators and amounts must pair up")
	}

	amounts := make([]decimal.Decimal, len(req.SlashAmounts))
	for i, raw := range req.SlashAmounts {
		amount, perr := decimal.NewFromString(raw)
		if perr != nil || !amount.IsPositive() {
			return nil, domainerrors.ValidationError("slash_amounts", "slash amounts must be positive decimals")
		}
		amounts[i] = amount
	}

	slashedTotal := decimal.Zero
	if req.Valid {
		if _, err := s.ledger.Cancel(ctx, challenge.TransactionID); err != nil {
			return nil, err
		}

		// Any failed slash aborts the verdict before it is recorded; the
		// challenge stays open for governance to resubmit.
		for i, address := range req.ValidatorsToSlash {
			removed, serr := s.slasher.Slash(ctx, address, amounts[i])
			if serr != nil {
				return nil, fmt.Errorf("slash validator %s: %w", address, serr)
			}
			slashedTotal = slashedTotal.Add(removed)
			metrics.StakeSlashed.Add(removed.InexactFloat64())
		}
	} else {
		if _, err := s.ledger.ClearChallenge(ctx, challenge.TransactionID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	challenge.Resolved = true
	challenge.Valid = req.Valid
	challenge.SlashedAmount = slashedTotal
	challenge.ResolvedAt = &now
	payout := s.settleBond(challenge, slashedTotal)
	if err := s.repo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("update challenge: %w", err)
	}

	if payout.IsPositive() {
		if perr := s.gateway.Payout(ctx, s.cfg.BondAsset, challenge.Challenger, payout, s.cfg.HomeChainID); perr != nil {
			s.logger.Error("Challenger payout failed after resolution was recorded",
				zap.Error(perr),
				zap.String("challenge_id", challenge.ID.String()),
				zap.String("payout", payout.String()))
			s.events.Record(ctx, entities.EventTypeSettlementStuck, "governance", challenge.ID.String(), map[string]interface{}{
				"payout": payout.String(),
				"error":  perr.Error(),
			})
		}
	}

	verdict := "rejected"
	if req.Valid {
		verdict = "upheld"
	}
	metrics.ChallengesResolved.WithLabelValues(verdict).Inc()

	s.logger.Info("Challenge resolved",
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("tx_id", challenge.TransactionID),
		zap.Bool("valid", req.Valid),
		zap.String("slashed", slashedTotal.String()))

	s.events.RecordChallengeResolved(ctx, challenge.ID, challenge.TransactionID, req.Valid, slashedTotal.String())

	return challenge, nil
}

// settleBond books the bond and reward shares. An upheld challenge returns
// the bond and pays the challenger their slash share; a rejected one keeps
// the bond in the pool. Returns the amount owed to the challenger.
func (s *Service) settleBond(challenge *entities.Challenge, slashedTotal decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !challenge.Valid {
		return decimal.Zero
	}

	reward := slashedTotal.
		Mul(decimal.NewFromInt(s.cfg.ChallengerRewardBps)).
		Div(decimal.NewFromInt(10000))
	challenge.RewardPaid = reward

	s.rewardPool = s.rewardPool.Add(slashedTotal).Sub(challenge.Bond).Sub(reward)
	if s.rewardPool.IsNegative() {
		s.rewardPool = decimal.Zero
	}

	return challenge.Bond.Add(reward)
}

// Get returns a challenge by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Challenge, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns challenges filtered by resolution state
func (s *Service) List(ctx context.Context, resolved *bool, limit, offset int) ([]*entities.Challenge, error) {
	return s.repo.List(ctx, resolved, limit, offset)
}

// RewardPool returns the accumulated forfeited bonds and retained slash
func (s *Service) RewardPool() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewardPool
}
