package validators

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
)

// EventRecorder publishes validator set changes to the event log
type EventRecorder interface {
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
}

// Config carries the protocol parameters of the validator set
type Config struct {
	MinimumStake decimal.Decimal
	// MaxValidators caps the active set size; zero means unbounded.
	MaxValidators int
}

// Service manages the staked validator set. The total voting power
// aggregate is owned by the service and mutated only under its mutex.
type Service struct {
	repo   repositories.ValidatorRepository
	events EventRecorder
	cfg    Config
	logger *zap.Logger

	mu          sync.RWMutex
	totalPower  decimal.Decimal
	activeCount int
}

func NewService(repo repositories.ValidatorRepository, events EventRecorder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		events:     events,
		cfg:        cfg,
		logger:     logger,
		totalPower: decimal.Zero,
	}
}

// LoadTotals rebuilds the total voting power aggregate from storage.
// Called once at startup before the service takes traffic.
func (s *Service) LoadTotals(ctx context.Context) error {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load validators: %w", err)
	}

	total := decimal.Zero
	for _, v := range active {
		total = total.Add(v.VotingPower)
	}

	s.mu.Lock()
	s.totalPower = total
	s.activeCount = len(active)
	s.mu.Unlock()

	s.logger.Info("Validator set loaded",
		zap.Int("active", len(active)),
		zap.String("total_power", total.String()))

	return nil
}

// Join stakes an address into the validator set
func (s *Service) Join(ctx context.Context, req *entities.JoinValidatorRequest) (*entities.Validator, error) {
	stake, err := decimal.NewFromString(req.Stake)
	if err != nil || !stake.IsPositive() {
		return nil, domainerrors.ValidationError("stake", "stake must be a positive decimal")
	}
	if stake.LessThan(s.cfg.MinimumStake) {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInsufficientStake, "STAKE_BELOW_MINIMUM",
			"stake below the protocol minimum").WithDetails(map[string]interface{}{
			"minimum": s.cfg.MinimumStake.String(),
		})
	}
	if req.Reputation < 0 || req.Reputation > 100 {
		return nil, domainerrors.ValidationError("reputation", "reputation must be within [0, 100]")
	}

	existing, err := s.repo.GetByAddress(ctx, req.Address)
	if err != nil && !domainerrors.IsNotFound(err) {
		return nil, fmt.Errorf("check validator: %w", err)
	}
	if existing != nil && existing.Active {
		return nil, domainerrors.AlreadyExistsError("validator")
	}

	now := time.Now().UTC()
	validator := &entities.Validator{
		Address:      req.Address,
		Stake:        stake,
		VotingPower:  VotingPower(stake, req.Reputation),
		Reputation:   req.Reputation,
		Active:       true,
		JoinedAt:     now,
		LastActiveAt: now,
		SlashedTotal: decimal.Zero,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxValidators > 0 && s.activeCount >= s.cfg.MaxValidators {
		return nil, domainerrors.NewDomainError(domainerrors.ErrConflict,
			"VALIDATOR_SET_FULL", "the validator set is at capacity").WithDetails(map[string]interface{}{
			"max_validators": s.cfg.MaxValidators,
		})
	}

	if existing != nil {
		validator.SlashedTotal = existing.SlashedTotal
		if err := s.repo.Update(ctx, validator); err != nil {
			return nil, fmt.Errorf("reactivate validator: %w", err)
		}
	} else {
		if err := s.repo.Create(ctx, validator); err != nil {
			return nil, fmt.Errorf("create validator: %w", err)
		}
	}

	s.totalPower = s.totalPower.Add(validator.VotingPower)
	s.activeCount++

	s.logger.Info("Validator joined",
		zap.String("address", validator.Address),
		zap.String("stake", validator.Stake.String()),
		zap.String("voting_power", validator.VotingPower.String()))

	s.events.Record(ctx, entities.EventTypeValidatorJoined, validator.Address, validator.Address, map[string]interface{}{
		"stake":        validator.Stake.String(),
		"voting_power": validator.VotingPower.String(),
	})

	return validator, nil
}

// GetValidator returns a validator by address
func (s *Service) GetValidator(ctx context.Context, address string) (*entities.Validator, error) {
	return s.repo.GetByAddress(ctx, address)
}

// ListActive returns the active validator set
func (s *Service) ListActive(ctx context.Context) ([]*entities.Validator, error) {
	return s.repo.ListActive(ctx)
}

// TotalVotingPower returns the maintained aggregate over active validators
func (s *Service) TotalVotingPower() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPower
}

// Touch records attestation activity for a validator
func (s *Service) Touch(ctx context.Context, address string) error {
	v, err := s.repo.GetByAddress(ctx, address)
	if err != nil {
		return err
	}
	v.LastActiveAt = time.Now().UTC()
	return s.repo.Update(ctx, v)
}

// slash removes amount from a validator's stake, recomputes voting power,
// and deactivates the validator if the remainder falls below the minimum.
// A penalty larger than the remaining stake is rejected outright.
func (s *Service) slash(ctx context.Context, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domainerrors.ValidationError("amount", "slash amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.repo.GetByAddress(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	if !v.Active {
		return decimal.Zero, domainerrors.NewDomainError(domainerrors.ErrValidatorNotActive,
			"VALIDATOR_NOT_ACTIVE", "cannot slash an inactive validator")
	}

	if amount.GreaterThan(v.Stake) {
		return decimal.Zero, domainerrors.NewDomainError(domainerrors.ErrInsufficientStake,
			"SLASH_EXCEEDS_STAKE", "slash amount exceeds the validator's stake").WithDetails(map[string]interface{}{
			"stake": v.Stake.String(),
		})
	}

	removed := amount
	oldPower := v.VotingPower
	v.Stake = v.Stake.Sub(removed)
	v.SlashedTotal = v.SlashedTotal.Add(removed)
	v.VotingPower = VotingPower(v.Stake, v.Reputation)
	if v.Stake.LessThan(s.cfg.MinimumStake) {
		v.Active = false
		v.VotingPower = decimal.Zero
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return decimal.Zero, fmt.Errorf("slash validator: %w", err)
	}

	s.totalPower = s.totalPower.Sub(oldPower).Add(v.VotingPower)
	if !v.Active {
		s.activeCount--
	}

	s.logger.Warn("Validator slashed",
		zap.String("address", address),
		zap.String("amount", removed.String()),
		zap.Bool("deactivated", !v.Active))

	s.events.Record(ctx, entities.EventTypeValidatorSlashed, "governance", address, map[string]interface{}{
		"amount": removed.String(),
	})

	return removed, nil
}

// VotingPower computes sqrt(stake) scaled by the reputation multiplier
// (100 + reputation) / 100, rounded to 6 decimal places.
func VotingPower(stake decimal.Decimal, reputation int) decimal.Decimal {
	if !stake.IsPositive() {
		return decimal.Zero
	}
	root := math.Sqrt(stake.InexactFloat64())
	power := decimal.NewFromFloat(root).
		Mul(decimal.NewFromInt(int64(100 + reputation))).
		Div(decimal.NewFromInt(100))
	return power.Round(6)
}

// Slasher is the capability to penalize validator stake. Only the
// arbitration engine receives one, at wiring time.
type Slasher struct {
	svc *Service
}

// NewSlasher hands out the slashing capability
func (s *Service) NewSlasher() Slasher {
	return Slasher{svc: s}
}

// Slash applies a stake penalty and returns the amount removed
func (sl Slasher) Slash(ctx context.Context, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	return sl.svc.slash(ctx, address, amount)
}
