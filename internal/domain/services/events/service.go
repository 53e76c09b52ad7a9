package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
)

// Service records protocol events into the append-only history log.
// A failed write is logged but never fails the calling operation.
type Service struct {
	repo   repositories.BridgeEventRepository
	logger *zap.Logger
}

func NewService(repo repositories.BridgeEventRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record creates an event entry
func (s *Service) Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{}) {
	event := &entities.BridgeEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Actor:     actor,
		Subject:   subject,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("failed to record bridge event",
			zap.Error(err),
			zap.String("type", string(eventType)),
			zap.String("subject", subject),
		)
	}
}

// RecordTxInitiated logs a standard-path transfer start
func (s *Service) RecordTxInitiated(ctx context.Context, txID, sender string, amount string, destChainID uint64) {
	s.Record(ctx, entities.EventTypeTxInitiated, sender, txID, map[string]interface{}{
		"amount":        amount,
		"dest_chain_id": destChainID,
	})
}

// RecordTxExecuted logs a settled transfer
func (s *Service) RecordTxExecuted(ctx context.Context, txID string, signerCount int) {
	s.Record(ctx, entities.EventTypeTxExecuted, "relayer", txID, map[string]interface{}{
		"signer_count": signerCount,
	})
}

// RecordTxExpired logs a transfer that lapsed past its deadline unexecuted
func (s *Service) RecordTxExpired(ctx context.Context, txID, sender, amount string, destChainID uint64) {
	s.Record(ctx, entities.EventTypeTxExpired, sender, txID, map[string]interface{}{
		"amount":        amount,
		"dest_chain_id": destChainID,
	})
}

// RecordChallengeOpened logs a new dispute
func (s *Service) RecordChallengeOpened(ctx context.Context, challengeID uuid.UUID, txID, challenger, bond string) {
	s.Record(ctx, entities.EventTypeChallengeOpened, challenger, txID, map[string]interface{}{
		"challenge_id": challengeID.String(),
		"bond":         bond,
	})
}

// RecordChallengeResolved logs a governance verdict
func (s *Service) RecordChallengeResolved(ctx context.Context, challengeID uuid.UUID, txID string, valid bool, slashed string) {
	s.Record(ctx, entities.EventTypeChallengeResolved, "governance", txID, map[string]interface{}{
		"challenge_id": challengeID.String(),
		"valid":        valid,
		"slashed":      slashed,
	})
}

// RecordValidatorSlashed logs a stake penalty
func (s *Service) RecordValidatorSlashed(ctx context.Context, address, amount string) {
	s.Record(ctx, entities.EventTypeValidatorSlashed, "governance", address, map[string]interface{}{
		"amount": amount,
	})
}

// RecordInstantBridge logs a pool-settled transfer
func (s *Service) RecordInstantBridge(ctx context.Context, sender, asset, amount, fee string) {
	s.Record(ctx, entities.EventTypeInstantBridge, sender, asset, map[string]interface{}{
		"amount": amount,
		"fee":    fee,
	})
}

// History retrieves filtered events with a total count
func (s *Service) History(ctx context.Context, filter repositories.BridgeEventFilter) ([]*entities.BridgeEvent, int64, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return list, count, nil
}
