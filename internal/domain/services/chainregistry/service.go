package chainregistry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
)

// EventRecorder publishes registry changes to the event log
type EventRecorder interface {
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
}

// Service manages the set of supported destination networks and enforces
// per-route daily volume caps. Volume reservations are serialized under a
// single mutex so concurrent transfers cannot overshoot a cap.
type Service struct {
	repo   repositories.ChainRouteRepository
	events EventRecorder
	logger *zap.Logger

	mu sync.Mutex
}

func NewService(repo repositories.ChainRouteRepository, events EventRecorder, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// RegisterChain adds a destination network. Chain IDs are unique; a second
// registration for the same ID fails.
func (s *Service) RegisterChain(ctx context.Context, req *entities.RegisterChainRequest) (*entities.ChainRoute, error) {
	dailyLimit, err := decimal.NewFromString(req.DailyLimit)
	if err != nil || dailyLimit.IsNegative() {
		return nil, domainerrors.ValidationError("daily_limit", "daily limit must be a non-negative decimal")
	}

	existing, err := s.repo.GetByChainID(ctx, req.ChainID)
	if err != nil && !domainerrors.IsNotFound(err) {
		return nil, fmt.Errorf("check existing route: %w", err)
	}
	if existing != nil {
		return nil, domainerrors.AlreadyExistsError("chain_route").WithDetails(map[string]interface{}{
			"chain_id": req.ChainID,
		})
	}

	now := time.Now().UTC()
	route := &entities.ChainRoute{
		ChainID:               req.ChainID,
		Name:                  req.Name,
		BridgeEndpoint:        req.BridgeEndpoint,
		BlockTimeSeconds:      req.BlockTimeSeconds,
		RequiredConfirmations: req.RequiredConfirmations,
		Active:                true,
		DailyLimit:            dailyLimit,
		DailyVolume:           decimal.Zero,
		VolumeResetAt:         now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Create(ctx, route); err != nil {
		return nil, fmt.Errorf("create chain route: %w", err)
	}

	s.logger.Info("Chain route registered",
		zap.Uint64("chain_id", route.ChainID),
		zap.String("name", route.Name),
		zap.String("daily_limit", route.DailyLimit.String()))

	s.events.Record(ctx, entities.EventTypeChainRegistered, "governance", route.Name, map[string]interface{}{
		"chain_id":    route.ChainID,
		"daily_limit": route.DailyLimit.String(),
	})

	return route, nil
}

// GetRoute returns the route for a chain ID
func (s *Service) GetRoute(ctx context.Context, chainID uint64) (*entities.ChainRoute, error) {
	return s.repo.GetByChainID(ctx, chainID)
}

// ListRoutes returns registered routes, optionally only active ones
func (s *Service) ListRoutes(ctx context.Context, activeOnly bool) ([]*entities.ChainRoute, error) {
	return s.repo.List(ctx, activeOnly)
}

// SetActive toggles a route. Routes are never deleted.
func (s *Service) SetActive(ctx context.Context, chainID uint64, active bool) (*entities.ChainRoute, error) {
	route, err := s.repo.GetByChainID(ctx, chainID)
	if err != nil {
		return nil, err
	}

	route.Active = active
	route.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, route); err != nil {
		return nil, fmt.Errorf("update chain route: %w", err)
	}

	s.logger.Info("Chain route toggled",
		zap.Uint64("chain_id", chainID),
		zap.Bool("active", active))

	s.events.Record(ctx, entities.EventTypeChainUpdated, "governance", route.Name, map[string]interface{}{
		"chain_id": chainID,
		"active":   active,
	})

	return route, nil
}

// UpdateDailyLimit changes a route's volume cap. The cap applies from the
// next reservation; already-reserved volume is never clawed back.
func (s *Service) UpdateDailyLimit(ctx context.Context, chainID uint64, limit decimal.Decimal) (*entities.ChainRoute, error) {
	if limit.IsNegative() {
		return nil, domainerrors.ValidationError("daily_limit", "daily limit must be non-negative")
	}

	route, err := s.repo.GetByChainID(ctx, chainID)
	if err != nil {
		return nil, err
	}

	route.DailyLimit = limit
	route.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, route); err != nil {
		return nil, fmt.Errorf("update chain route: %w", err)
	}

	s.events.Record(ctx, entities.EventTypeChainUpdated, "governance", route.Name, map[string]interface{}{
		"chain_id":    chainID,
		"daily_limit": limit.String(),
	})

	return route, nil
}

// ReserveVolume counts amount against the route's daily cap. The window
// is a rolling 24 hours anchored at the last reset, so consecutive
// windows can never admit more than the cap within any single day.
func (s *Service) ReserveVolume(ctx context.Context, chainID uint64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, err := s.repo.GetByChainID(ctx, chainID)
	if err != nil {
		return err
	}
	if !route.Active {
		return domainerrors.ChainNotSupportedError(chainID)
	}

	now := time.Now().UTC()
	if now.Sub(route.VolumeResetAt) > 24*time.Hour {
		route.DailyVolume = decimal.Zero
		route.VolumeResetAt = now
	}

	projected := route.DailyVolume.Add(amount)
	if projected.GreaterThan(route.DailyLimit) {
		remaining := route.DailyLimit.Sub(route.DailyVolume)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		return domainerrors.DailyLimitExceededError(chainID, remaining.String())
	}

	route.DailyVolume = projected
	route.UpdatedAt = now
	if err := s.repo.Update(ctx, route); err != nil {
		return fmt.Errorf("reserve volume: %w", err)
	}

	return nil
}

// ReleaseVolume returns capacity when a counted transfer is cancelled
// within the same window. Releases after the window reset are no-ops.
func (s *Service) ReleaseVolume(ctx context.Context, chainID uint64, amount decimal.Decimal, reservedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, err := s.repo.GetByChainID(ctx, chainID)
	if err != nil {
		return err
	}

	if !reservedAt.Before(route.VolumeResetAt) {
		route.DailyVolume = route.DailyVolume.Sub(amount)
		if route.DailyVolume.IsNegative() {
			route.DailyVolume = decimal.Zero
		}
		route.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, route); err != nil {
			return fmt.Errorf("release volume: %w", err)
		}
	}

	return nil
}
