package control

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/pkg/metrics"
)

// EventRecorder publishes pause transitions to the event log
type EventRecorder interface {
	Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{})
}

// Status is the current operational state of the bridge
type Status struct {
	Paused   bool       `json:"paused"`
	Reason   string     `json:"reason,omitempty"`
	PausedBy string     `json:"paused_by,omitempty"`
	PausedAt *time.Time `json:"paused_at,omitempty"`
}

// Service is the emergency switch. While paused, initiation, execution
// and instant settlement are refused; reads, challenge resolution and
// liquidity withdrawal stay available.
type Service struct {
	events EventRecorder
	logger *zap.Logger

	mu       sync.RWMutex
	paused   bool
	reason   string
	pausedBy string
	pausedAt time.Time
}

func NewService(events EventRecorder, logger *zap.Logger) *Service {
	return &Service{
		events: events,
		logger: logger,
	}
}

// Pause suspends value-moving operations. Idempotent.
func (s *Service) Pause(ctx context.Context, actor, reason string) Status {
	s.mu.Lock()
	if !s.paused {
		s.paused = true
		s.reason = reason
		s.pausedBy = actor
		s.pausedAt = time.Now().UTC()
	}
	st := s.statusLocked()
	s.mu.Unlock()

	metrics.Paused.Set(1)
	s.logger.Warn("Bridge paused",
		zap.String("actor", actor),
		zap.String("reason", reason))
	s.events.Record(ctx, entities.EventTypeBridgePaused, actor, "bridge", map[string]interface{}{
		"reason": reason,
	})

	return st
}

// Resume lifts the suspension. Idempotent.
func (s *Service) Resume(ctx context.Context, actor string) Status {
	s.mu.Lock()
	s.paused = false
	s.reason = ""
	s.pausedBy = ""
	st := s.statusLocked()
	s.mu.Unlock()

	metrics.Paused.Set(0)
	s.logger.Info("Bridge resumed", zap.String("actor", actor))
	s.events.Record(ctx, entities.EventTypeBridgeResumed, actor, "bridge", nil)

	return st
}

// Paused reports whether value-moving operations are refused
func (s *Service) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Status returns the current operational state
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Service) statusLocked() Status {
	st := Status{
		Paused:   s.paused,
		Reason:   s.reason,
		PausedBy: s.pausedBy,
	}
	if s.paused {
		at := s.pausedAt
		st.PausedAt = &at
	}
	return st
}
