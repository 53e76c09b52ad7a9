package control_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/control"
)

type mockEvents struct {
	recorded []entities.EventType
}

func (m *mockEvents) Record(ctx context.Context, eventType entities.EventType, actor, subject string, details map[string]interface{}) {
	m.recorded = append(m.recorded, eventType)
}

func TestPauseResume(t *testing.T) {
	events := &mockEvents{}
	svc := control.NewService(events, zap.NewNop())

	assert.False(t, svc.Paused())

	st := svc.Pause(context.Background(), "guardian", "anomalous volume")
	assert.True(t, st.Paused)
	assert.Equal(t, "anomalous volume", st.Reason)
	assert.Equal(t, "guardian", st.PausedBy)
	assert.NotNil(t, st.PausedAt)
	assert.True(t, svc.Paused())

	st = svc.Resume(context.Background(), "guardian")
	assert.False(t, st.Paused)
	assert.Empty(t, st.Reason)
	assert.Nil(t, st.PausedAt)
	assert.False(t, svc.Paused())

	assert.Equal(t, []entities.EventType{
		entities.EventTypeBridgePaused,
		entities.EventTypeBridgeResumed,
	}, events.recorded)
}

func TestPause_IdempotentKeepsFirstReason(t *testing.T) {
	svc := control.NewService(&mockEvents{}, zap.NewNop())

	svc.Pause(context.Background(), "guardian", "first")
	st := svc.Pause(context.Background(), "other", "second")
	assert.True(t, st.Paused)
	assert.Equal(t, "first", st.Reason)
	assert.Equal(t, "guardian", st.PausedBy)
}
