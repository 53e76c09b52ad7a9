package graceful

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosslane/bridge_service/pkg/logger"
)

func TestDrain_StopsComponentsInRegistrationOrder(t *testing.T) {
	m := NewManager(&http.Server{}, nil, logger.NewNop())

	var order []string
	m.Register("settlement_monitor", func(context.Context) error {
		order = append(order, "settlement_monitor")
		return nil
	})
	m.Register("redis", func(context.Context) error {
		order = append(order, "redis")
		return nil
	})

	m.drain(context.Background())
	assert.Equal(t, []string{"settlement_monitor", "redis"}, order)
}

func TestDrain_ComponentErrorDoesNotHaltTeardown(t *testing.T) {
	m := NewManager(&http.Server{}, nil, logger.NewNop())

	var stopped []string
	m.Register("flaky", func(context.Context) error {
		return errors.New("stop failed")
	})
	m.Register("worker", func(context.Context) error {
		stopped = append(stopped, "worker")
		return nil
	})

	m.drain(context.Background())
	assert.Equal(t, []string{"worker"}, stopped)
}
