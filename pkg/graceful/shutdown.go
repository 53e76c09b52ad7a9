// Package graceful drains the service on SIGINT/SIGTERM: background
// components stop first, then the HTTP server, then the database pool.
package graceful

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosslane/bridge_service/pkg/logger"
)

const drainTimeout = 30 * time.Second

// StopFunc stops one component, honoring the drain deadline on ctx
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager coordinates an orderly teardown of the process
type Manager struct {
	server     *http.Server
	db         *sql.DB
	logger     *logger.Logger
	components []component
}

func NewManager(server *http.Server, db *sql.DB, logger *logger.Logger) *Manager {
	return &Manager{
		server: server,
		db:     db,
		logger: logger,
	}
}

// Register adds a named component. Components stop in registration order,
// before the HTTP server, so in-flight requests still observe consistent
// state while workers wind down.
func (m *Manager) Register(name string, stop StopFunc) {
	m.components = append(m.components, component{name: name, stop: stop})
}

// Wait blocks until an interrupt arrives, then drains
func (m *Manager) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	m.logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	m.drain(ctx)

	m.logger.Info("Shutdown complete")
}

func (m *Manager) drain(ctx context.Context) {
	for _, c := range m.components {
		if err := c.stop(ctx); err != nil {
			m.logger.Warn("Component stop error", "component", c.name, "error", err)
		} else {
			m.logger.Info("Component stopped", "component", c.name)
		}
	}

	if m.server != nil {
		if err := m.server.Shutdown(ctx); err != nil {
			m.logger.Error("Server forced shutdown", "error", err)
		}
	}

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.logger.Warn("Database close error", "error", err)
		}
	}
}
