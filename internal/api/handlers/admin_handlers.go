package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
	"github.com/crosslane/bridge_service/internal/domain/services/control"
	"github.com/crosslane/bridge_service/internal/domain/services/events"
)

// AdminHandlers exposes emergency pause control and the event log.
// All routes are behind governance auth.
type AdminHandlers struct {
	control *control.Service
	events  *events.Service
	logger  *zap.Logger
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(controlService *control.Service, eventService *events.Service, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{control: controlService, events: eventService, logger: logger}
}

// governanceActor returns the authenticated governance identity
func governanceActor(c *gin.Context) string {
	if actor := c.GetString("governance_actor"); actor != "" {
		return actor
	}
	return "governance"
}

type pauseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Pause suspends all value-moving operations
func (h *AdminHandlers) Pause(c *gin.Context) {
	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "pause reason required", map[string]interface{}{"error": err.Error()})
		return
	}

	actor := governanceActor(c)
	status := h.control.Pause(c.Request.Context(), actor, req.Reason)

	h.logger.Warn("bridge paused",
		zap.String("actor", actor),
		zap.String("reason", req.Reason))

	respondSuccess(c, status)
}

// Resume lifts the emergency pause
func (h *AdminHandlers) Resume(c *gin.Context) {
	actor := governanceActor(c)
	status := h.control.Resume(c.Request.Context(), actor)

	h.logger.Info("bridge resumed", zap.String("actor", actor))

	respondSuccess(c, status)
}

// Status reports the current pause state
func (h *AdminHandlers) Status(c *gin.Context) {
	respondSuccess(c, h.control.Status())
}

// Events returns the audit event log with optional filters
func (h *AdminHandlers) Events(c *gin.Context) {
	filter := repositories.BridgeEventFilter{
		Limit:  parseIntParam(c, "limit", 50),
		Offset: parseIntParam(c, "offset", 0),
	}

	if v := c.Query("type"); v != "" {
		eventType := entities.EventType(v)
		filter.Type = &eventType
	}
	if v := c.Query("actor"); v != "" {
		filter.Actor = &v
	}
	if v := c.Query("subject"); v != "" {
		filter.Subject = &v
	}
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndDate = &t
		}
	}

	eventList, total, err := h.events.History(c.Request.Context(), filter)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"events": eventList,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}
