package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/chainregistry"
)

// ChainHandlers exposes the destination chain registry over HTTP
type ChainHandlers struct {
	registry *chainregistry.Service
	logger   *zap.Logger
}

// NewChainHandlers creates a new chain handlers instance
func NewChainHandlers(registry *chainregistry.Service, logger *zap.Logger) *ChainHandlers {
	return &ChainHandlers{registry: registry, logger: logger}
}

// Register adds a destination network. Governance only.
func (h *ChainHandlers) Register(c *gin.Context) {
	var req entities.RegisterChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid chain registration payload", map[string]interface{}{"error": err.Error()})
		return
	}

	route, err := h.registry.RegisterChain(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("chain registration rejected",
			zap.Uint64("chain_id", req.ChainID),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondCreated(c, route)
}

// List returns registered routes, optionally only the active ones
func (h *ChainHandlers) List(c *gin.Context) {
	activeOnly := parseBoolParam(c, "active", false)

	routes, err := h.registry.ListRoutes(c.Request.Context(), activeOnly)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{"chains": routes})
}

// Get returns a single route by chain ID
func (h *ChainHandlers) Get(c *gin.Context) {
	chainID, err := parseUintParam(c, "chain_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid chain id", nil)
		return
	}

	route, err := h.registry.GetRoute(c.Request.Context(), chainID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, route)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive activates or deactivates a route. Governance only.
func (h *ChainHandlers) SetActive(c *gin.Context) {
	chainID, err := parseUintParam(c, "chain_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid chain id", nil)
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload", map[string]interface{}{"error": err.Error()})
		return
	}

	route, err := h.registry.SetActive(c.Request.Context(), chainID, req.Active)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Info("chain active flag changed",
		zap.Uint64("chain_id", chainID),
		zap.Bool("active", req.Active))

	respondSuccess(c, route)
}

type updateLimitRequest struct {
	DailyLimit string `json:"daily_limit" binding:"required"`
}

// UpdateDailyLimit changes a route's daily volume cap. Governance only.
func (h *ChainHandlers) UpdateDailyLimit(c *gin.Context) {
	chainID, err := parseUintParam(c, "chain_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid chain id", nil)
		return
	}

	var req updateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload", map[string]interface{}{"error": err.Error()})
		return
	}

	limit, err := parseDecimal(req.DailyLimit)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidAmount, "invalid daily limit", nil)
		return
	}

	route, err := h.registry.UpdateDailyLimit(c.Request.Context(), chainID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, route)
}
