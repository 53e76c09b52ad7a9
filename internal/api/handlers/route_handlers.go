package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/routeadvisor"
)

// RouteHandlers exposes transfer path recommendations over HTTP
type RouteHandlers struct {
	advisor *routeadvisor.Service
	logger  *zap.Logger
}

// NewRouteHandlers creates a new route handlers instance
func NewRouteHandlers(advisor *routeadvisor.Service, logger *zap.Logger) *RouteHandlers {
	return &RouteHandlers{advisor: advisor, logger: logger}
}

// Quote compares the standard and instant paths for a prospective transfer
func (h *RouteHandlers) Quote(c *gin.Context) {
	var req entities.RouteQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid quote payload", map[string]interface{}{"error": err.Error()})
		return
	}

	advice, err := h.advisor.Quote(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("route quote failed",
			zap.String("asset", req.Asset.Symbol),
			zap.Uint64("dest_chain_id", req.DestChainID),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, advice)
}
