package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/validators"
)

// ValidatorHandlers exposes the validator registry over HTTP
type ValidatorHandlers struct {
	validators *validators.Service
	logger     *zap.Logger
}

// NewValidatorHandlers creates a new validator handlers instance
func NewValidatorHandlers(validatorService *validators.Service, logger *zap.Logger) *ValidatorHandlers {
	return &ValidatorHandlers{validators: validatorService, logger: logger}
}

// Join registers a staked validator or reactivates a departed one
func (h *ValidatorHandlers) Join(c *gin.Context) {
	var req entities.JoinValidatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid join payload", map[string]interface{}{"error": err.Error()})
		return
	}

	validator, err := h.validators.Join(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("validator join rejected",
			zap.String("address", req.Address),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondCreated(c, validator)
}

// Get returns a validator by address
func (h *ValidatorHandlers) Get(c *gin.Context) {
	validator, err := h.validators.GetValidator(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, validator)
}

// List returns the active validator set with the aggregate voting power
func (h *ValidatorHandlers) List(c *gin.Context) {
	active, err := h.validators.ListActive(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"validators":         active,
		"total_voting_power": h.validators.TotalVotingPower(),
	})
}
