package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/challenge"
)

// ChallengeHandlers exposes the fraud challenge engine over HTTP
type ChallengeHandlers struct {
	challenges *challenge.Service
	logger     *zap.Logger
}

// NewChallengeHandlers creates a new challenge handlers instance
func NewChallengeHandlers(challengeService *challenge.Service, logger *zap.Logger) *ChallengeHandlers {
	return &ChallengeHandlers{challenges: challengeService, logger: logger}
}

// Open files a bonded challenge against a pending transaction
func (h *ChallengeHandlers) Open(c *gin.Context) {
	txID := c.Param("id")
	if txID == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "transaction id required", nil)
		return
	}

	var req entities.OpenChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid challenge payload", map[string]interface{}{"error": err.Error()})
		return
	}

	opened, err := h.challenges.Open(c.Request.Context(), txID, &req)
	if err != nil {
		h.logger.Warn("challenge rejected",
			zap.String("transaction_id", txID),
			zap.String("challenger", req.Challenger),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondCreated(c, opened)
}

// Resolve records the arbitration verdict. Governance only.
func (h *ChallengeHandlers) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid challenge id", nil)
		return
	}

	var req entities.ResolveChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid resolution payload", map[string]interface{}{"error": err.Error()})
		return
	}

	resolved, err := h.challenges.Resolve(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Warn("challenge resolution failed",
			zap.String("challenge_id", id.String()),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, resolved)
}

// Get returns a challenge by ID
func (h *ChallengeHandlers) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid challenge id", nil)
		return
	}

	found, err := h.challenges.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, found)
}

// List returns challenges, optionally filtered by resolution state
func (h *ChallengeHandlers) List(c *gin.Context) {
	var resolved *bool
	if val := c.Query("resolved"); val != "" {
		b := val == "true" || val == "1"
		resolved = &b
	}

	limit := parseIntParam(c, "limit", 50)
	offset := parseIntParam(c, "offset", 0)

	challenges, err := h.challenges.List(c.Request.Context(), resolved, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"challenges":  challenges,
		"reward_pool": h.challenges.RewardPool(),
		"limit":       limit,
		"offset":      offset,
	})
}
