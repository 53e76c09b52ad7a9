package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/ledger"
)

// BridgeHandlers exposes the transaction ledger over HTTP
type BridgeHandlers struct {
	ledger    *ledger.Service
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBridgeHandlers creates a new bridge handlers instance
func NewBridgeHandlers(ledgerService *ledger.Service, logger *zap.Logger) *BridgeHandlers {
	return &BridgeHandlers{
		ledger:    ledgerService,
		validator: validator.New(),
		logger:    logger,
	}
}

// Initiate starts a standard-path bridge transfer
func (h *BridgeHandlers) Initiate(c *gin.Context) {
	var req entities.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid initiate payload", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, "invalid initiate payload", map[string]interface{}{"error": err.Error()})
		return
	}

	tx, err := h.ledger.Initiate(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("initiate rejected",
			zap.String("sender", req.Sender),
			zap.Uint64("dest_chain_id", req.DestChainID),
			zap.String("request_id", getRequestID(c)),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondCreated(c, tx)
}

// Execute releases a pending transfer once the signature bundle clears quorum
func (h *BridgeHandlers) Execute(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "transaction id required", nil)
		return
	}

	var req entities.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid execute payload", map[string]interface{}{"error": err.Error()})
		return
	}

	tx, err := h.ledger.Execute(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Warn("execute rejected",
			zap.String("transaction_id", id),
			zap.String("request_id", getRequestID(c)),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, tx)
}

// Get returns a single transaction with its derived status
func (h *BridgeHandlers) Get(c *gin.Context) {
	tx, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, tx)
}

// List returns the sender's transactions, newest first
func (h *BridgeHandlers) List(c *gin.Context) {
	sender := c.Query("sender")
	if sender == "" {
		respondBadRequest(c, "sender query parameter required")
		return
	}

	limit := parseIntParam(c, "limit", 50)
	offset := parseIntParam(c, "offset", 0)

	txs, err := h.ledger.ListBySender(c.Request.Context(), sender, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// Cancel voids a transaction and refunds the sender. Governance only.
func (h *BridgeHandlers) Cancel(c *gin.Context) {
	id := c.Param("id")

	tx, err := h.ledger.Cancel(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("cancel rejected",
			zap.String("transaction_id", id),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, tx)
}
