package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/internal/domain/services/liquidity"
)

// LiquidityHandlers exposes pool management and instant settlement over HTTP
type LiquidityHandlers struct {
	liquidity *liquidity.Service
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLiquidityHandlers creates a new liquidity handlers instance
func NewLiquidityHandlers(liquidityService *liquidity.Service, logger *zap.Logger) *LiquidityHandlers {
	return &LiquidityHandlers{
		liquidity: liquidityService,
		validator: validator.New(),
		logger:    logger,
	}
}

// assetFromPath resolves the asset reference from the path symbol and the
// kind query parameter, defaulting to native custody.
func assetFromPath(c *gin.Context) entities.AssetRef {
	kind := entities.AssetKind(c.DefaultQuery("kind", string(entities.AssetKindNative)))
	return entities.AssetRef{Symbol: c.Param("symbol"), Kind: kind}
}

type createPoolRequest struct {
	Asset entities.AssetRef `json:"asset" binding:"required"`
}

// CreatePool provisions an empty pool for an asset. Governance only.
func (h *LiquidityHandlers) CreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid pool payload", map[string]interface{}{"error": err.Error()})
		return
	}

	pool, err := h.liquidity.CreatePool(c.Request.Context(), req.Asset)
	if err != nil {
		h.logger.Warn("pool creation rejected",
			zap.String("asset", req.Asset.Symbol),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondCreated(c, pool)
}

// ListPools returns all pools
func (h *LiquidityHandlers) ListPools(c *gin.Context) {
	pools, err := h.liquidity.ListPools(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{"pools": pools})
}

// GetPool returns a single pool
func (h *LiquidityHandlers) GetPool(c *gin.Context) {
	pool, err := h.liquidity.GetPool(c.Request.Context(), assetFromPath(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, pool)
}

// Metrics returns the pool's dashboard view
func (h *LiquidityHandlers) Metrics(c *gin.Context) {
	metrics, err := h.liquidity.Metrics(c.Request.Context(), assetFromPath(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, metrics)
}

// GetPosition returns one provider's recorded share
func (h *LiquidityHandlers) GetPosition(c *gin.Context) {
	position, err := h.liquidity.GetPosition(c.Request.Context(), assetFromPath(c), c.Param("provider"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, position)
}

// AddLiquidity contributes funds to both sides of a pool
func (h *LiquidityHandlers) AddLiquidity(c *gin.Context) {
	var req entities.AddLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid deposit payload", map[string]interface{}{"error": err.Error()})
		return
	}

	pool, err := h.liquidity.AddLiquidity(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("liquidity deposit rejected",
			zap.String("provider", req.Provider),
			zap.String("asset", req.Asset.Symbol),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, pool)
}

// RemoveLiquidity redeems part of a provider's share
func (h *LiquidityHandlers) RemoveLiquidity(c *gin.Context) {
	var req entities.RemoveLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid withdrawal payload", map[string]interface{}{"error": err.Error()})
		return
	}

	pool, err := h.liquidity.RemoveLiquidity(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("liquidity withdrawal rejected",
			zap.String("provider", req.Provider),
			zap.String("asset", req.Asset.Symbol),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, pool)
}

// InstantBridge settles a transfer immediately from pooled liquidity
func (h *LiquidityHandlers) InstantBridge(c *gin.Context) {
	var req entities.InstantBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid instant bridge payload", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, "invalid instant bridge payload", map[string]interface{}{"error": err.Error()})
		return
	}

	result, err := h.liquidity.InstantBridge(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("instant bridge rejected",
			zap.String("sender", req.Sender),
			zap.String("asset", req.Asset.Symbol),
			zap.Uint64("dest_chain_id", req.DestChainID),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, result)
}
