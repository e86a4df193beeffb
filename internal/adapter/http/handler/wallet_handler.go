package handler

import (
	"wallet-withdrawal-engine/internal/adapter/http/dto"
	"wallet-withdrawal-engine/internal/adapter/http/middleware"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"
	"wallet-withdrawal-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles balance endpoints.
type WalletHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(withdrawalSvc ports.WithdrawalService) *WalletHandler {
	return &WalletHandler{withdrawalSvc: withdrawalSvc}
}

// GetBalance handles GET /api/v1/wallets/balance/:asset_id.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	assetID, err := uuid.Parse(c.Param("asset_id"))
	if err != nil {
		response.Error(c, apperror.Validation("asset_id must be a valid UUID"))
		return
	}

	balance, asset, err := h.withdrawalSvc.GetBalance(c.Request.Context(), ownerID, assetID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.BalanceResponse{
		AssetID:   assetID.String(),
		Available: balance.Available.String(),
	}
	if asset != nil {
		resp.Symbol = asset.Symbol
	}
	response.OK(c, resp)
}
