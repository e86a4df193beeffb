package handler

import (
	"strconv"

	"wallet-withdrawal-engine/internal/adapter/http/dto"
	"wallet-withdrawal-engine/internal/adapter/http/middleware"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"
	"wallet-withdrawal-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles withdrawal history endpoints.
type TransactionHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(withdrawalSvc ports.WithdrawalService) *TransactionHandler {
	return &TransactionHandler{withdrawalSvc: withdrawalSvc}
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return
	}

	w, err := h.withdrawalSvc.GetWithdrawal(c.Request.Context(), ownerID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWithdrawalResponse(w))
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	withdrawals, err := h.withdrawalSvc.ListWithdrawals(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WithdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		items = append(items, toWithdrawalResponse(&withdrawals[i]))
	}

	response.OK(c, dto.WithdrawalListResponse{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}
