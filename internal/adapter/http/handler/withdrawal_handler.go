package handler

import (
	"wallet-withdrawal-engine/internal/adapter/http/dto"
	"wallet-withdrawal-engine/internal/adapter/http/middleware"
	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"
	"wallet-withdrawal-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalHandler handles withdrawal lifecycle endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Initiate handles POST /api/v1/wallets/withdrawals/initiate.
func (h *WithdrawalHandler) Initiate(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitiateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	initReq, err := toInitiateRequest(ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.withdrawalSvc.Initiate(c.Request.Context(), initReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.InitiateWithdrawalResponse{
		TransactionID: result.TransactionID.String(),
		Quote: dto.QuoteResponse{
			Rate: result.Quote.Rate.String(),
			Fee:  result.Quote.Fee.String(),
		},
	})
}

// Authorize handles POST /api/v1/wallets/withdrawals/authorize. A 202 means
// funds are reserved and execution proceeds asynchronously.
func (h *WithdrawalHandler) Authorize(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AuthorizeWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		response.Error(c, apperror.Validation("transaction_id must be a valid UUID"))
		return
	}

	if err := h.withdrawalSvc.Authorize(c.Request.Context(), ports.AuthorizeRequest{
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Authorization: toAuthorization(req.Authorization),
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.AcceptedResponse{
		TransactionID: transactionID.String(),
		Accepted:      true,
	})
}

// Withdraw handles POST /api/v1/wallets/withdraw, the single-phase flow.
func (h *WithdrawalHandler) Withdraw(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	initReq, err := toInitiateRequest(ownerID, req.InitiateWithdrawalRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.withdrawalSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		InitiateRequest: initReq,
		Authorization:   toAuthorization(req.Authorization),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.AcceptedResponse{
		TransactionID: result.TransactionID.String(),
		Accepted:      true,
	})
}

func toInitiateRequest(ownerID uuid.UUID, req dto.InitiateWithdrawalRequest) (ports.InitiateRequest, error) {
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return ports.InitiateRequest{}, apperror.Validation("asset_id must be a valid UUID")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return ports.InitiateRequest{}, apperror.ErrInvalidAmount()
	}
	return ports.InitiateRequest{
		OwnerID:          ownerID,
		AssetID:          assetID,
		Amount:           amount,
		Currency:         req.Currency,
		Narration:        req.Narration,
		DestinationEvent: req.DestinationEvent,
		DestinationData:  req.DestinationData,
	}, nil
}

func toAuthorization(proof dto.AuthorizationProof) ports.Authorization {
	return ports.Authorization{
		PIN:          proof.PIN,
		ChallengeID:  proof.ChallengeID,
		CodeVerifier: proof.CodeVerifier,
	}
}

// toWithdrawalResponse converts domain.Withdrawal to DTO.
func toWithdrawalResponse(w *domain.Withdrawal) dto.WithdrawalResponse {
	resp := dto.WithdrawalResponse{
		ID:                 w.ID.String(),
		AssetID:            w.AssetID.String(),
		Amount:             w.Amount.String(),
		Currency:           w.Currency,
		DestinationSummary: w.Destination.Summary(),
		State:              string(w.State),
		Narration:          w.Narration,
		FailureReason:      w.FailureReason,
		CreatedAt:          w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if w.AuthorizedAt != nil {
		s := w.AuthorizedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.AuthorizedAt = &s
	}
	if w.FinalizedAt != nil {
		s := w.FinalizedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.FinalizedAt = &s
	}
	return resp
}
