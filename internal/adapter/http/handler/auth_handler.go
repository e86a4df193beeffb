package handler

import (
	"wallet-withdrawal-engine/internal/adapter/http/dto"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"
	"wallet-withdrawal-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authorization challenge endpoints.
type AuthHandler struct {
	verifier ports.AuthorizationVerifier
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(verifier ports.AuthorizationVerifier) *AuthHandler {
	return &AuthHandler{verifier: verifier}
}

// CreateChallenge handles POST /api/v1/auth/challenge. The client sends its
// S256 code challenge and gets back the challenge id to quote during
// authorization. The code verifier never travels until then.
func (h *AuthHandler) CreateChallenge(c *gin.Context) {
	var req dto.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	challenge, err := h.verifier.CreateChallenge(c.Request.Context(), req.CodeChallenge)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ChallengeResponse{
		ChallengeID: challenge.ChallengeID,
		Nonce:       challenge.Nonce,
	})
}
