package dto

import "encoding/json"

// InitiateWithdrawalRequest is the request body for withdrawal initiation.
type InitiateWithdrawalRequest struct {
	AssetID          string          `json:"asset_id" binding:"required,uuid"`
	Amount           string          `json:"amount" binding:"required"`
	Currency         string          `json:"currency" binding:"required,len=3"`
	Narration        string          `json:"narration" binding:"max=140"`
	DestinationEvent string          `json:"destination_event" binding:"required"`
	DestinationData  json.RawMessage `json:"destination_data" binding:"required"`
}

// AuthorizationProof carries the credential material accompanying an
// authorize call. challenge_id and code_verifier travel together.
type AuthorizationProof struct {
	PIN          string `json:"pin" binding:"required,min=4,max=12"`
	ChallengeID  string `json:"challenge_id,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// AuthorizeWithdrawalRequest is the request body for withdrawal authorization.
type AuthorizeWithdrawalRequest struct {
	TransactionID string             `json:"transaction_id" binding:"required,uuid"`
	Authorization AuthorizationProof `json:"authorization" binding:"required"`
}

// WithdrawRequest is the single-phase request: initiation plus authorization
// in one call.
type WithdrawRequest struct {
	InitiateWithdrawalRequest
	Authorization AuthorizationProof `json:"authorization" binding:"required"`
}

// ChallengeRequest is the request body for issuing a PKCE challenge.
type ChallengeRequest struct {
	CodeChallenge string `json:"code_challenge" binding:"required,min=43,max=128"`
}

// ChallengeResponse is the response for a freshly issued challenge.
type ChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
	Nonce       string `json:"nonce"`
}

// QuoteResponse is the pricing snapshot echoed back at initiation.
type QuoteResponse struct {
	Rate string `json:"rate"`
	Fee  string `json:"fee"`
}

// InitiateWithdrawalResponse is the response for successful initiation.
type InitiateWithdrawalResponse struct {
	TransactionID string        `json:"transaction_id"`
	Quote         QuoteResponse `json:"quote"`
}

// AcceptedResponse acknowledges an asynchronous operation.
type AcceptedResponse struct {
	TransactionID string `json:"transaction_id"`
	Accepted      bool   `json:"accepted"`
}

// WithdrawalResponse is the full withdrawal readout.
type WithdrawalResponse struct {
	ID                 string  `json:"id"`
	AssetID            string  `json:"asset_id"`
	Amount             string  `json:"amount"`
	Currency           string  `json:"currency"`
	DestinationSummary string  `json:"destination_summary"`
	State              string  `json:"state"`
	Narration          string  `json:"narration,omitempty"`
	FailureReason      *string `json:"failure_reason,omitempty"`
	CreatedAt          string  `json:"created_at"`
	AuthorizedAt       *string `json:"authorized_at,omitempty"`
	FinalizedAt        *string `json:"finalized_at,omitempty"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
	Items  []WithdrawalResponse `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	AssetID   string `json:"asset_id"`
	Symbol    string `json:"symbol"`
	Available string `json:"available"`
}
