package rail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-withdrawal-engine/config"
	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func railConfig(t *testing.T, handler http.HandlerFunc) config.RailConfig {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return config.RailConfig{
		BankBaseURL:  server.URL,
		ChainBaseURL: server.URL,
		Timeout:      2 * time.Second,
	}
}

func bankDest() domain.BankTransferData {
	return domain.BankTransferData{
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
	}
}

func TestBankClient_Transfer_Success(t *testing.T) {
	txID := uuid.New()
	var gotReq bankTransferRequest
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, txID.String(), r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transferResponse{Status: "SUCCESS", Reference: "prov-001"})
	})
	client := NewBankClient(cfg, zerolog.Nop())

	result, err := client.Transfer(context.Background(), txID, bankDest(), decimal.NewFromInt(100), "NGN", "rent")
	require.NoError(t, err)

	assert.Equal(t, ports.TransferSucceeded, result.Outcome)
	assert.Equal(t, "prov-001", result.Reference)
	assert.Equal(t, txID.String(), gotReq.Reference)
	assert.Equal(t, "058", gotReq.BankCode)
	assert.Equal(t, "100", gotReq.Amount)
	assert.Equal(t, "rent", gotReq.Narration)
}

func TestBankClient_Transfer_ProviderRejects(t *testing.T) {
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transferResponse{Status: "FAILED", Reason: "ACCOUNT_NOT_FOUND"})
	})
	client := NewBankClient(cfg, zerolog.Nop())

	result, err := client.Transfer(context.Background(), uuid.New(), bankDest(), decimal.NewFromInt(100), "NGN", "")
	require.NoError(t, err)

	assert.Equal(t, ports.TransferFailed, result.Outcome)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", result.Reason)
}

func TestBankClient_Transfer_ServerErrorIsIndeterminate(t *testing.T) {
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client := NewBankClient(cfg, zerolog.Nop())

	result, err := client.Transfer(context.Background(), uuid.New(), bankDest(), decimal.NewFromInt(100), "NGN", "")
	require.NoError(t, err)

	assert.Equal(t, ports.TransferIndeterminate, result.Outcome)
}

func TestBankClient_Transfer_ConnectionFailureIsIndeterminate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening
	client := NewBankClient(config.RailConfig{BankBaseURL: server.URL, Timeout: time.Second}, zerolog.Nop())

	result, err := client.Transfer(context.Background(), uuid.New(), bankDest(), decimal.NewFromInt(100), "NGN", "")
	require.NoError(t, err)

	assert.Equal(t, ports.TransferIndeterminate, result.Outcome)
}

func TestBankClient_Transfer_ClientErrorIsFailure(t *testing.T) {
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(transferResponse{Reason: "INVALID_BANK_CODE"})
	})
	client := NewBankClient(cfg, zerolog.Nop())

	result, err := client.Transfer(context.Background(), uuid.New(), bankDest(), decimal.NewFromInt(100), "NGN", "")
	require.NoError(t, err)

	assert.Equal(t, ports.TransferFailed, result.Outcome)
	assert.Equal(t, "INVALID_BANK_CODE", result.Reason)
}

func TestChainClient_Broadcast_Success(t *testing.T) {
	txID := uuid.New()
	assetID := uuid.New()
	var gotReq broadcastRequest
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/broadcasts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transferResponse{Status: "SUCCESS", Reference: "0xabc"})
	})
	client := NewChainClient(cfg, zerolog.Nop())

	dest := domain.ExternalWalletData{Address: "0x1234567890abcdef", Chain: "ethereum"}
	result, err := client.Broadcast(context.Background(), txID, dest, assetID, decimal.NewFromFloat(0.5))
	require.NoError(t, err)

	assert.Equal(t, ports.TransferSucceeded, result.Outcome)
	assert.Equal(t, "0xabc", result.Reference)
	assert.Equal(t, txID.String(), gotReq.Reference)
	assert.Equal(t, assetID.String(), gotReq.AssetID)
	assert.Equal(t, "ethereum", gotReq.Chain)
	assert.Equal(t, "0.5", gotReq.Amount)
}

func TestChainClient_Broadcast_UnknownStatusIsIndeterminate(t *testing.T) {
	cfg := railConfig(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transferResponse{Status: "PROCESSING"})
	})
	client := NewChainClient(cfg, zerolog.Nop())

	dest := domain.ExternalWalletData{Address: "0xdef", Chain: "ethereum"}
	result, err := client.Broadcast(context.Background(), uuid.New(), dest, uuid.New(), decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.Equal(t, ports.TransferIndeterminate, result.Outcome, "a not-yet-final provider status must not settle the withdrawal")
}
