package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawal_CanTransition(t *testing.T) {
	cases := []struct {
		from    WithdrawalState
		to      WithdrawalState
		allowed bool
	}{
		{WithdrawalStatePending, WithdrawalStateAuthorized, true},
		{WithdrawalStatePending, WithdrawalStateExecuting, false},
		{WithdrawalStatePending, WithdrawalStateCompleted, false},
		{WithdrawalStatePending, WithdrawalStateFailed, true},
		{WithdrawalStateAuthorized, WithdrawalStateExecuting, true},
		{WithdrawalStateAuthorized, WithdrawalStateCompleted, false},
		{WithdrawalStateExecuting, WithdrawalStateCompleted, true},
		{WithdrawalStateExecuting, WithdrawalStateFailed, true},
		{WithdrawalStateExecuting, WithdrawalStateAuthorized, false},
		{WithdrawalStateCompleted, WithdrawalStateFailed, false},
		{WithdrawalStateFailed, WithdrawalStateCompleted, false},
		{WithdrawalStateFailed, WithdrawalStateExecuting, false},
	}

	for _, tc := range cases {
		w := &Withdrawal{State: tc.from}
		assert.Equal(t, tc.allowed, w.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestWithdrawal_IsTerminal(t *testing.T) {
	assert.False(t, (&Withdrawal{State: WithdrawalStatePending}).IsTerminal())
	assert.False(t, (&Withdrawal{State: WithdrawalStateExecuting}).IsTerminal())
	assert.True(t, (&Withdrawal{State: WithdrawalStateCompleted}).IsTerminal())
	assert.True(t, (&Withdrawal{State: WithdrawalStateFailed}).IsTerminal())
}

func TestResolveDestination_BankTransfer(t *testing.T) {
	raw := json.RawMessage(`{"bank_code":"044","account_number":"123-456 7890","account_name":"John Doe"}`)

	dest, err := ResolveDestination(DestinationBankTransfer, raw)
	require.NoError(t, err)
	require.NotNil(t, dest.Bank)
	assert.Nil(t, dest.Wallet)
	assert.Equal(t, "044", dest.Bank.BankCode)
	assert.Equal(t, "1234567890", dest.Bank.AccountNumber, "account number should be normalized to digits")
	assert.Equal(t, "John Doe", dest.Bank.AccountName)
}

func TestResolveDestination_BankTransferMissingFields(t *testing.T) {
	cases := []string{
		`{"account_number":"1234567890","account_name":"John Doe"}`,
		`{"bank_code":"044","account_number":"12345","account_name":"John Doe"}`,
		`{"bank_code":"044","account_number":"12345678AB","account_name":"John Doe"}`,
		`{"bank_code":"044","account_number":"1234567890"}`,
	}
	for _, raw := range cases {
		_, err := ResolveDestination(DestinationBankTransfer, json.RawMessage(raw))
		require.Error(t, err, raw)
		var destErr *DestinationError
		assert.ErrorAs(t, err, &destErr, raw)
	}
}

func TestResolveDestination_ExternalWallet(t *testing.T) {
	raw := json.RawMessage(`{"address":"0xAbCd1234Ef567890aBcD1234eF567890AbCd1234","chain":"base"}`)

	dest, err := ResolveDestination(DestinationExternalWallet, raw)
	require.NoError(t, err)
	require.NotNil(t, dest.Wallet)
	assert.Equal(t, "base", dest.Wallet.Chain)
}

func TestResolveDestination_ExternalWalletMissingFields(t *testing.T) {
	_, err := ResolveDestination(DestinationExternalWallet, json.RawMessage(`{"chain":"base"}`))
	require.Error(t, err)

	_, err = ResolveDestination(DestinationExternalWallet, json.RawMessage(`{"address":"0xabc"}`))
	require.Error(t, err)
}

func TestResolveDestination_UnknownEvent(t *testing.T) {
	_, err := ResolveDestination("withdraw:carrier-pigeon", json.RawMessage(`{}`))
	require.Error(t, err)
	var unsupported *UnsupportedDestinationError
	assert.ErrorAs(t, err, &unsupported)
}

func TestDestination_Summary(t *testing.T) {
	bank := Destination{
		Event: DestinationBankTransfer,
		Bank:  &BankTransferData{BankCode: "044", AccountNumber: "1234567890", AccountName: "John Doe"},
	}
	assert.Equal(t, "bank 044 ****7890", bank.Summary())

	wallet := Destination{
		Event:  DestinationExternalWallet,
		Wallet: &ExternalWalletData{Address: "0xAbCd1234Ef56", Chain: "base"},
	}
	assert.Equal(t, "base:0xAbCd...Ef56", wallet.Summary())
}

func TestComputePKCEChallenge(t *testing.T) {
	// RFC 7636 appendix B test vector.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", ComputePKCEChallenge(verifier))
}

func TestNewAuthChallenge(t *testing.T) {
	c, err := NewAuthChallenge("some-code-challenge")
	require.NoError(t, err)
	assert.Len(t, c.ChallengeID, 32)
	assert.Len(t, c.Nonce, 32)
	assert.Equal(t, "some-code-challenge", c.CodeChallenge)

	c2, err := NewAuthChallenge("some-code-challenge")
	require.NoError(t, err)
	assert.NotEqual(t, c.ChallengeID, c2.ChallengeID)
}
