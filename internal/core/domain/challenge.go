package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// AuthChallenge is a single-use PKCE challenge bound to an authorization
// attempt. It is stored server-side for a short window and consumed on the
// first verification attempt, match or not.
type AuthChallenge struct {
	ChallengeID   string `json:"challenge_id"`
	CodeChallenge string `json:"code_challenge"`
	Nonce         string `json:"nonce"`
}

// NewAuthChallenge creates a challenge record for a client-supplied
// code_challenge (already S256-hashed by the client).
func NewAuthChallenge(codeChallenge string) (*AuthChallenge, error) {
	id, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	return &AuthChallenge{
		ChallengeID:   id,
		CodeChallenge: codeChallenge,
		Nonce:         nonce,
	}, nil
}

// ComputePKCEChallenge derives the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func ComputePKCEChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
