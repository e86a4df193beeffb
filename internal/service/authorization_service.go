package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthorizationServiceImpl implements ports.AuthorizationVerifier. It checks
// the transaction PIN against the stored Argon2id hash and, when the session
// requires step-up, the PKCE code verifier against a single-use challenge.
// Repeated failures lock the owner out for a sliding window.
type AuthorizationServiceImpl struct {
	credRepo       ports.CredentialRepository
	hasher         ports.PINHasher
	challengeStore ports.ChallengeStore
	attemptStore   ports.FailedAttemptStore
	maxAttempts    int64
	lockoutWindow  time.Duration
	challengeTTL   time.Duration
	log            zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationServiceImpl.
func NewAuthorizationService(
	credRepo ports.CredentialRepository,
	hasher ports.PINHasher,
	challengeStore ports.ChallengeStore,
	attemptStore ports.FailedAttemptStore,
	maxAttempts int64,
	lockoutWindow time.Duration,
	challengeTTL time.Duration,
	log zerolog.Logger,
) *AuthorizationServiceImpl {
	return &AuthorizationServiceImpl{
		credRepo:       credRepo,
		hasher:         hasher,
		challengeStore: challengeStore,
		attemptStore:   attemptStore,
		maxAttempts:    maxAttempts,
		lockoutWindow:  lockoutWindow,
		challengeTTL:   challengeTTL,
		log:            log,
	}
}

// CreateChallenge stores a client-supplied S256 code challenge and returns
// the challenge record the client must reference when authorizing.
func (s *AuthorizationServiceImpl) CreateChallenge(ctx context.Context, codeChallenge string) (*domain.AuthChallenge, error) {
	if codeChallenge == "" {
		return nil, apperror.Validation("code_challenge is required")
	}

	challenge, err := domain.NewAuthChallenge(codeChallenge)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create challenge: %w", err))
	}

	if err := s.challengeStore.Put(ctx, challenge, s.challengeTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store challenge: %w", err))
	}

	s.log.Debug().
		Str("challenge_id", challenge.ChallengeID).
		Msg("authorization challenge created")

	return challenge, nil
}

// Verify checks the authorization proof for an owner. The lockout counter is
// consulted first so a locked account never reaches credential checks. Any
// supplied challenge is consumed on this call whether or not the proof
// matches.
func (s *AuthorizationServiceImpl) Verify(ctx context.Context, ownerID uuid.UUID, auth ports.Authorization) error {
	count, err := s.attemptStore.Count(ctx, ownerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lockout check: %w", err))
	}
	if count >= s.maxAttempts {
		s.log.Warn().
			Str("owner_id", ownerID.String()).
			Int64("failed_attempts", count).
			Msg("authorization rejected: account locked")
		return apperror.ErrAccountLocked()
	}

	pinHash, err := s.credRepo.GetPINHash(ctx, ownerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load pin hash: %w", err))
	}
	if pinHash == "" {
		return apperror.ErrInvalidCredential()
	}

	pinOK, err := s.hasher.Verify(auth.PIN, pinHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}

	// PKCE step-up: the challenge is one-shot. Consuming before comparing
	// guarantees a failed attempt cannot retry against the same challenge.
	pkceOK := true
	if auth.ChallengeID != "" {
		challenge, err := s.challengeStore.Consume(ctx, auth.ChallengeID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("consume challenge: %w", err))
		}
		if challenge == nil {
			return apperror.ErrChallengeExpiredOrReused()
		}
		computed := domain.ComputePKCEChallenge(auth.CodeVerifier)
		pkceOK = subtle.ConstantTimeCompare([]byte(computed), []byte(challenge.CodeChallenge)) == 1
	}

	if !pinOK || !pkceOK {
		failed, incErr := s.attemptStore.Increment(ctx, ownerID, s.lockoutWindow)
		if incErr != nil {
			s.log.Error().Err(incErr).
				Str("owner_id", ownerID.String()).
				Msg("failed to record failed authorization attempt")
		}
		s.log.Warn().
			Str("owner_id", ownerID.String()).
			Int64("failed_attempts", failed).
			Bool("pin_ok", pinOK).
			Msg("authorization proof rejected")
		return apperror.ErrInvalidCredential()
	}

	if err := s.attemptStore.Reset(ctx, ownerID); err != nil {
		s.log.Warn().Err(err).
			Str("owner_id", ownerID.String()).
			Msg("failed to reset lockout counter")
	}

	return nil
}
