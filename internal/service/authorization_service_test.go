package service

import (
	"context"
	"testing"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/internal/core/ports/mocks"
	"wallet-withdrawal-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testMaxAttempts   = int64(5)
	testLockoutWindow = 15 * time.Minute
	testChallengeTTL  = 5 * time.Minute
)

type authTestDeps struct {
	svc            *AuthorizationServiceImpl
	credRepo       *mocks.MockCredentialRepository
	hasher         *mocks.MockPINHasher
	challengeStore *mocks.MockChallengeStore
	attemptStore   *mocks.MockFailedAttemptStore
	ctrl           *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		credRepo:       mocks.NewMockCredentialRepository(ctrl),
		hasher:         mocks.NewMockPINHasher(ctrl),
		challengeStore: mocks.NewMockChallengeStore(ctrl),
		attemptStore:   mocks.NewMockFailedAttemptStore(ctrl),
		ctrl:           ctrl,
	}
	d.svc = NewAuthorizationService(
		d.credRepo, d.hasher, d.challengeStore, d.attemptStore,
		testMaxAttempts, testLockoutWindow, testChallengeTTL, zerolog.Nop(),
	)
	return d
}

func TestAuthorizationService_Verify_PINOnly_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(0), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("$argon2id$...", nil)
	d.hasher.EXPECT().Verify("123456", "$argon2id$...").Return(true, nil)
	d.attemptStore.EXPECT().Reset(ctx, ownerID).Return(nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{PIN: "123456"})
	require.NoError(t, err)
}

func TestAuthorizationService_Verify_AccountLocked(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(testMaxAttempts, nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{PIN: "123456"})
	assertAppError(t, err, "AUTH_003")
}

func TestAuthorizationService_Verify_WrongPIN(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(1), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("$argon2id$...", nil)
	d.hasher.EXPECT().Verify("999999", "$argon2id$...").Return(false, nil)
	d.attemptStore.EXPECT().Increment(ctx, ownerID, testLockoutWindow).Return(int64(2), nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{PIN: "999999"})
	assertAppError(t, err, "AUTH_001")
}

func TestAuthorizationService_Verify_NoStoredCredential(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(0), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("", nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{PIN: "123456"})
	assertAppError(t, err, "AUTH_001")
}

func TestAuthorizationService_Verify_PKCE_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	challenge := &domain.AuthChallenge{
		ChallengeID:   "ch-1",
		CodeChallenge: domain.ComputePKCEChallenge(verifier),
	}

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(0), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("hash", nil)
	d.hasher.EXPECT().Verify("123456", "hash").Return(true, nil)
	d.challengeStore.EXPECT().Consume(ctx, "ch-1").Return(challenge, nil)
	d.attemptStore.EXPECT().Reset(ctx, ownerID).Return(nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{
		PIN:          "123456",
		ChallengeID:  "ch-1",
		CodeVerifier: verifier,
	})
	require.NoError(t, err)
}

func TestAuthorizationService_Verify_PKCE_ExpiredOrReused(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(0), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("hash", nil)
	d.hasher.EXPECT().Verify("123456", "hash").Return(true, nil)
	d.challengeStore.EXPECT().Consume(ctx, "ch-gone").Return(nil, nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{
		PIN:          "123456",
		ChallengeID:  "ch-gone",
		CodeVerifier: "whatever",
	})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthorizationService_Verify_PKCE_VerifierMismatch(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()

	challenge := &domain.AuthChallenge{
		ChallengeID:   "ch-2",
		CodeChallenge: domain.ComputePKCEChallenge("the-real-verifier"),
	}

	d.attemptStore.EXPECT().Count(ctx, ownerID).Return(int64(0), nil)
	d.credRepo.EXPECT().GetPINHash(ctx, ownerID).Return("hash", nil)
	d.hasher.EXPECT().Verify("123456", "hash").Return(true, nil)
	d.challengeStore.EXPECT().Consume(ctx, "ch-2").Return(challenge, nil)
	d.attemptStore.EXPECT().Increment(ctx, ownerID, testLockoutWindow).Return(int64(1), nil)

	err := d.svc.Verify(ctx, ownerID, ports.Authorization{
		PIN:          "123456",
		ChallengeID:  "ch-2",
		CodeVerifier: "a-different-verifier",
	})
	assertAppError(t, err, "AUTH_001")
}

func TestAuthorizationService_CreateChallenge(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	codeChallenge := domain.ComputePKCEChallenge("some-verifier")

	d.challengeStore.EXPECT().
		Put(ctx, gomock.Any(), testChallengeTTL).
		Return(nil)

	challenge, err := d.svc.CreateChallenge(ctx, codeChallenge)
	require.NoError(t, err)
	require.NotNil(t, challenge)
	assert.NotEmpty(t, challenge.ChallengeID)
	assert.NotEmpty(t, challenge.Nonce)
	assert.Equal(t, codeChallenge, challenge.CodeChallenge)
}

func TestAuthorizationService_CreateChallenge_MissingChallenge(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	challenge, err := d.svc.CreateChallenge(context.Background(), "")
	assert.Nil(t, challenge)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
}
