package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runSessionAuth(t *testing.T, tokenSvc ports.TokenService, setup func(*http.Request)) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(c.Request)
	}
	SessionAuth(tokenSvc, zerolog.Nop())(c)
	return w, c
}

func TestSessionAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("valid-token").Return(&ports.TokenClaims{
		OwnerID:  ownerID,
		DeviceID: "device-1",
	}, nil)

	w, c := runSessionAuth(t, tokenSvc, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer valid-token")
		r.Header.Set(HeaderDeviceID, "device-1")
	})

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)

	got, ok := OwnerID(c)
	assert.True(t, ok)
	assert.Equal(t, ownerID, got)
}

func TestSessionAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)

	w, c := runSessionAuth(t, tokenSvc, nil)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("bad").Return(nil, errors.New("token expired"))

	w, c := runSessionAuth(t, tokenSvc, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer bad")
		r.Header.Set(HeaderDeviceID, "device-1")
	})

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_DeviceMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("valid-token").Return(&ports.TokenClaims{
		OwnerID:  uuid.New(),
		DeviceID: "device-1",
	}, nil)

	w, c := runSessionAuth(t, tokenSvc, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer valid-token")
		r.Header.Set(HeaderDeviceID, "device-2")
	})

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_005")
}

func TestSessionAuth_MissingDeviceHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("valid-token").Return(&ports.TokenClaims{
		OwnerID:  uuid.New(),
		DeviceID: "device-1",
	}, nil)

	w, c := runSessionAuth(t, tokenSvc, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer valid-token")
	})

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequestID()(c)

	id, ok := c.Get("request_id")
	assert.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestRequestID_HonorsInbound(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Request-ID", "req-abc")

	RequestID()(c)

	id, _ := c.Get("request_id")
	assert.Equal(t, "req-abc", id)
}

func TestRecovery_CatchesPanic(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}

func TestMaxBodySize_RejectsOversized(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(16))
	r.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	body := bytes.NewReader([]byte(strings.Repeat("x", 64)))
	req := httptest.NewRequest(http.MethodPost, "/", body)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMaxBodySize_AllowsSmall(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(1 << 10))
	r.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("ok")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
