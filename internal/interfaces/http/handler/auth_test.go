package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/libinsight/backend/internal/application/identity"
	"github.com/libinsight/backend/internal/domain/identity"
	"github.com/libinsight/backend/internal/infrastructure/auth"
	"github.com/libinsight/backend/internal/infrastructure/config"
	"github.com/libinsight/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	})
}

func newTestAuthHandler(userRepo *MockUserRepository, blacklist auth.TokenBlacklist) *AuthHandler {
	svc := appidentity.NewAuthService(
		userRepo,
		testJWTService(),
		blacklist,
		appidentity.DefaultAuthServiceConfig(),
		zap.NewNop(),
	)
	return NewAuthHandler(svc)
}

func newAuthTestRouter(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

// authenticated wires the handler behind a stub that injects JWT context
// the same way the auth middleware does.
func authenticatedRouter(h *AuthHandler, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.JWTClaimsKey, claims)
			c.Set(middleware.JWTUserIDKey, claims.UserID)
		}
		c.Next()
	})
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeEnvelope(t, w)
	errInfo, ok := resp["error"].(map[string]any)
	require.True(t, ok, "response should carry an error object")
	code, _ := errInfo["code"].(string)
	return code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("ExistsByEmail", mock.Anything, "reader@example.com").Return(false, nil)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	w := postJSON(t, router, "/api/v1/auth/register", RegisterRequest{
		DisplayName: "Test Reader",
		Email:       "Reader@Example.com",
		Password:    "Password123",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "reader@example.com", user["email"])
	assert.Equal(t, "Test Reader", user["display_name"])
	userRepo.AssertExpectations(t)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	userRepo := new(MockUserRepository)
	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	tests := []struct {
		name string
		body RegisterRequest
	}{
		{"missing email", RegisterRequest{DisplayName: "Reader", Password: "Password123"}},
		{"invalid email", RegisterRequest{DisplayName: "Reader", Email: "not-an-email", Password: "Password123"}},
		{"short password", RegisterRequest{DisplayName: "Reader", Email: "reader@example.com", Password: "short"}},
		{"missing display name", RegisterRequest{Email: "reader@example.com", Password: "Password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	userRepo.AssertNotCalled(t, "Create")
}

func TestAuthHandler_Register_EmailAlreadyExists(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("ExistsByEmail", mock.Anything, "reader@example.com").Return(true, nil)

	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	w := postJSON(t, router, "/api/v1/auth/register", RegisterRequest{
		DisplayName: "Test Reader",
		Email:       "reader@example.com",
		Password:    "Password123",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", errorCode(t, w))
}

func TestAuthHandler_Login_Success(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "reader@example.com").Return(user, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	w := postJSON(t, router, "/api/v1/auth/login", LoginRequest{
		Email:    "reader@example.com",
		Password: "Password123",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	data := resp["data"].(map[string]any)
	token := data["token"].(map[string]any)
	assert.NotEmpty(t, token["access_token"])
	assert.NotEmpty(t, token["refresh_token"])
	assert.Equal(t, "Bearer", token["token_type"])
	loggedIn := data["user"].(map[string]any)
	assert.Equal(t, "reader@example.com", loggedIn["email"])
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "reader@example.com").Return(user, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	w := postJSON(t, router, "/api/v1/auth/login", LoginRequest{
		Email:    "reader@example.com",
		Password: "WrongPassword1",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	userRepo := new(MockUserRepository)
	router := newAuthTestRouter(newTestAuthHandler(userRepo, nil))

	w := postJSON(t, router, "/api/v1/auth/refresh", RefreshTokenRequest{
		RefreshToken: "not-a-real-token",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout_BlacklistsToken(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	jwtService := testJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	blacklist := auth.NewInMemoryTokenBlacklist()
	userRepo := new(MockUserRepository)
	handler := newTestAuthHandler(userRepo, blacklist)

	router := authenticatedRouter(handler, claims)
	w := postJSON(t, router, "/api/v1/auth/logout", LogoutRequest{})

	require.Equal(t, http.StatusOK, w.Code)
	blacklisted, err := blacklist.IsBlacklisted(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestAuthHandler_Logout_Unauthenticated(t *testing.T) {
	userRepo := new(MockUserRepository)
	router := authenticatedRouter(newTestAuthHandler(userRepo, nil), nil)

	w := postJSON(t, router, "/api/v1/auth/logout", LogoutRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	jwtService := testJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	router := authenticatedRouter(newTestAuthHandler(userRepo, nil), claims)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	data := resp["data"].(map[string]any)
	me := data["user"].(map[string]any)
	assert.Equal(t, user.ID.String(), me["id"])
	assert.Equal(t, "reader@example.com", me["email"])
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	userRepo := new(MockUserRepository)
	router := authenticatedRouter(newTestAuthHandler(userRepo, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	jwtService := testJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	router := authenticatedRouter(newTestAuthHandler(userRepo, nil), claims)

	w := postJSON(t, router, "/api/v1/auth/password", nil)
	assert.Equal(t, http.StatusNotFound, w.Code) // password change is a PUT

	payload, err := json.Marshal(ChangePasswordRequest{
		OldPassword: "Password123",
		NewPassword: "NewPassword456",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/password", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, user.VerifyPassword("NewPassword456"))
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	user, err := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	require.NoError(t, err)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	jwtService := testJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	router := authenticatedRouter(newTestAuthHandler(userRepo, nil), claims)

	payload, err := json.Marshal(UpdateProfileRequest{DisplayName: "Renamed Reader"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	data := resp["data"].(map[string]any)
	profile := data["user"].(map[string]any)
	assert.Equal(t, "Renamed Reader", profile["display_name"])
}
