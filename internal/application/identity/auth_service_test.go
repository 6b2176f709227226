package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/libinsight/backend/internal/domain/identity"
	"github.com/libinsight/backend/internal/domain/shared"
	"github.com/libinsight/backend/internal/infrastructure/auth"
	"github.com/libinsight/backend/internal/infrastructure/config"
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

// Helper function to create a test user
func createTestUser() *identity.User {
	user, _ := identity.NewUser("Test Reader", "reader@example.com", "Password123")
	return user
}

// Helper function to create auth service
func createAuthService(userRepo *MockUserRepository, blacklist auth.TokenBlacklist) *AuthService {
	jwtCfg := config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
	jwtService := auth.NewJWTService(jwtCfg)
	logger := zap.NewNop()

	return NewAuthService(
		userRepo,
		jwtService,
		blacklist,
		DefaultAuthServiceConfig(),
		logger,
	)
}

func TestAuthService_Register_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userRepo.On("ExistsByEmail", ctx, "reader@example.com").Return(false, nil)
	userRepo.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	authService := createAuthService(userRepo, nil)

	result, err := authService.Register(ctx, RegisterInput{
		DisplayName: "Test Reader",
		Email:       "Reader@Example.com",
		Password:    "Password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", result.User.Email)
	assert.Equal(t, "Test Reader", result.User.DisplayName)
	assert.Equal(t, string(identity.UserStatusActive), result.User.Status)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmailAlreadyExists(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userRepo.On("ExistsByEmail", ctx, "reader@example.com").Return(true, nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Register(ctx, RegisterInput{
		DisplayName: "Test Reader",
		Email:       "reader@example.com",
		Password:    "Password123",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", domainErr.Code)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userRepo.On("ExistsByEmail", ctx, "reader@example.com").Return(false, nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Register(ctx, RegisterInput{
		DisplayName: "Test Reader",
		Email:       "reader@example.com",
		Password:    "short",
	})

	require.Error(t, err)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_RepoError(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userRepo.On("ExistsByEmail", ctx, "reader@example.com").Return(false, nil)
	userRepo.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(errors.New("db down"))

	authService := createAuthService(userRepo, nil)

	_, err := authService.Register(ctx, RegisterInput{
		DisplayName: "Test Reader",
		Email:       "reader@example.com",
		Password:    "Password123",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, "reader@example.com", result.User.Email)
	assert.NotNil(t, user.LastLoginAt)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userRepo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Login(ctx, LoginInput{
		Email:    "nobody@example.com",
		Password: "Password123",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "WrongPassword1",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	assert.Equal(t, 1, user.FailedAttempts)
}

func TestAuthService_Login_LockedAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()
	user.FailedAttempts = DefaultAuthServiceConfig().MaxLoginAttempts - 1

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "WrongPassword1",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
	assert.True(t, user.IsLocked())
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()
	require.NoError(t, user.Lock(15*time.Minute))

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()
	require.NoError(t, user.Deactivate())

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)

	authService := createAuthService(userRepo, nil)

	_, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", domainErr.Code)
}

func TestAuthService_RefreshToken_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, auth.NewInMemoryTokenBlacklist())

	loginResult, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
	})
	require.NoError(t, err)

	result, err := authService.RefreshToken(ctx, RefreshTokenInput{
		RefreshToken: loginResult.RefreshToken,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
}

func TestAuthService_RefreshToken_InvalidToken(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	authService := createAuthService(userRepo, nil)

	_, err := authService.RefreshToken(ctx, RefreshTokenInput{
		RefreshToken: "not-a-token",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
}

func TestAuthService_RefreshToken_InactiveUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, nil)

	loginResult, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
	})
	require.NoError(t, err)

	require.NoError(t, user.Deactivate())

	_, err = authService.RefreshToken(ctx, RefreshTokenInput{
		RefreshToken: loginResult.RefreshToken,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_INACTIVE", domainErr.Code)
}

func TestAuthService_RefreshToken_InvalidatedByLogoutAll(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()

	userRepo.On("FindByEmail", ctx, "reader@example.com").Return(user, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	blacklist := auth.NewInMemoryTokenBlacklist()
	authService := createAuthService(userRepo, blacklist)

	loginResult, err := authService.Login(ctx, LoginInput{
		Email:    "reader@example.com",
		Password: "Password123",
	})
	require.NoError(t, err)

	// Invalidation timestamps have second granularity
	time.Sleep(1100 * time.Millisecond)

	err = authService.Logout(ctx, LogoutInput{
		UserID:     user.ID,
		AllDevices: true,
	})
	require.NoError(t, err)

	_, err = authService.RefreshToken(ctx, RefreshTokenInput{
		RefreshToken: loginResult.RefreshToken,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
}

func TestAuthService_Logout_BlacklistsToken(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	blacklist := auth.NewInMemoryTokenBlacklist()
	authService := createAuthService(userRepo, blacklist)

	err := authService.Logout(ctx, LogoutInput{
		UserID:   uuid.New(),
		TokenJTI: "token-jti-1",
		TokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	blacklisted, err := blacklist.IsBlacklisted(ctx, "token-jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestAuthService_Logout_NilBlacklist(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	authService := createAuthService(userRepo, nil)

	err := authService.Logout(ctx, LogoutInput{
		UserID:   uuid.New(),
		TokenJTI: "token-jti-1",
		TokenTTL: 15 * time.Minute,
	})
	assert.NoError(t, err)
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	authService := createAuthService(userRepo, nil)

	result, err := authService.GetCurrentUser(ctx, GetCurrentUserInput{UserID: user.ID})

	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, "reader@example.com", result.User.Email)
}

func TestAuthService_GetCurrentUser_NotFound(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	userID := uuid.New()
	userRepo.On("FindByID", ctx, userID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, nil)

	_, err := authService.GetCurrentUser(ctx, GetCurrentUserInput{UserID: userID})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "USER_NOT_FOUND", domainErr.Code)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		user := createTestUser()

		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		userRepo.On("Update", ctx, user).Return(nil)

		authService := createAuthService(userRepo, nil)

		err := authService.ChangePassword(ctx, ChangePasswordInput{
			UserID:      user.ID,
			OldPassword: "Password123",
			NewPassword: "NewPassword456",
		})

		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("NewPassword456"))
	})

	t.Run("wrong old password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		user := createTestUser()

		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		authService := createAuthService(userRepo, nil)

		err := authService.ChangePassword(ctx, ChangePasswordInput{
			UserID:      user.ID,
			OldPassword: "WrongPassword1",
			NewPassword: "NewPassword456",
		})

		require.Error(t, err)
		assert.True(t, user.VerifyPassword("Password123"))
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	user := createTestUser()
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, nil)

	result, err := authService.UpdateProfile(ctx, UpdateProfileInput{
		UserID:      user.ID,
		DisplayName: "Renamed Reader",
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed Reader", result.User.DisplayName)
}
