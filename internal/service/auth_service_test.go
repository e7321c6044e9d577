package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"contentflow/internal/auth"
	"contentflow/internal/model"
)

// MockCredentialRepository is a mock implementation of CredentialRepository.
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	args := m.Called(ctx, cred)
	if cred.ID == "" {
		cred.ID = "generated-subject"
	}
	return args.Error(0)
}

func (m *MockCredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, p auth.Principal, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, p, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (*auth.Principal, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Principal), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// recordingHook stands in for profile provisioning.
type recordingHook struct {
	seen []auth.Principal
}

func (h *recordingHook) provision(_ context.Context, p auth.Principal) (*model.Profile, error) {
	h.seen = append(h.seen, p)
	return &model.Profile{ID: p.Subject, Email: p.Email}, nil
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		nameField     string
		setupMock     func(*MockCredentialRepository)
		expectedError error
		hookCalls     int
	}{
		{
			name:      "successful registration",
			email:     " Test@Example.com ",
			password:  "password123",
			nameField: "Test User",
			setupMock: func(m *MockCredentialRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Credential")).Return(nil)
			},
			hookCalls: 1,
		},
		{
			name:      "user already exists",
			email:     "existing@example.com",
			password:  "password123",
			nameField: "Existing User",
			setupMock: func(m *MockCredentialRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.Credential{Email: "existing@example.com"}, nil)
			},
			expectedError: ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCredentialRepository)
			tt.setupMock(mockRepo)
			hook := &recordingHook{}

			svc := NewAuthService(mockRepo, auth.NewJWTService("test-secret"), new(MockTokenStore), hook.provision)
			profile, err := svc.Register(context.Background(), tt.email, tt.password, tt.nameField)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, profile)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "test@example.com", profile.Email)
				assert.Equal(t, "generated-subject", profile.ID)
			}
			require.Len(t, hook.seen, tt.hookCalls)
			if tt.hookCalls > 0 {
				assert.Equal(t, tt.nameField, hook.seen[0].Name)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

var errTokenStoreDown = stderrors.New("redis down")

func TestAuthService_Login(t *testing.T) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcryptCost)
	require.NoError(t, err)
	cred := &model.Credential{ID: "sub-1", Email: "test@example.com", PasswordHash: string(hashedPassword)}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockCredentialRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockCredentialRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(cred, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, auth.Principal{Subject: "sub-1", Email: "test@example.com"}, auth.RefreshTokenExpiry).Return(nil)
			},
		},
		{
			name:     "refresh token not persisted",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockCredentialRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(cred, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, auth.RefreshTokenExpiry).Return(errTokenStoreDown)
			},
			expectedError: errTokenStoreDown,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "nope",
			setupMock: func(mRepo *MockCredentialRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(cred, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(mRepo *MockCredentialRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCredentialRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)
			hook := &recordingHook{}

			jwtService := auth.NewJWTService("test-secret")
			svc := NewAuthService(mockRepo, jwtService, mockTokenStore, hook.provision)

			accessToken, refreshToken, profile, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
				assert.Nil(t, profile)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, refreshToken)
				assert.Equal(t, "sub-1", profile.ID)

				principal, err := jwtService.Authenticate(context.Background(), accessToken)
				require.NoError(t, err)
				assert.Equal(t, "sub-1", principal.Subject)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	principal := auth.Principal{Subject: "sub-1", Email: "test@example.com"}
	tokenID, refreshToken, err := jwtService.GenerateRefreshToken(principal)
	require.NoError(t, err)

	t.Run("refresh issues access token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(&principal, nil)
		svc := NewAuthService(new(MockCredentialRepository), jwtService, store, nil)

		access, err := svc.RefreshToken(context.Background(), refreshToken)
		require.NoError(t, err)
		got, err := jwtService.Authenticate(context.Background(), access)
		require.NoError(t, err)
		assert.Equal(t, principal.Subject, got.Subject)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(nil, assert.AnError)
		svc := NewAuthService(new(MockCredentialRepository), jwtService, store, nil)

		_, err := svc.RefreshToken(context.Background(), refreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		access, err := jwtService.GenerateAccessToken(principal)
		require.NoError(t, err)
		svc := NewAuthService(new(MockCredentialRepository), jwtService, new(MockTokenStore), nil)

		_, err = svc.RefreshToken(context.Background(), access)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("logout deletes the token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
		svc := NewAuthService(new(MockCredentialRepository), jwtService, store, nil)

		require.NoError(t, svc.Logout(context.Background(), refreshToken))
		store.AssertExpectations(t)
	})
}
