package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"contentflow/internal/auth"
	"contentflow/internal/model"
	"contentflow/internal/repository"
)

const bcryptCost = 10

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = stderrors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when trying to register an existing user.
	ErrUserAlreadyExists = stderrors.New("user already exists")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = stderrors.New("invalid or expired refresh token")
)

// UserCreatedHook runs after the identity provider creates a user.
type UserCreatedHook func(ctx context.Context, p auth.Principal) (*model.Profile, error)

// AuthService is the bundled identity provider.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*model.Profile, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, profile *model.Profile, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	credRepo   repository.CredentialRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	onCreated  UserCreatedHook
}

// NewAuthService creates a new authentication service. onCreated receives
// every newly registered user and returns its profile.
func NewAuthService(credRepo repository.CredentialRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, onCreated UserCreatedHook) AuthService {
	return &authService{
		credRepo:   credRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		onCreated:  onCreated,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a login with a hashed password and fires the
// user-created hook.
func (s *authService) Register(ctx context.Context, email, password, name string) (*model.Profile, error) {
	email = normalizeEmail(email)

	// Check if user already exists
	existing, err := s.credRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	// If error is not "record not found", return it (could be a database error)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &model.Credential{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		// lost a race with a concurrent registration
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	profile, err := s.onCreated(ctx, auth.Principal{Subject: cred.ID, Email: cred.Email, Name: name})
	if err != nil {
		return nil, fmt.Errorf("user created hook: %w", err)
	}
	return profile, nil
}

// Login authenticates a user and returns access and refresh tokens. The
// profile is provisioned if it is somehow missing.
func (s *authService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, profile *model.Profile, err error) {
	cred, err := s.credRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	principal := auth.Principal{Subject: cred.ID, Email: cred.Email}
	profile, err = s.onCreated(ctx, principal)
	if err != nil {
		return "", "", nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.DisplayName != nil {
		principal.Name = *profile.DisplayName
	}

	accessToken, err = s.jwtService.GenerateAccessToken(principal)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(principal)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, principal, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, profile, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", ErrInvalidRefreshToken
	}

	stored, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if stored.Subject != claims.Subject || stored.Email != claims.Email {
		return "", ErrInvalidRefreshToken
	}

	accessToken, err = s.jwtService.GenerateAccessToken(*stored)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}
