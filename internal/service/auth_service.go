package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gocms/internal/auth"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
	"gocms/internal/repository"
)

const bcryptCost = 10

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, login, password, ip string) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
}

type authService struct {
	userRepo       repository.UserRepository
	jwtService     *auth.JWTService
	tokenStore     auth.TokenStoreInterface
	defaultGroupID uint
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, defaultGroupID uint) AuthService {
	return &authService{
		userRepo:       userRepo,
		jwtService:     jwtService,
		tokenStore:     tokenStore,
		defaultGroupID: defaultGroupID,
	}
}

// Register creates a new user with hashed password in the default group.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username already registered: %w", apperrors.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		GroupID:      s.defaultGroupID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates by username or email and returns a token pair. Lookup
// and password failures collapse into the same error so the response does
// not leak which part was wrong.
func (s *authService) Login(ctx context.Context, login, password, ip string) (*auth.TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.userRepo.FindByEmail(ctx, login)
	}
	if err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive || user.IsBanned {
		return nil, nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.issueFor(user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	user.LastIP = ip
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("record login: %w", err)
	}

	return pair, user, nil
}

// Refresh validates a refresh token and issues a new access/refresh pair.
// The previous refresh token is not revoked; it stays valid until its own
// expiry. The permission snapshot is re-read so group changes take effect.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtService.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	denied, err := s.tokenStore.IsRefreshTokenDenied(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if denied {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !user.IsActive || user.IsBanned {
		return nil, apperrors.ErrAccountDisabled
	}

	return s.issueFor(user)
}

// Logout denylists the presented refresh token for its remaining lifetime.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	return s.tokenStore.DenyRefreshToken(ctx, claims.ID, ttl)
}

// ChangePassword verifies the old password before storing a new hash.
func (s *authService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	return s.userRepo.Update(ctx, user)
}

func (s *authService) issueFor(user *model.User) (*auth.TokenPair, error) {
	var perms model.PermissionSet
	if user.Group != nil {
		perms = user.Group.Permissions()
	}
	pair, err := s.jwtService.IssuePair(user.ID, user.GroupID, perms)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}
