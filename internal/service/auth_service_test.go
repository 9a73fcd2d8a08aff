package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gocms/internal/auth"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hashed)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		email     string
		setupMock func(repo *MockUserRepository)
		wantErr   error
	}{
		{
			name:     "successful registration",
			username: "alice",
			email:    "alice@example.com",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound)
				repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				repo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "duplicate username",
			username: "taken",
			email:    "new@example.com",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "taken").Return(&model.User{ID: 1, Username: "taken"}, nil)
			},
			wantErr: apperrors.ErrConflict,
		},
		{
			name:     "duplicate email",
			username: "newuser",
			email:    "taken@example.com",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "newuser").Return(nil, gorm.ErrRecordNotFound)
				repo.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{ID: 2}, nil)
			},
			wantErr: apperrors.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			tt.setupMock(userRepo)

			svc := NewAuthService(userRepo, testJWTService(), new(MockTokenStore), 2)
			user, err := svc.Register(context.Background(), tt.username, tt.email, "password123")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.username, user.Username)
				assert.Equal(t, uint(2), user.GroupID)
				assert.NotEqual(t, "password123", user.PasswordHash)
			}
			userRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash := hashFor(t, "correct-password")
	group := &model.UserGroup{ID: 2, CanAddComments: true}

	tests := []struct {
		name      string
		login     string
		password  string
		setupMock func(repo *MockUserRepository)
		wantErr   error
	}{
		{
			name:     "login by username",
			login:    "bob",
			password: "correct-password",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "bob").
					Return(&model.User{ID: 1, Username: "bob", PasswordHash: hash, IsActive: true, GroupID: 2, Group: group}, nil)
				repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "login falls back to email",
			login:    "bob@example.com",
			password: "correct-password",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "bob@example.com").Return(nil, gorm.ErrRecordNotFound)
				repo.On("FindByEmail", mock.Anything, "bob@example.com").
					Return(&model.User{ID: 1, Username: "bob", PasswordHash: hash, IsActive: true, GroupID: 2, Group: group}, nil)
				repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "wrong password",
			login:    "bob",
			password: "wrong",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "bob").
					Return(&model.User{ID: 1, PasswordHash: hash, IsActive: true}, nil)
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			login:    "ghost",
			password: "correct-password",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
				repo.On("FindByEmail", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "banned account",
			login:    "banned",
			password: "correct-password",
			setupMock: func(repo *MockUserRepository) {
				repo.On("FindByUsername", mock.Anything, "banned").
					Return(&model.User{ID: 3, PasswordHash: hash, IsActive: true, IsBanned: true}, nil)
			},
			wantErr: apperrors.ErrAccountDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			tt.setupMock(userRepo)

			svc := NewAuthService(userRepo, testJWTService(), new(MockTokenStore), 2)
			pair, user, err := svc.Login(context.Background(), tt.login, tt.password, "10.0.0.1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pair)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, pair.AccessToken)
				assert.NotEmpty(t, pair.RefreshToken)
				assert.NotNil(t, user.LastLogin)
				assert.Equal(t, "10.0.0.1", user.LastIP)
			}
			userRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_TokenCarriesPermissionSnapshot(t *testing.T) {
	hash := hashFor(t, "pw")
	group := &model.UserGroup{ID: 3, CanAddPosts: true, CanAddComments: true}

	userRepo := new(MockUserRepository)
	userRepo.On("FindByUsername", mock.Anything, "editor").
		Return(&model.User{ID: 5, PasswordHash: hash, IsActive: true, GroupID: 3, Group: group}, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	jwtService := testJWTService()
	svc := NewAuthService(userRepo, jwtService, new(MockTokenStore), 2)

	pair, _, err := svc.Login(context.Background(), "editor", "pw", "")
	assert.NoError(t, err)

	claims, err := jwtService.Validate(pair.AccessToken, auth.TokenTypeAccess)
	assert.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, uint(3), claims.GroupID)
	assert.True(t, claims.Permissions.CanAddPosts)
	assert.False(t, claims.Permissions.CanDeletePosts)
}

func TestAuthService_Refresh(t *testing.T) {
	jwtService := testJWTService()
	pair, err := jwtService.IssuePair(7, 2, model.PermissionSet{CanAddComments: true})
	assert.NoError(t, err)
	refreshClaims, err := jwtService.Validate(pair.RefreshToken, auth.TokenTypeRefresh)
	assert.NoError(t, err)

	t.Run("valid refresh re-reads permissions", func(t *testing.T) {
		// Group changed since issue; the new pair must reflect it.
		group := &model.UserGroup{ID: 3, CanAddPosts: true}
		userRepo := new(MockUserRepository)
		userRepo.On("FindByID", mock.Anything, uint(7)).
			Return(&model.User{ID: 7, IsActive: true, GroupID: 3, Group: group}, nil)
		tokenStore := new(MockTokenStore)
		tokenStore.On("IsRefreshTokenDenied", mock.Anything, refreshClaims.ID).Return(false, nil)

		svc := NewAuthService(userRepo, jwtService, tokenStore, 2)
		newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
		assert.NoError(t, err)

		claims, err := jwtService.Validate(newPair.AccessToken, auth.TokenTypeAccess)
		assert.NoError(t, err)
		assert.Equal(t, uint(3), claims.GroupID)
		assert.True(t, claims.Permissions.CanAddPosts)
		userRepo.AssertExpectations(t)
		tokenStore.AssertExpectations(t)
	})

	t.Run("denylisted refresh token rejected", func(t *testing.T) {
		tokenStore := new(MockTokenStore)
		tokenStore.On("IsRefreshTokenDenied", mock.Anything, refreshClaims.ID).Return(true, nil)

		svc := NewAuthService(new(MockUserRepository), jwtService, tokenStore, 2)
		newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Nil(t, newPair)
	})

	t.Run("access token rejected where refresh expected", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore), 2)
		newPair, err := svc.Refresh(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrWrongTokenType)
		assert.Nil(t, newPair)
	})

	t.Run("banned user cannot refresh", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("FindByID", mock.Anything, uint(7)).
			Return(&model.User{ID: 7, IsActive: true, IsBanned: true}, nil)
		tokenStore := new(MockTokenStore)
		tokenStore.On("IsRefreshTokenDenied", mock.Anything, refreshClaims.ID).Return(false, nil)

		svc := NewAuthService(userRepo, jwtService, tokenStore, 2)
		newPair, err := svc.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
		assert.Nil(t, newPair)
	})
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := testJWTService()
	pair, err := jwtService.IssuePair(9, 2, model.PermissionSet{})
	assert.NoError(t, err)
	refreshClaims, err := jwtService.Validate(pair.RefreshToken, auth.TokenTypeRefresh)
	assert.NoError(t, err)

	tokenStore := new(MockTokenStore)
	tokenStore.On("DenyRefreshToken", mock.Anything, refreshClaims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= 7*24*time.Hour
	})).Return(nil)

	svc := NewAuthService(new(MockUserRepository), jwtService, tokenStore, 2)
	err = svc.Logout(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
	tokenStore.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	hash := hashFor(t, "old-password")

	t.Run("wrong old password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("FindByID", mock.Anything, uint(1)).
			Return(&model.User{ID: 1, PasswordHash: hash}, nil)

		svc := NewAuthService(userRepo, testJWTService(), new(MockTokenStore), 2)
		err := svc.ChangePassword(context.Background(), 1, "not-the-old-one", "new-password")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("success stores new hash", func(t *testing.T) {
		user := &model.User{ID: 1, PasswordHash: hash}
		userRepo := new(MockUserRepository)
		userRepo.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
		userRepo.On("Update", mock.Anything, user).Return(nil)

		svc := NewAuthService(userRepo, testJWTService(), new(MockTokenStore), 2)
		err := svc.ChangePassword(context.Background(), 1, "old-password", "new-password")
		assert.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
		userRepo.AssertExpectations(t)
	})
}
