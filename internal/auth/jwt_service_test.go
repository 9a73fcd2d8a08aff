package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "gocms/internal/errors"
	"gocms/internal/model"
)

func TestJWTService_IssuePair(t *testing.T) {
	svc := NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)

	perms := model.PermissionSet{CanAddPosts: true, CanAddComments: true}
	pair, err := svc.IssuePair(42, 3, perms)
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64(1800), pair.ExpiresIn)

	claims, err := svc.Validate(pair.AccessToken, TokenTypeAccess)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, uint(3), claims.GroupID)
	assert.Equal(t, perms, claims.Permissions)
	assert.Empty(t, claims.ID)

	refreshClaims, err := svc.Validate(pair.RefreshToken, TokenTypeRefresh)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), refreshClaims.UserID)
	assert.NotEmpty(t, refreshClaims.ID, "refresh token must carry a jti for the denylist")
}

func TestJWTService_Validate_WrongTokenType(t *testing.T) {
	svc := NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)
	pair, err := svc.IssuePair(1, 1, model.PermissionSet{})
	assert.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected TokenType
	}{
		{
			name:     "refresh token where access expected",
			token:    pair.RefreshToken,
			expected: TokenTypeAccess,
		},
		{
			name:     "access token where refresh expected",
			token:    pair.AccessToken,
			expected: TokenTypeRefresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Validate(tt.token, tt.expected)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, apperrors.ErrWrongTokenType)
		})
	}
}

func TestJWTService_Validate_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute, -time.Minute)
	pair, err := svc.IssuePair(1, 1, model.PermissionSet{})
	assert.NoError(t, err)

	claims, err := svc.Validate(pair.AccessToken, TokenTypeAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWTService_Validate_ForeignSignature(t *testing.T) {
	issuer := NewJWTService("secret-a", 30*time.Minute, 7*24*time.Hour)
	verifier := NewJWTService("secret-b", 30*time.Minute, 7*24*time.Hour)

	pair, err := issuer.IssuePair(1, 1, model.PermissionSet{})
	assert.NoError(t, err)

	claims, err := verifier.Validate(pair.AccessToken, TokenTypeAccess)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, apperrors.ErrTokenSignature)
}

func TestJWTService_Validate_Malformed(t *testing.T) {
	svc := NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty string", token: ""},
		{name: "not a jwt", token: "definitely-not-a-token"},
		{name: "truncated", token: "eyJhbGciOiJIUzI1NiJ9.e30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Validate(tt.token, TokenTypeAccess)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, apperrors.ErrTokenMalformed)
		})
	}
}

func TestIdentityFromClaims(t *testing.T) {
	claims := &Claims{
		UserID:      7,
		GroupID:     2,
		Permissions: model.PermissionSet{CanAddComments: true},
	}

	ident := IdentityFromClaims(claims)
	assert.Equal(t, uint(7), ident.UserID)
	assert.True(t, ident.Can(model.CapAddComments))
	assert.False(t, ident.Can(model.CapDeletePosts))
}

func TestIdentity_Can_Anonymous(t *testing.T) {
	var ident *Identity
	assert.False(t, ident.Can(model.CapAddComments))
}

func TestIdentity_Can_Admin(t *testing.T) {
	ident := &Identity{UserID: 1, Permissions: model.PermissionSet{IsAdmin: true}}
	assert.True(t, ident.Can(model.CapDeletePosts))
	assert.True(t, ident.Can(model.CapAccessAdmin))
}
