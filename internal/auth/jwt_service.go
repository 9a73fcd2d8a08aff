package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "gocms/internal/errors"
	"gocms/internal/model"
)

// TokenType discriminates the two token kinds. An access token must never be
// accepted where a refresh token is required, and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT claims carried by both token kinds. The permission
// snapshot is taken at issue time; a group change takes effect on the next
// refresh.
type Claims struct {
	UserID      uint                `json:"user_id"`
	GroupID     uint                `json:"group_id"`
	Permissions model.PermissionSet `json:"permissions"`
	TokenType   TokenType           `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair bundles the two tokens returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// JWTService issues and validates signed, self-contained session tokens.
// Issuance is stateless: a pure function of identity, secret and clock.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService creates a new JWT service with the given secret and lifetimes.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssuePair generates an access/refresh token pair for the user. Both tokens
// carry the same issued-at; the refresh token gets a jti so logout can
// denylist it.
func (s *JWTService) IssuePair(userID, groupID uint, perms model.PermissionSet) (*TokenPair, error) {
	now := time.Now()

	access, err := s.sign(userID, groupID, perms, TokenTypeAccess, now, s.accessTTL, "")
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, groupID, perms, TokenTypeRefresh, now, s.refreshTTL, uuid.New().String())
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *JWTService) sign(userID, groupID uint, perms model.PermissionSet, typ TokenType, now time.Time, ttl time.Duration, jti string) (string, error) {
	claims := &Claims{
		UserID:      userID,
		GroupID:     groupID,
		Permissions: perms,
		TokenType:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate verifies signature and expiry and checks the type claim matches
// expected. Expiry checks inside the jwt library take a single clock sample
// per call, so one request cannot see inconsistent accept/reject decisions.
func (s *JWTService) Validate(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, apperrors.ErrTokenSignature
		default:
			return nil, apperrors.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, apperrors.ErrTokenMalformed
	}
	if claims.TokenType != expected {
		return nil, apperrors.ErrWrongTokenType
	}
	return claims, nil
}
