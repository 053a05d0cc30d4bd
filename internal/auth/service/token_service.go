package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/cardinalconseils/chefsocial-auth/internal/auth/service TokenGenerator

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

// TokenFormat tags which wire shape a parsed token carried. Legacy is
// the pre-rotation shape without a jti; it is resolved once at parse
// time and always rejected, since legacy tokens predate the blacklist
// and session checks and cannot be revoked.
type TokenFormat int

const (
	FormatRotated TokenFormat = iota
	FormatLegacy
)

type TokenGenerator interface {
	Generate(userID, email, role, sessionID string) (*domain.TokenPair, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	SessionID string      `json:"sid"`
	TokenType string      `json:"token_type"`
	Format    TokenFormat `json:"-"`
}

func NewTokenService(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  time.Duration(accessMinutes) * time.Minute,
		RefreshTokenExpiry: time.Duration(refreshMinutes) * time.Minute,
	}
}

// Generate mints a signed access/refresh pair with fresh jtis. It has
// no side effects; callers persist the refresh record and session.
func (ts *TokenService) Generate(userID, email, role, sessionID string) (*domain.TokenPair, error) {
	now := time.Now()
	accessJTI := uuid.NewString()
	refreshJTI := uuid.NewString()
	accessExpiry := now.Add(ts.AccessTokenExpiry)
	refreshExpiry := now.Add(ts.RefreshTokenExpiry)

	accessClaims := JWTCustomClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        accessJTI,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	refreshClaims := JWTCustomClaims{
		UserID:    userID,
		SessionID: sessionID,
		TokenType: constant.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        refreshJTI,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(ts.AccessTokenSecret))
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(ts.RefreshTokenSecret))
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessJTI:        accessJTI,
		RefreshJTI:       refreshJTI,
		IssuedAt:         now,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyAccessToken runs the stateless checks only: signature, expiry
// and wire format. Revocation checks live in SessionService so that
// malformed input never touches storage.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.AccessTokenSecret, constant.TokenTypeAccess)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.RefreshTokenSecret, constant.TokenTypeRefresh)
}

func (ts *TokenService) verify(tokenString, secret, wantType string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrTokenMalformed
	}

	if !token.Valid {
		return nil, autherror.ErrTokenMalformed
	}

	claims.Format = FormatRotated
	if claims.ID == "" {
		claims.Format = FormatLegacy
	}

	// Legacy tokens carry no jti so neither blacklist nor session
	// checks can apply to them. They are rejected outright.
	if claims.Format == FormatLegacy || claims.TokenType != wantType {
		return nil, autherror.ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}

// HashToken derives the stored digest of a raw token string. The raw
// string itself never touches storage.
func HashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// MatchTokenHash compares a stored digest with the digest of a
// presented token in constant time.
func MatchTokenHash(stored []byte, token string) bool {
	return hmac.Equal(stored, HashToken(token))
}
