package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
	"github.com/cardinalconseils/chefsocial-auth/pkg/constant"
)

func newTestTokenService() *TokenService {
	return NewTokenService("access-secret", "refresh-secret", 15, 10080)
}

func TestGenerateAndVerify(t *testing.T) {
	ts := newTestTokenService()

	pair, err := ts.Generate("user-1", "test@example.com", constant.DefaultUserRole, "session-1")
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessJTI, pair.RefreshJTI)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessExpiresAt, time.Second)
	assert.WithinDuration(t, time.Now().Add(10080*time.Minute), pair.RefreshExpiresAt, time.Second)

	accessClaims, err := ts.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", accessClaims.UserID)
	assert.Equal(t, "user-1", accessClaims.Subject)
	assert.Equal(t, "test@example.com", accessClaims.Email)
	assert.Equal(t, constant.DefaultUserRole, accessClaims.Role)
	assert.Equal(t, "session-1", accessClaims.SessionID)
	assert.Equal(t, pair.AccessJTI, accessClaims.ID)
	assert.Equal(t, constant.TokenTypeAccess, accessClaims.TokenType)
	assert.Equal(t, FormatRotated, accessClaims.Format)

	refreshClaims, err := ts.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshJTI, refreshClaims.ID)
	assert.Equal(t, "session-1", refreshClaims.SessionID)
	assert.Equal(t, constant.TokenTypeRefresh, refreshClaims.TokenType)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ts := newTestTokenService()
	other := NewTokenService("different-secret", "different-secret", 15, 10080)

	pair, err := ts.Generate("user-1", "test@example.com", constant.DefaultUserRole, "session-1")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
}

func TestVerifyRejectsCrossTypeToken(t *testing.T) {
	// Same secret on both sides so the signature check passes and the
	// token_type claim is what gets rejected.
	ts := NewTokenService("shared-secret", "shared-secret", 15, 10080)

	pair, err := ts.Generate("user-1", "test@example.com", constant.DefaultUserRole, "session-1")
	require.NoError(t, err)

	_, err = ts.VerifyRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)

	_, err = ts.VerifyAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	ts := newTestTokenService()

	claims := JWTCustomClaims{
		UserID:    "user-1",
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(ts.AccessTokenSecret))
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
}

func TestVerifyRejectsLegacyTokenWithoutJTI(t *testing.T) {
	ts := newTestTokenService()

	claims := JWTCustomClaims{
		UserID:    "user-1",
		Email:     "test@example.com",
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(ts.AccessTokenSecret))
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	ts := newTestTokenService()

	claims := JWTCustomClaims{
		UserID:    "user-1",
		Email:     "test@example.com",
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       "jti-1",
			Subject:  "user-1",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(ts.AccessTokenSecret))
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ts := newTestTokenService()

	for _, tokenString := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ts.VerifyAccessToken(tokenString)
		assert.ErrorIs(t, err, autherror.ErrTokenMalformed)
	}
}

func TestHashTokenMatch(t *testing.T) {
	stored := HashToken("some-refresh-token")

	assert.Len(t, stored, 32)
	assert.True(t, MatchTokenHash(stored, "some-refresh-token"))
	assert.False(t, MatchTokenHash(stored, "some-other-token"))
	assert.False(t, MatchTokenHash(nil, "some-refresh-token"))
}
