package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkau/shelftrack/internal/config"
)

func testAuthConfig() config.Auth {
	return config.Auth{
		JWTSecret:       "test-secret-do-not-use-in-production",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		BcryptCost:      4,
	}
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = ""

	_, err := NewTokenManager(cfg)
	assert.Error(t, err)
}

func TestTokenManager_AccessRoundTrip(t *testing.T) {
	m, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	token, err := m.IssueAccess(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
}

func TestTokenManager_RefreshRoundTrip(t *testing.T) {
	m, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	token, err := m.IssueRefresh(42)
	require.NoError(t, err)

	claims, err := m.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestTokenManager_RejectsWrongTokenUse(t *testing.T) {
	m, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	refresh, err := m.IssueRefresh(42)
	require.NoError(t, err)

	// A refresh token must not pass as an access token, and vice versa.
	_, err = m.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenUse)

	access, err := m.IssueAccess(42)
	require.NoError(t, err)

	_, err = m.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrWrongTokenUse)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	cfg := testAuthConfig()
	cfg.AccessTokenTTL = -time.Minute

	m, err := NewTokenManager(cfg)
	require.NoError(t, err)

	token, err := m.IssueAccess(42)
	require.NoError(t, err)

	_, err = m.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	m, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "a-completely-different-secret"
	other, err := NewTokenManager(otherCfg)
	require.NoError(t, err)

	token, err := other.IssueAccess(42)
	require.NoError(t, err)

	_, err = m.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	m, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	_, err = m.ParseAccess("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
