package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := setupTestService(t)
	tokens, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	router := gin.New()
	NewController(svc, tokens).RegisterRoutes(router)
	return router, tokens
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestAuthFlow_RegisterLoginRefresh(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	w := postJSON(router, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password12345",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	// Password hash never leaves the server
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = postJSON(router, "/api/auth/login", gin.H{
		"username": "alice",
		"password": "password12345",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.AccessToken)
	require.NotEmpty(t, loginResp.RefreshToken)

	claims, err := tokens.ParseAccess(loginResp.AccessToken)
	require.NoError(t, err)
	assert.NotZero(t, claims.UserID)

	w = postJSON(router, "/api/auth/refresh", gin.H{
		"refresh_token": loginResp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var refreshResp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshResp))
	_, err = tokens.ParseAccess(refreshResp.AccessToken)
	require.NoError(t, err)
}

func TestAuthHandlers_Register_DuplicateConflict(t *testing.T) {
	router, _ := setupAuthRouter(t)

	body := gin.H{"username": "alice", "email": "alice@example.com", "password": "password12345"}
	require.Equal(t, http.StatusCreated, postJSON(router, "/api/auth/register", body).Code)
	assert.Equal(t, http.StatusConflict, postJSON(router, "/api/auth/register", body).Code)
}

func TestAuthHandlers_Login_BadCredentials(t *testing.T) {
	router, _ := setupAuthRouter(t)

	w := postJSON(router, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password12345",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(router, "/api/auth/login", gin.H{
		"username": "alice",
		"password": "wrongpassword1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(router, "/api/auth/login", gin.H{
		"username": "ghost",
		"password": "password12345",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlers_Refresh_RejectsAccessToken(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	access, err := tokens.IssueAccess(1)
	require.NoError(t, err)

	w := postJSON(router, "/api/auth/refresh", gin.H{"refresh_token": access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
