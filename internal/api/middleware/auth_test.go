package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/internal/pkg/jwt"
	"github.com/amorempixels/amor_server/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

type revokedSet struct {
	ids map[string]bool
	err error
}

func (r *revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return r.ids[id], r.err
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func authRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if ok {
			c.JSON(http.StatusOK, gin.H{"user_id": userID, "authenticated": true})
		} else {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
		}
	})
	return router
}

func get(router http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_Success(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testJWTSecret, nil))
	router.GET("/test", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		assert.True(t, ok)
		assert.Equal(t, int64(123), userID)

		claims, ok := GetClaims(c)
		assert.True(t, ok)
		assert.NotEmpty(t, claims.ID)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	token, err := jwt.GenerateToken(123, testJWTSecret, 24)
	require.NoError(t, err)

	w := get(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Rejections(t *testing.T) {
	otherSecret, err := jwt.GenerateToken(123, "different-secret", 24)
	require.NoError(t, err)
	expired, err := jwt.GenerateToken(123, testJWTSecret, -1)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"no bearer prefix", "some-token-without-bearer"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer invalid-token"},
		{"wrong secret", "Bearer " + otherSecret},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(authRouter(Auth(testJWTSecret, nil)), tt.authorization)

			resp := parseResponse(t, w)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, response.CodeAuthFailed, resp.Code)
		})
	}
}

func TestAuth_RevokedToken(t *testing.T) {
	token, err := jwt.GenerateToken(123, testJWTSecret, 24)
	require.NoError(t, err)
	claims, err := jwt.ParseToken(token, testJWTSecret)
	require.NoError(t, err)

	revoked := &revokedSet{ids: map[string]bool{claims.ID: true}}
	w := get(authRouter(Auth(testJWTSecret, revoked)), "Bearer "+token)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)

	other, err := jwt.GenerateToken(123, testJWTSecret, 24)
	require.NoError(t, err)
	w = get(authRouter(Auth(testJWTSecret, revoked)), "Bearer "+other)
	assert.Equal(t, http.StatusOK, w.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, true, result["authenticated"])
}

func TestAuth_RevocationLookupFails(t *testing.T) {
	token, err := jwt.GenerateToken(123, testJWTSecret, 24)
	require.NoError(t, err)

	w := get(authRouter(Auth(testJWTSecret, &revokedSet{err: errors.New("redis down")})), "Bearer "+token)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestOptionalAuth(t *testing.T) {
	valid, err := jwt.GenerateToken(456, testJWTSecret, 24)
	require.NoError(t, err)
	claims, err := jwt.ParseToken(valid, testJWTSecret)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		revoked       map[string]bool
		wantAuth      bool
	}{
		{"valid token", "Bearer " + valid, nil, true},
		{"no token", "", nil, false},
		{"invalid token", "Bearer invalid-token", nil, false},
		{"no bearer prefix", "no-bearer-prefix", nil, false},
		{"revoked token", "Bearer " + valid, map[string]bool{claims.ID: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(authRouter(OptionalAuth(testJWTSecret, &revokedSet{ids: tt.revoked})), tt.authorization)
			assert.Equal(t, http.StatusOK, w.Code)

			var result map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.wantAuth, result["authenticated"])
			if tt.wantAuth {
				assert.Equal(t, float64(456), result["user_id"])
			}
		})
	}
}

func TestGetUserID(t *testing.T) {
	router := gin.New()
	router.GET("/unset", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		assert.False(t, ok)
		assert.Equal(t, int64(0), userID)
		assert.Nil(t, GetOptionalUserID(c))
		c.Status(http.StatusOK)
	})
	router.GET("/wrong-type", func(c *gin.Context) {
		c.Set(UserIDKey, "not-an-int64")
		_, ok := GetUserID(c)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})
	router.GET("/set", func(c *gin.Context) {
		c.Set(UserIDKey, int64(789))
		userID, ok := GetUserID(c)
		assert.True(t, ok)
		assert.Equal(t, int64(789), userID)
		require.NotNil(t, GetOptionalUserID(c))
		assert.Equal(t, int64(789), *GetOptionalUserID(c))
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/unset", "/wrong-type", "/set"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
