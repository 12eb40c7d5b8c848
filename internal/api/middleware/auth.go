package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/pkg/jwt"
	"github.com/amorempixels/amor_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	ClaimsKey = "claims"
)

// RevocationChecker reports whether a token id was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", false
	}
	return token, true
}

// Authenticate parses a token and rejects revoked ones. A nil checker skips
// the revocation lookup.
func Authenticate(ctx context.Context, token, secret string, revoked RevocationChecker) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, secret)
	if err != nil {
		return nil, err
	}
	if revoked != nil && claims.ID != "" {
		gone, err := revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if gone {
			return nil, jwt.ErrInvalidToken
		}
	}
	return claims, nil
}

// Auth requires a valid, unrevoked bearer token.
func Auth(jwtSecret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.AuthError(c, "Faça login para continuar")
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			response.AuthError(c, "Formato de autenticação inválido")
			c.Abort()
			return
		}

		claims, err := Authenticate(c.Request.Context(), token, jwtSecret, revoked)
		if err != nil {
			response.AuthError(c, "Sessão inválida ou expirada")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a usable token is present and
// lets anonymous requests through otherwise.
func OptionalAuth(jwtSecret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := Authenticate(c.Request.Context(), token, jwtSecret, revoked)
		if err == nil {
			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetOptionalUserID returns a pointer to the caller's id, nil when anonymous.
func GetOptionalUserID(c *gin.Context) *int64 {
	id, ok := GetUserID(c)
	if !ok {
		return nil
	}
	return &id
}

func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
