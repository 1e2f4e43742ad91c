package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by JWTAuth
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
)

// AuthMiddleware for authentication
type AuthMiddleware struct {
	jwtService *auth.JWTService
	cookieName string
}

// NewAuthMiddleware creates a new AuthMiddleware. Tokens are read from the
// Authorization header first and the session cookie second.
func NewAuthMiddleware(jwtService *auth.JWTService, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		cookieName: cookieName,
	}
}

func (m *AuthMiddleware) token(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, err := auth.ExtractBearerToken(header); err == nil {
			return token
		}
	}
	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil {
			return strings.TrimSpace(cookie)
		}
	}
	return ""
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := m.token(c)
		if tokenString == "" {
			Unauthorized(c, dto.ErrorCodeUnauthorized, "Session cookie or Authorization header missing")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				Unauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
				return
			}
			Unauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			Unauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token subject")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, claims.Username)

		l := logger.FromContext(c.Request.Context()).With().Str("userID", claims.UserID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))

		c.Next()
	}
}

// CurrentUserID returns the authenticated user set by JWTAuth
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// CronSecret guards scheduler endpoints with `Authorization: Bearer <secret>`.
// With no configured secret every request is rejected.
func CronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, err := auth.BearerCredential(c.GetHeader("Authorization"))
		if err != nil || !auth.SecretsEqual(presented, secret) {
			logger.FromContext(c.Request.Context()).Warn().
				Str("path", c.Request.URL.Path).
				Str("clientIP", c.ClientIP()).
				Msg("Rejected cron request")
			Unauthorized(c, dto.ErrorCodeUnauthorized, "Invalid cron secret")
			return
		}
		c.Next()
	}
}
