package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/auth"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	jwtauth "github.com/yigit/classjournal/internal/pkg/auth"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// Context keys set by JWTAuth
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextRole     = "role"
)

// UserLookup loads the current account for a token subject
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *jwtauth.JWTService
	users      UserLookup
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *jwtauth.JWTService, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// JWTAuth validates the bearer token and resolves the caller. The role is read from
// the users table so a role change takes effect before the token expires.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header (standard method)
		authHeader := c.GetHeader("Authorization")

		// Browsers cannot set headers on a WebSocket handshake
		if authHeader == "" {
			authHeader = c.Query("token")
		}
		// If still no token found, return unauthorized
		if authHeader == "" {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authorization header missing")
			return
		}

		// Some clients wrap the header value in quotes
		tokenString, err := jwtauth.ExtractBearerToken(strings.Trim(authHeader, "\"'"))
		if err != nil {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Invalid token format")
			return
		}

		// Validate and extract claims
		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenExpired) {
				abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		}

		// Load the current account behind the token
		user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Unknown user")
				return
			}
			logger.Error().Err(err).Int64("userID", claims.UserID).Msg("Failed to resolve token subject")
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
			})
			return
		}

		// Add user information to context if token is valid
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUsername, user.Username)
		c.Set(ContextRole, user.Role)

		c.Next()
	}
}

// RoleRequired middleware to check if user has required role
func (m *AuthMiddleware) RoleRequired(requiredRole models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Ensure JWTAuth middleware has run first
		role, exists := c.Get(ContextRole)
		if !exists {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "User role not found")
			return
		}

		// Compare roles
		if r, ok := role.(models.RoleType); !ok || r != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
					WithDetails("You don't have sufficient permissions for this operation"),
			})
			return
		}

		c.Next()
	}
}

// RequesterFromContext builds the requester resolved by JWTAuth
func RequesterFromContext(c *gin.Context) (auth.Requester, error) {
	id, _ := c.Get(ContextUserID)
	role, _ := c.Get(ContextRole)
	userID, _ := id.(int64)
	roleType, _ := role.(models.RoleType)
	return auth.NewRequester(userID, roleType)
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
		Error: dto.NewErrorDetail(code, "Authentication required").WithDetails(details),
	})
}
