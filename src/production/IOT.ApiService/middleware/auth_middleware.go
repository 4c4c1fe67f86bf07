package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/implementation/jwt"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
)

// Key types for request context
type contextKey string

const (
	// Context keys
	UserIDContextKey   contextKey = "user_id"
	UserRoleContextKey contextKey = "user_role"
	TokenIDContextKey  contextKey = "token_id"
)

// AuthMiddleware provides middleware functions for authentication and authorization
type AuthMiddleware struct {
	jwtService *jwt.Service
	config     Config
}

// Config holds middleware configuration
type Config struct {
	// HTTP header name for the access token
	AccessTokenHeader string

	// Cookie name for the access token (optional alternative to the header)
	AccessTokenCookie string
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig() Config {
	return Config{
		AccessTokenHeader: "Authorization",
		AccessTokenCookie: "access_token",
	}
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *jwt.Service, config Config) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		config:     config,
	}
}

// extractToken gets a token from either header or cookie
func extractToken(r *http.Request, headerName, cookieName string) string {
	// Try to get from header first
	token := r.Header.Get(headerName)
	if token != "" {
		// Handle Authorization: Bearer token format
		if strings.HasPrefix(token, "Bearer ") {
			return strings.TrimPrefix(token, "Bearer ")
		}
		return token
	}

	// Try to get from cookie if header is empty and cookie name is provided
	if cookieName != "" {
		cookie, err := r.Cookie(cookieName)
		if err == nil {
			return cookie.Value
		}
	}

	return ""
}

// Authenticate middleware verifies the access token
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := extractToken(c.Request, m.config.AccessTokenHeader, m.config.AccessTokenCookie)
		if accessToken == "" {
			c.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateAccessToken(accessToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, api_models.Fail("invalid access token"))
			c.Abort()
			return
		}

		// Add user data to context
		c.Set(string(UserIDContextKey), claims.UserID)
		c.Set(string(UserRoleContextKey), claims.Role)
		c.Set(string(TokenIDContextKey), claims.TokenID)

		c.Next()
	}
}

// RequireAdmin ensures the authenticated user has the admin role. Must run
// after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetRoleFromGinContext(c)
		if err != nil || role != iotmodels.RoleAdmin {
			c.JSON(http.StatusForbidden, api_models.Fail("admin access required"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserFromGinContext retrieves user ID from Gin context
func GetUserFromGinContext(c *gin.Context) (string, error) {
	userIDVal, exists := c.Get(string(UserIDContextKey))
	if !exists {
		return "", errors.New("user not found in context")
	}

	userID, ok := userIDVal.(string)
	if !ok {
		return "", errors.New("invalid user ID format in context")
	}

	return userID, nil
}

// GetRoleFromGinContext retrieves user role from Gin context
func GetRoleFromGinContext(c *gin.Context) (string, error) {
	roleVal, exists := c.Get(string(UserRoleContextKey))
	if !exists {
		return "", errors.New("role not found in context")
	}

	role, ok := roleVal.(string)
	if !ok {
		return "", errors.New("invalid role format in context")
	}

	return role, nil
}
