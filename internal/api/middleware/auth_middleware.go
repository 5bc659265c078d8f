package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	DeviceTokenHeaderKey    = "X-Device-Token"
	UsernameKey             = "username"
)

type AuthMiddleware struct {
	authService *service.AuthService
	deviceToken string
}

func NewAuthMiddleware(authService *service.AuthService, deviceToken string) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, deviceToken: deviceToken}
}

// Authenticate guards the admin routes with the JWT issued at login.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		username, err := m.authService.VerifyToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// AuthenticateDevice guards the device-facing routes with the shared gate
// controller token. No token configured means the routes are shut.
func (m *AuthMiddleware) AuthenticateDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.deviceToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Device access is not configured"})
			return
		}
		token := c.GetHeader(DeviceTokenHeaderKey)
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.deviceToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid device token"})
			return
		}
		c.Next()
	}
}
