package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// AuthService gates the mutating API endpoints behind a TOTP code when a
// secret is configured. With no secret the API stays open, which is the
// expected setup for a single-operator deployment behind a firewall.
type AuthService struct {
	logger     *zap.Logger
	totpSecret string
}

func NewAuthService(logger *zap.Logger, totpSecret string) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
	}
}

func (a *AuthService) Enabled() bool {
	return a.totpSecret != ""
}

func (a *AuthService) ValidateToken(token string) bool {
	valid := totp.Validate(token, a.totpSecret)
	if !valid {
		a.logger.Warn("TOTP token validation failed")
	}
	return valid
}

// Middleware rejects requests without a valid X-Auth-Code header.
func (a *AuthService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		code := c.GetHeader("X-Auth-Code")
		if code == "" || !a.ValidateToken(code) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "valid auth code required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
