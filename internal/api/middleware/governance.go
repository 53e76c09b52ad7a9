package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"

	"github.com/crosslane/bridge_service/internal/infrastructure/config"
	"github.com/crosslane/bridge_service/pkg/logger"
)

// GovernanceClaims are the JWT claims carried by governance tokens
type GovernanceClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Governance authenticates privileged operations: a bearer token with the
// governance role, plus a TOTP code when the deployment demands one.
func Governance(cfg *config.Config, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "Authorization header required",
				"request_id": c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "Invalid authorization format",
				"request_id": c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		claims := &GovernanceClaims{}
		token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "Invalid token",
				"request_id": c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		if claims.Role != "governance" {
			log.Warn("governance access denied",
				"subject", claims.Subject,
				"role", claims.Role,
				"path", c.Request.URL.Path,
			)
			c.JSON(http.StatusForbidden, gin.H{
				"error":      "Governance role required",
				"request_id": c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		if cfg.Governance.RequireTOTP {
			code := c.GetHeader("X-TOTP-Code")
			if code == "" || !totp.Validate(code, cfg.Governance.TOTPSecret) {
				log.Warn("governance TOTP rejected",
					"subject", claims.Subject,
					"path", c.Request.URL.Path,
				)
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":      "Valid TOTP code required",
					"request_id": c.GetString("request_id"),
				})
				c.Abort()
				return
			}
		}

		c.Set("governance_actor", claims.Subject)
		c.Next()
	}
}
