package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wellcare/billing/internal/config"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/types"
)

// BillingClaims are the JWT claims issued to portal and staff accounts
type BillingClaims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// AuthenticateMiddleware validates the bearer token and scopes the request
// context with the requester's identity, role and permissions.
func AuthenticateMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondUnauthorized(c, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			respondUnauthorized(c, "Authorization header must be a bearer token")
			return
		}

		claims := &BillingClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Auth.Secret), nil
		})
		if err != nil || !token.Valid {
			log.Debugw("rejected token", "error", err)
			respondUnauthorized(c, "Invalid or expired token")
			return
		}

		role := types.UserRole(claims.Role)
		if err := role.Validate(); err != nil {
			respondUnauthorized(c, "Token carries an unknown role")
			return
		}

		ctx := c.Request.Context()
		ctx = types.SetUserID(ctx, claims.Subject)
		ctx = types.SetUserRole(ctx, role)
		ctx = types.SetPermissions(ctx, claims.Permissions)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, hint string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ierr.ErrorResponse{
		Success: false,
		Error:   ierr.ErrorDetail{Display: hint},
	})
}
