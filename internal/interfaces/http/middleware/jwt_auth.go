package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/constants"
	apperrors "github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireJWT is a middleware to protect routes that require a valid host JWT.
// The verified claims and the host id (the token subject) are stored on the context.
func RequireJWT(verifier service.TokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.Request.Header.Get(constants.HeaderAuthorization))
		if tokenStr == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			log.Warn(c.Request.Context(), "JWT verification failed", logger.Err(err))
			abortUnauthorized(c)
			return
		}

		if claims.HostID() == "" {
			log.Warn(c.Request.Context(), "sub claim is missing from verified token")
			abortUnauthorized(c)
			return
		}

		c.Set(string(constants.ContextKeyClaims), claims)
		c.Set(string(constants.ContextKeyHostID), claims.HostID())
		c.Next()
	}
}

// HostID returns the authenticated host set by RequireJWT.
func HostID(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeyHostID))
}

// Claims returns the verified claims set by RequireJWT, or nil.
func Claims(c *gin.Context) *models.HostClaims {
	v, ok := c.Get(string(constants.ContextKeyClaims))
	if !ok {
		return nil
	}
	claims, _ := v.(*models.HostClaims)
	return claims
}

func abortUnauthorized(c *gin.Context) {
	appErr := apperrors.ErrUnauthorized()
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message()})
}
