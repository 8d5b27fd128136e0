package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"inkpost/auth"

	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie the session token is issued in.
const TokenCookie = "token"

const claimsKey = "claims"

// RequireAuth verifies the session token of the request. A missing token
// is 401, an invalid or expired one is 403. On success the claims are
// stored under "claims", and "userId" and "email" are set as well.
func RequireAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return requireToken(tokens, http.StatusUnauthorized, "Authentication required")
}

// RequireSession is RequireAuth for the profile pages, which answer a
// missing token with 404 so the client sends the user back to login.
func RequireSession(tokens *auth.TokenService) gin.HandlerFunc {
	return requireToken(tokens, http.StatusNotFound, "session expired, login again")
}

func requireToken(tokens *auth.TokenService, missingStatus int, missingMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw := tokenFromRequest(c)
		if raw == "" {
			c.AbortWithStatusJSON(missingStatus, gin.H{
				"error":   "unauthorized",
				"message": missingMsg,
			})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "token rejected", "path", c.FullPath(), "error", err)
			msg := "Token validation failed"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": msg,
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Set("userId", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// Claims returns the claims stored by RequireAuth.
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// tokenFromRequest reads a bearer token, falling back to the cookie when
// there is no Authorization header or it uses another scheme.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}
