// Package handlers maps the HTTP surface onto the services.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"inkpost/apperror"
	"inkpost/middleware"
	"inkpost/services"

	"github.com/gin-gonic/gin"
)

const (
	requestTimeout = 10 * time.Second
	uploadTimeout  = 30 * time.Second
)

type Options struct {
	TokenTTL       time.Duration
	CookieSecure   bool
	VAPIDPublicKey string
}

type Handler struct {
	auth  *services.AuthService
	users *services.UserService
	posts *services.PostService
	subs  services.SubscriptionStore
	opts  Options
}

func New(a *services.AuthService, u *services.UserService, p *services.PostService, subs services.SubscriptionStore, opts Options) *Handler {
	return &Handler{auth: a, users: u, posts: p, subs: subs, opts: opts}
}

// remap overrides the status of one error class on a single route.
type remap struct{ from, to int }

// fail renders err as {"error": type, "message": msg}. Upstream failures
// are reported as 500 on every route.
func fail(c *gin.Context, op string, err error, remaps ...remap) {
	appErr := apperror.As(err)

	status := appErr.Code
	if status == http.StatusBadGateway {
		status = http.StatusInternalServerError
	}
	for _, r := range remaps {
		if appErr.Code == r.from {
			status = r.to
		}
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "handler", op, "error", err)
	} else {
		slog.DebugContext(c.Request.Context(), "request rejected", "handler", op, "error", err)
	}
	c.JSON(status, gin.H{"error": appErr.Type, "message": appErr.Message})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": msg})
}

// caller returns the identity set by the auth middleware.
func caller(c *gin.Context) (services.Caller, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return services.Caller{}, services.ErrNotAuthenticated
	}
	return services.CallerFromClaims(claims)
}

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	maxAge := int(h.opts.TokenTTL / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.opts.CookieSecure, true)
}

func (h *Handler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.opts.CookieSecure, true)
}

// errMissingFile is returned when a multipart upload lacks its field.
var errMissingFile = errors.New("no file uploaded")
