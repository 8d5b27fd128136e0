package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkpost/apperror"
	"inkpost/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func render(err error, remaps ...remap) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fail(c, "Test", err, remaps...)
	return w
}

func TestFail(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		remaps []remap
		status int
		body   string
	}{
		{"sentinel", services.ErrPostNotFound, nil, http.StatusNotFound, `{"error":"not_found","message":"post not found"}`},
		{"wrapped sentinel", services.ErrNotOwner.Wrap(errors.New("x")), nil, http.StatusForbidden, `{"error":"forbidden","message":"you are not the owner of this post"}`},
		{"foreign error hides detail", errors.New("mongo exploded"), nil, http.StatusInternalServerError, `{"error":"internal_error","message":"An unexpected error occurred. Please try again."}`},
		{"upstream is 500", apperror.NewUpstream("failed to send otp email", errors.New("smtp down")), nil, http.StatusInternalServerError, `{"error":"upstream_failure","message":"failed to send otp email"}`},
		{"remap", services.ErrInvalidCredentials, []remap{{http.StatusUnauthorized, http.StatusNotFound}}, http.StatusNotFound, `{"error":"unauthorized","message":"password mismatch"}`},
		{"remap other class untouched", services.ErrEmailTaken, []remap{{http.StatusUnauthorized, http.StatusNotFound}}, http.StatusConflict, `{"error":"conflict","message":"email already in use"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := render(tt.err, tt.remaps...)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestCallerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := caller(c)
	assert.ErrorIs(t, err, services.ErrNotAuthenticated)
}
