package handlers

import (
	"net/http"

	"inkpost/models"
	"inkpost/services"

	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Location string `json:"location" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type SetNewPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	user, err := h.auth.Signup(ctx, services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Location: req.Location,
		Password: req.Password,
	})
	if err != nil {
		fail(c, "Signup", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created, check your email for the verification code",
		"user":    user,
	})
}

// VerifyOTP answers every failure to match a pending code with 400.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	session, err := h.auth.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		fail(c, "VerifyOTP", err,
			remap{http.StatusNotFound, http.StatusBadRequest},
			remap{http.StatusUnauthorized, http.StatusBadRequest})
		return
	}

	h.setTokenCookie(c, session.Token)
	c.JSON(http.StatusOK, sessionResponse{Message: "Email verified", Token: session.Token, User: session.User})
}

// Login reports an unknown email and a wrong password alike as 404.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	session, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		fail(c, "Login", err, remap{http.StatusUnauthorized, http.StatusNotFound})
		return
	}

	h.setTokenCookie(c, session.Token)
	c.JSON(http.StatusOK, sessionResponse{Message: "Login successful", Token: session.Token, User: session.User})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.auth.ForgotPassword(ctx, req.Email); err != nil {
		fail(c, "ForgotPassword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A reset code has been sent to your email"})
}

func (h *Handler) SetNewPassword(c *gin.Context) {
	var req SetNewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "SetNewPassword", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.auth.SetNewPassword(ctx, who, req.Password); err != nil {
		fail(c, "SetNewPassword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// Logout only clears the cookie. The token stays valid until it expires.
func (h *Handler) Logout(c *gin.Context) {
	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
