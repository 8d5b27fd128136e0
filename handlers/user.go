package handlers

import (
	"net/http"

	"inkpost/services"

	"github.com/gin-gonic/gin"
)

type EditUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Location string `json:"location"`
	Password string `json:"password"`
}

func (h *Handler) GetProfile(c *gin.Context) {
	who, err := caller(c)
	if err != nil {
		fail(c, "GetProfile", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	user, err := h.users.Profile(ctx, who)
	if err != nil {
		fail(c, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req EditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "UpdateProfile", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, who, services.ProfileInput{
		Name:     req.Name,
		Email:    req.Email,
		Location: req.Location,
		Password: req.Password,
	})
	if err != nil {
		fail(c, "UpdateProfile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// SetAvatar expects the image in multipart field "avatar".
func (h *Handler) SetAvatar(c *gin.Context) {
	who, err := caller(c)
	if err != nil {
		fail(c, "SetAvatar", err)
		return
	}
	header, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, errMissingFile.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "could not read uploaded file")
		return
	}
	defer file.Close()

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	url, err := h.users.SetAvatar(ctx, who, file)
	if err != nil {
		fail(c, "SetAvatar", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avatar updated", "url": url})
}

func (h *Handler) PublicProfile(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	profile, err := h.users.PublicProfile(ctx, c.Param("email"))
	if err != nil {
		fail(c, "PublicProfile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
