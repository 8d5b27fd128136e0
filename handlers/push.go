package handlers

import (
	"net/http"

	"inkpost/apperror"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	if h.opts.VAPIDPublicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "VAPID public key not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.opts.VAPIDPublicKey})
}

// Subscribe stores the caller's push subscription, replacing any earlier one.
func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "Subscribe", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
	}
	if err := h.subs.Save(ctx, who.ID, sub); err != nil {
		fail(c, "Subscribe", apperror.NewInternal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved", "userId": who.ID.Hex()})
}

func (h *Handler) Notifications(c *gin.Context) {
	who, err := caller(c)
	if err != nil {
		fail(c, "Notifications", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	notes, err := h.posts.Notifications(ctx, who)
	if err != nil {
		fail(c, "Notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}
