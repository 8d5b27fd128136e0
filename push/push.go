// Package push sends web-push notifications to post owners.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"inkpost/config"
	"inkpost/database"
	"inkpost/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscriptions is the storage the notifier reads and prunes.
type Subscriptions interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notifier delivers like events to the owner's stored subscription.
// Sending happens inline and is bounded by a short timeout; every failure
// is logged and swallowed.
type Notifier struct {
	subs    Subscriptions
	cfg     config.PushConfig
	client  *http.Client
	timeout time.Duration
}

func NewNotifier(subs Subscriptions, cfg config.PushConfig) *Notifier {
	return &Notifier{
		subs:    subs,
		cfg:     cfg,
		client:  &http.Client{},
		timeout: 5 * time.Second,
	}
}

func (n *Notifier) NotifyLike(ctx context.Context, owner primitive.ObjectID, post *models.Post, likerEmail string) {
	n.Send(ctx, owner, Payload{
		Title: "New like",
		Body:  likerEmail + " liked \"" + post.Title + "\"",
		Data: map[string]any{
			"postId":    post.ID.Hex(),
			"url":       "/readpost/" + post.ID.Hex(),
			"timestamp": time.Now().Unix(),
		},
	})
}

// Send pushes payload to userID. A 404 or 410 from the push service means
// the browser dropped the subscription, so it is deleted.
func (n *Notifier) Send(ctx context.Context, userID primitive.ObjectID, payload Payload) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	sub, err := n.subs.FindByUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "push subscription lookup failed", "userId", userID.Hex(), "error", err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.WarnContext(ctx, "push payload encode failed", "error", err)
		return
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub.Sub, &webpush.Options{
		HTTPClient:      n.client,
		Subscriber:      n.cfg.Subject,
		VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
		TTL:             30,
	})
	if err != nil {
		slog.WarnContext(ctx, "push send failed", "userId", userID.Hex(), "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		slog.InfoContext(ctx, "push subscription expired, deleting", "userId", userID.Hex())
		if err := n.subs.DeleteByUser(context.WithoutCancel(ctx), userID); err != nil {
			slog.WarnContext(ctx, "failed to delete expired subscription", "userId", userID.Hex(), "error", err)
		}
	case resp.StatusCode >= 300:
		slog.WarnContext(ctx, "push service rejected notification", "userId", userID.Hex(), "status", resp.StatusCode)
	default:
		slog.DebugContext(ctx, "push notification sent", "userId", userID.Hex())
	}
}
