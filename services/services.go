// Package services implements the blog's behavior on top of the
// repositories and the external collaborators (mailer, media host, cache,
// push). Handlers translate HTTP to these calls and back.
package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"inkpost/apperror"
	"inkpost/auth"
	"inkpost/database"
	"inkpost/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiresAt *time.Time) error
	ConsumeOTP(ctx context.Context, id primitive.ObjectID, otp string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error
	AddPost(ctx context.Context, userID, postID primitive.ObjectID) error
	RemovePost(ctx context.Context, userID, postID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindWithOwner(ctx context.Context, id primitive.ObjectID) (*models.PostWithOwner, error)
	List(ctx context.Context) ([]models.PostWithOwner, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.PostWithOwner, error)
	ListLovedBy(ctx context.Context, email string) ([]models.PostWithOwner, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.PostUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddLove(ctx context.Context, id primitive.ObjectID, email string) (bool, error)
	RemoveLove(ctx context.Context, id primitive.ObjectID, email string) (bool, error)
}

type NotificationStore interface {
	RecordLike(ctx context.Context, postID primitive.ObjectID, email string, at time.Time) error
	ListForPosts(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Notification, error)
	DeleteForPost(ctx context.Context, postID primitive.ObjectID) error
}

type SubscriptionStore interface {
	Save(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Mailer delivers one-time codes. SendOTP returns once the message has
// been handed to the mail server.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// MediaHost stores images and serves them from public URLs.
type MediaHost interface {
	Upload(ctx context.Context, file io.Reader, folder string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// PostCache caches the public post listing.
type PostCache interface {
	GetPosts(ctx context.Context) ([]models.PostView, bool)
	SetPosts(ctx context.Context, posts []models.PostView)
	Invalidate(ctx context.Context)
}

// LikeNotifier tells a post owner about a new like. Delivery is best
// effort; failures are the notifier's to log.
type LikeNotifier interface {
	NotifyLike(ctx context.Context, owner primitive.ObjectID, post *models.Post, likerEmail string)
}

// OTPSource generates one-time codes.
type OTPSource interface {
	Generate() (string, error)
}

// Caller is the authenticated identity of a request.
type Caller struct {
	ID    primitive.ObjectID
	Email string
}

// CallerFromClaims converts verified token claims into a Caller.
func CallerFromClaims(c *auth.Claims) (Caller, error) {
	if c == nil {
		return Caller{}, ErrNotAuthenticated
	}
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return Caller{}, ErrUserNotFound.Wrap(err)
	}
	return Caller{ID: id, Email: c.Email}, nil
}

var (
	ErrNotAuthenticated   = apperror.NewUnauthorized("authentication required")
	ErrEmailTaken         = apperror.NewConflict("email already in use")
	ErrUserNotFound       = apperror.NewNotFound("user not found")
	ErrInvalidOTP         = apperror.NewUnauthorized("invalid otp")
	ErrOTPExpired         = apperror.NewUnauthorized("otp has expired")
	ErrInvalidCredentials = apperror.NewUnauthorized("password mismatch")
	ErrPostNotFound       = apperror.NewNotFound("post not found")
	ErrNotOwner           = apperror.NewForbidden("you are not the owner of this post")
	ErrNoLikedPosts       = apperror.NewNotFound("no liked posts found")
	ErrInvalidID          = apperror.NewValidation("invalid id")
	ErrPasswordTooLong    = apperror.NewValidation("password must be at most 72 bytes")
)

// hashErr maps a Hasher failure onto a validation or an internal error.
func hashErr(err error) error {
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return ErrPasswordTooLong.Wrap(err)
	}
	return apperror.NewInternal(err)
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID.Wrap(err)
	}
	return id, nil
}

// storeErr maps repository errors onto notFound, or an internal error.
func storeErr(err error, notFound *apperror.AppError) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound.Wrap(err)
	}
	return apperror.NewInternal(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func views(posts []models.PostWithOwner) []models.PostView {
	out := make([]models.PostView, len(posts))
	for i, p := range posts {
		out[i] = p.View()
	}
	return out
}
