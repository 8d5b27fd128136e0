package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"inkpost/apperror"
	"inkpost/auth"
	"inkpost/database"
	"inkpost/media"
	"inkpost/models"
)

// UserService serves profile reads and edits.
type UserService struct {
	users         UserStore
	posts         PostStore
	media         MediaHost
	hasher        *auth.Hasher
	defaultAvatar string
}

func NewUserService(users UserStore, posts PostStore, host MediaHost, hasher *auth.Hasher, defaultAvatar string) *UserService {
	return &UserService{
		users:         users,
		posts:         posts,
		media:         host,
		hasher:        hasher,
		defaultAvatar: defaultAvatar,
	}
}

type ProfileInput struct {
	Name     string
	Email    string
	Location string
	Password string
}

// PublicProfile is a user as seen by anyone, with their posts.
type PublicProfile struct {
	User  models.PublicUser `json:"user"`
	Posts []models.PostView `json:"posts"`
}

func (s *UserService) Profile(ctx context.Context, caller Caller) (*models.User, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of in. A new password is
// hashed before it is stored.
func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, in ProfileInput) (*models.User, error) {
	upd := models.ProfileUpdate{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Location: strings.TrimSpace(in.Location),
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, hashErr(err)
		}
		upd.PasswordHash = &hash
	}

	if err := s.users.UpdateProfile(ctx, caller.ID, upd); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken.Wrap(err)
		}
		return nil, storeErr(err, ErrUserNotFound)
	}
	return s.Profile(ctx, caller)
}

// SetAvatar uploads file as the caller's avatar and then removes the
// previous image from the media host, unless it was the default one.
func (s *UserService) SetAvatar(ctx context.Context, caller Caller, file io.Reader) (string, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return "", storeErr(err, ErrUserNotFound)
	}

	url, err := s.media.Upload(ctx, file, media.AvatarFolder)
	if err != nil {
		return "", apperror.NewUpstream("upload to media host failed", err)
	}
	if err := s.users.SetAvatar(ctx, caller.ID, url); err != nil {
		return "", storeErr(err, ErrUserNotFound)
	}

	if old := user.Avatar; old != "" && old != s.defaultAvatar && old != url {
		if err := s.media.Delete(ctx, media.PublicIDFromURL(media.AvatarFolder, old)); err != nil {
			slog.WarnContext(ctx, "failed to delete previous avatar", "userId", caller.ID.Hex(), "error", err)
		}
	}
	return url, nil
}

func (s *UserService) PublicProfile(ctx context.Context, email string) (*PublicProfile, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	posts, err := s.posts.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return &PublicProfile{User: user.Public(), Posts: views(posts)}, nil
}
