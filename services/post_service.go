package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"inkpost/apperror"
	"inkpost/database"
	"inkpost/media"
	"inkpost/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostDeps struct {
	Posts         PostStore
	Users         UserStore
	Notifications NotificationStore
	Media         MediaHost

	// Optional.
	Cache    PostCache
	Notifier LikeNotifier
}

// PostService owns post CRUD, likes and post images. Every mutation of an
// existing post is gated on the caller owning it.
type PostService struct {
	posts    PostStore
	users    UserStore
	notes    NotificationStore
	media    MediaHost
	cache    PostCache
	notifier LikeNotifier
	now      func() time.Time

	// gen counts invalidations so List can tell its read went stale.
	gen atomic.Uint64
}

func NewPostService(d PostDeps) *PostService {
	return &PostService{
		posts:    d.Posts,
		users:    d.Users,
		notes:    d.Notifications,
		media:    d.Media,
		cache:    d.Cache,
		notifier: d.Notifier,
		now:      time.Now,
	}
}

type PostInput struct {
	Title       string
	Description string
	Category    string
	Image       string
}

// DeleteResult reports the outcome of a post deletion. The post record is
// gone even when the image could not be removed from the media host.
type DeleteResult struct {
	PostID       string `json:"postId"`
	ImageDeleted bool   `json:"imageDeleted"`
	ImageError   string `json:"imageError,omitempty"`
}

func (s *PostService) List(ctx context.Context) ([]models.PostView, error) {
	if s.cache != nil {
		if posts, ok := s.cache.GetPosts(ctx); ok {
			return posts, nil
		}
	}

	gen := s.gen.Load()
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	out := views(posts)
	// A mutation that landed during the read leaves out stale.
	if s.cache != nil && s.gen.Load() == gen {
		s.cache.SetPosts(ctx, out)
	}
	return out, nil
}

func (s *PostService) Read(ctx context.Context, id string) (*models.PostView, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.FindWithOwner(ctx, pid)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	v := post.View()
	return &v, nil
}

func (s *PostService) Create(ctx context.Context, caller Caller, in PostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.NewValidation("title is required")
	}

	post := &models.Post{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Image:       in.Image,
		Date:        s.now(),
		Owner:       caller.ID,
		LovedBy:     []string{},
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperror.NewInternal(err)
	}

	if err := s.users.AddPost(ctx, caller.ID, post.ID); err != nil {
		// No owner to attach to; do not leave an orphan behind.
		if delErr := s.posts.Delete(context.WithoutCancel(ctx), post.ID); delErr != nil {
			slog.ErrorContext(ctx, "create post rollback failed", "postId", post.ID.Hex(), "error", delErr)
		}
		return nil, storeErr(err, ErrUserNotFound)
	}

	s.invalidate(ctx)
	return post, nil
}

// Edit updates a post owned by the caller. Ownership never changes.
func (s *PostService) Edit(ctx context.Context, caller Caller, id string, in PostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	upd := models.PostUpdate{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Image:       in.Image,
	}
	if err := s.posts.Update(ctx, post.ID, upd); err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	s.invalidate(ctx)

	updated, err := s.posts.FindByID(ctx, post.ID)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	return updated, nil
}

// Delete removes a post owned by the caller, detaches it from the owner
// and asks the media host to drop its image.
func (s *PostService) Delete(ctx context.Context, caller Caller, id string) (*DeleteResult, error) {
	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	s.invalidate(ctx)

	if err := s.users.RemovePost(ctx, post.Owner, post.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
		slog.WarnContext(ctx, "failed to detach post from owner", "postId", post.ID.Hex(), "error", err)
	}
	if err := s.notes.DeleteForPost(ctx, post.ID); err != nil {
		slog.WarnContext(ctx, "failed to delete post notifications", "postId", post.ID.Hex(), "error", err)
	}

	res := &DeleteResult{PostID: post.ID.Hex(), ImageDeleted: post.Image == ""}
	if post.Image != "" {
		if err := s.media.Delete(ctx, media.PublicIDFromURL(media.PostImageFolder, post.Image)); err != nil {
			slog.WarnContext(ctx, "failed to delete post image", "postId", post.ID.Hex(), "error", err)
			res.ImageError = "failed to delete image from media host"
		} else {
			res.ImageDeleted = true
		}
	}
	return res, nil
}

func (s *PostService) ListByOwner(ctx context.Context, caller Caller) ([]models.PostView, error) {
	posts, err := s.posts.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return views(posts), nil
}

// ListLikedBy returns the posts the caller has liked under their current
// email.
func (s *PostService) ListLikedBy(ctx context.Context, caller Caller) ([]models.PostView, error) {
	email, err := s.currentEmail(ctx, caller)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListLovedBy(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if len(posts) == 0 {
		return nil, ErrNoLikedPosts
	}
	return views(posts), nil
}

// LikeState is the lovedBy set of a post after a like or dislike.
type LikeState struct {
	PostID  string   `json:"postId"`
	LovedBy []string `json:"lovedBy"`
	Likes   int      `json:"likes"`
	Liked   bool     `json:"liked"`
}

func likeState(post *models.Post, email string) *LikeState {
	lovedBy := post.LovedBy
	if lovedBy == nil {
		lovedBy = []string{}
	}
	return &LikeState{
		PostID:  post.ID.Hex(),
		LovedBy: lovedBy,
		Likes:   len(lovedBy),
		Liked:   post.LovedByEmail(email),
	}
}

// Like adds the caller to the post's lovedBy set. Liking twice is a no-op;
// only the first like is recorded and pushed to the owner.
func (s *PostService) Like(ctx context.Context, caller Caller, id string) (*LikeState, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	email, err := s.currentEmail(ctx, caller)
	if err != nil {
		return nil, err
	}
	added, err := s.posts.AddLove(ctx, pid, email)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}

	post, err := s.posts.FindByID(ctx, pid)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	if !added {
		return likeState(post, email), nil
	}
	s.invalidate(ctx)

	if err := s.notes.RecordLike(ctx, pid, email, s.now()); err != nil {
		slog.WarnContext(ctx, "failed to record like notification", "postId", pid.Hex(), "error", err)
	}
	if s.notifier != nil && post.Owner != caller.ID {
		s.notifier.NotifyLike(ctx, post.Owner, post, email)
	}
	return likeState(post, email), nil
}

// Dislike removes the caller from the post's lovedBy set, if present.
func (s *PostService) Dislike(ctx context.Context, caller Caller, id string) (*LikeState, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	email, err := s.currentEmail(ctx, caller)
	if err != nil {
		return nil, err
	}
	removed, err := s.posts.RemoveLove(ctx, pid, email)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	if removed {
		s.invalidate(ctx)
	}

	post, err := s.posts.FindByID(ctx, pid)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	return likeState(post, email), nil
}

// Notifications lists the like notifications on the caller's posts.
func (s *PostService) Notifications(ctx context.Context, caller Caller) ([]models.Notification, error) {
	posts, err := s.posts.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	ids := make([]primitive.ObjectID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	notes, err := s.notes.ListForPosts(ctx, ids)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return notes, nil
}

func (s *PostService) UploadImage(ctx context.Context, file io.Reader) (string, error) {
	url, err := s.media.Upload(ctx, file, media.PostImageFolder)
	if err != nil {
		return "", apperror.NewUpstream("upload to media host failed", err)
	}
	return url, nil
}

// DeleteImage removes a post image given its public URL.
func (s *PostService) DeleteImage(ctx context.Context, imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperror.NewValidation("image URL is required")
	}
	if err := s.media.Delete(ctx, media.PublicIDFromURL(media.PostImageFolder, imageURL)); err != nil {
		return apperror.NewUpstream("failed to delete image", err)
	}
	return nil
}

func (s *PostService) ownedPost(ctx context.Context, caller Caller, id string) (*models.Post, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.FindByID(ctx, pid)
	if err != nil {
		return nil, storeErr(err, ErrPostNotFound)
	}
	if post.Owner != caller.ID {
		return nil, ErrNotOwner
	}
	return post, nil
}

// currentEmail returns the caller's stored email. A token keeps the email
// it was issued for, and that address may since belong to another user.
func (s *PostService) currentEmail(ctx context.Context, caller Caller) (string, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return "", storeErr(err, ErrUserNotFound)
	}
	return user.Email, nil
}

func (s *PostService) invalidate(ctx context.Context) {
	s.gen.Add(1)
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
