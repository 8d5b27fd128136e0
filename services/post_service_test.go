package services

import (
	"context"
	"strings"
	"testing"

	"inkpost/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")

	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello", Description: "first", Category: "misc"})
	require.NoError(t, err)
	assert.Equal(t, al.ID, post.Owner)
	assert.False(t, post.Date.IsZero())
	assert.Empty(t, post.LovedBy)

	owner, err := e.store.Users().FindByID(ctx, al.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{post.ID}, owner.Posts)

	view, err := e.posts.Read(ctx, post.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, view.Owner)
	assert.Equal(t, "Al", view.Owner.Name)
	assert.Equal(t, al.ID, view.OwnerID)
}

func TestCreatePostRequiresTitle(t *testing.T) {
	e := newEnv(t)
	al := e.signup(t, "Al", "a@x.com")

	_, err := e.posts.Create(context.Background(), al, PostInput{Title: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation_error")
}

func TestCreatePostUnknownOwnerLeavesNoPost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ghost := Caller{ID: primitive.NewObjectID(), Email: "ghost@x.com"}

	_, err := e.posts.Create(ctx, ghost, PostInput{Title: "orphan"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	posts, err := e.posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestReadPostErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.posts.Read(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = e.posts.Read(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestEditPostOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	bo := e.signup(t, "Bo", "b@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello", Description: "first"})
	require.NoError(t, err)

	_, err = e.posts.Edit(ctx, bo, post.ID.Hex(), PostInput{Title: "hijacked"})
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := e.posts.Edit(ctx, al, post.ID.Hex(), PostInput{Title: "Hello again"})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "first", updated.Description, "empty fields are kept")
	assert.Equal(t, al.ID, updated.Owner)

	_, err = e.posts.Edit(ctx, al, primitive.NewObjectID().Hex(), PostInput{Title: "x"})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	bo := e.signup(t, "Bo", "b@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{
		Title: "Hello",
		Image: "https://res.cloudinary.com/demo/image/upload/v1/post_images/abc.jpg",
	})
	require.NoError(t, err)
	_, err = e.posts.Like(ctx, bo, post.ID.Hex())
	require.NoError(t, err)

	_, err = e.posts.Delete(ctx, bo, post.ID.Hex())
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = e.posts.Read(ctx, post.ID.Hex())
	require.NoError(t, err, "a rejected delete keeps the post")

	res, err := e.posts.Delete(ctx, al, post.ID.Hex())
	require.NoError(t, err)
	assert.True(t, res.ImageDeleted)
	assert.Empty(t, res.ImageError)
	assert.Equal(t, []string{"post_images/abc"}, e.media.deleted)

	_, err = e.posts.Read(ctx, post.ID.Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)

	owner, err := e.store.Users().FindByID(ctx, al.ID)
	require.NoError(t, err)
	assert.Empty(t, owner.Posts)

	notes, err := e.store.Notifications().ListForPosts(ctx, []primitive.ObjectID{post.ID})
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = e.posts.Delete(ctx, al, post.ID.Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePostReportsImageFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello", Image: "https://media.example.com/post_images/x.png"})
	require.NoError(t, err)
	e.media.deleteErr = errBoom

	res, err := e.posts.Delete(ctx, al, post.ID.Hex())
	require.NoError(t, err)
	assert.False(t, res.ImageDeleted)
	assert.NotEmpty(t, res.ImageError)

	_, err = e.posts.Read(ctx, post.ID.Hex())
	assert.ErrorIs(t, err, ErrPostNotFound, "the post is gone even though the image stayed")
}

func TestLikeIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	bo := e.signup(t, "Bo", "b@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello"})
	require.NoError(t, err)
	id := post.ID.Hex()

	got, err := e.posts.Like(ctx, bo, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, got.LovedBy)

	got, err = e.posts.Like(ctx, bo, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, got.LovedBy)

	got, err = e.posts.Dislike(ctx, bo, id)
	require.NoError(t, err)
	assert.Empty(t, got.LovedBy)

	got, err = e.posts.Dislike(ctx, bo, id)
	require.NoError(t, err)
	assert.Empty(t, got.LovedBy)

	_, err = e.posts.Like(ctx, bo, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = e.posts.Dislike(ctx, bo, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestLikeNotifiesOwnerOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	bo := e.signup(t, "Bo", "b@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello"})
	require.NoError(t, err)

	_, err = e.posts.Like(ctx, bo, post.ID.Hex())
	require.NoError(t, err)
	_, err = e.posts.Like(ctx, bo, post.ID.Hex())
	require.NoError(t, err)
	_, err = e.posts.Like(ctx, al, post.ID.Hex())
	require.NoError(t, err)

	require.Len(t, e.notifier.events, 1, "no push for repeats or self-likes")
	assert.Equal(t, likeEvent{owner: al.ID, post: post.ID, liker: "b@x.com"}, e.notifier.events[0])

	notes, err := e.posts.Notifications(ctx, al)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, post.ID, notes[0].PostID)
	require.Len(t, notes[0].LikeMessage, 2)
	assert.Equal(t, "b@x.com", notes[0].LikeMessage[0].UserEmail)
	assert.Equal(t, "a@x.com", notes[0].LikeMessage[1].UserEmail)

	notes, err = e.posts.Notifications(ctx, bo)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestListByOwnerAndLikedBy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	bo := e.signup(t, "Bo", "b@x.com")

	p1, err := e.posts.Create(ctx, al, PostInput{Title: "one"})
	require.NoError(t, err)
	_, err = e.posts.Create(ctx, bo, PostInput{Title: "two"})
	require.NoError(t, err)

	mine, err := e.posts.ListByOwner(ctx, al)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "one", mine[0].Title)

	_, err = e.posts.ListLikedBy(ctx, bo)
	assert.ErrorIs(t, err, ErrNoLikedPosts)

	_, err = e.posts.Like(ctx, bo, p1.ID.Hex())
	require.NoError(t, err)
	liked, err := e.posts.ListLikedBy(ctx, bo)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, p1.ID, liked[0].ID)
	assert.Equal(t, 1, liked[0].Likes)
}

func TestLikeUsesStoredEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello"})
	require.NoError(t, err)

	_, err = e.users.UpdateProfile(ctx, al, ProfileInput{Email: "a2@x.com"})
	require.NoError(t, err)
	bo := e.signup(t, "Bo", "a@x.com")

	// al still carries the email its token was issued for.
	got, err := e.posts.Like(ctx, al, post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"a2@x.com"}, got.LovedBy)
	assert.True(t, got.Liked)

	_, err = e.posts.ListLikedBy(ctx, bo)
	assert.ErrorIs(t, err, ErrNoLikedPosts)
	liked, err := e.posts.ListLikedBy(ctx, al)
	require.NoError(t, err)
	require.Len(t, liked, 1)

	got, err = e.posts.Dislike(ctx, al, post.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.LovedBy)
	assert.False(t, got.Liked)
}

func TestListUsesCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")

	_, err := e.posts.Create(ctx, al, PostInput{Title: "one"})
	require.NoError(t, err)

	posts, err := e.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, e.cache.ok)

	e.cache.posts = []models.PostView{{Title: "cached"}}
	posts, err = e.posts.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cached", posts[0].Title)

	before := e.cache.invalidated
	_, err = e.posts.Create(ctx, al, PostInput{Title: "two"})
	require.NoError(t, err)
	assert.Equal(t, before+1, e.cache.invalidated)

	posts, err = e.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Al", posts[0].Owner.Name)
}

// hookedPosts runs onList after each store read of the listing.
type hookedPosts struct {
	PostStore
	onList func()
}

func (p *hookedPosts) List(ctx context.Context) ([]models.PostWithOwner, error) {
	posts, err := p.PostStore.List(ctx)
	if p.onList != nil {
		p.onList()
	}
	return posts, err
}

func TestListSkipsCacheWriteAfterConcurrentChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	al := e.signup(t, "Al", "a@x.com")
	_, err := e.posts.Create(ctx, al, PostInput{Title: "one"})
	require.NoError(t, err)

	hooked := &hookedPosts{PostStore: e.store.Posts()}
	svc := NewPostService(PostDeps{
		Posts:         hooked,
		Users:         e.store.Users(),
		Notifications: e.store.Notifications(),
		Media:         e.media,
		Cache:         e.cache,
	})
	hooked.onList = func() {
		hooked.onList = nil
		_, err := svc.Create(ctx, al, PostInput{Title: "two"})
		require.NoError(t, err)
	}

	posts, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.False(t, e.cache.ok, "the stale listing is not cached")

	posts, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.True(t, e.cache.ok)
}

func TestPostImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	url, err := e.posts.UploadImage(ctx, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Contains(t, url, "/post_images/")

	require.NoError(t, e.posts.DeleteImage(ctx, url))
	assert.Equal(t, []string{"post_images/img1"}, e.media.deleted)

	err = e.posts.DeleteImage(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation_error")

	e.media.uploadErr = errBoom
	e.media.deleteErr = errBoom
	_, err = e.posts.UploadImage(ctx, strings.NewReader("png"))
	assert.Contains(t, err.Error(), "upstream_failure")
	err = e.posts.DeleteImage(ctx, url)
	assert.Contains(t, err.Error(), "upstream_failure")
}

// Signup, verify, login, create, then a delete by another user.
func TestEndToEndOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pending, err := e.auth.Signup(ctx, SignupInput{Name: "Al", Email: "a@x.com", Location: "NY", Password: "pw1"})
	require.NoError(t, err)
	stored, err := e.store.Users().FindByID(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OTP)

	verified, err := e.auth.VerifyOTP(ctx, "a@x.com", *stored.OTP)
	require.NoError(t, err)
	assert.True(t, verified.User.IsVerified)

	session, err := e.auth.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	claims, err := e.tokens.Verify(session.Token)
	require.NoError(t, err)
	al, err := CallerFromClaims(claims)
	require.NoError(t, err)

	post, err := e.posts.Create(ctx, al, PostInput{Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, post.Owner)

	bo := e.signup(t, "Bo", "b@x.com")
	_, err = e.posts.Delete(ctx, bo, post.ID.Hex())
	assert.ErrorIs(t, err, ErrNotOwner)
}
