package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"inkpost/auth"
	"inkpost/database/memstore"
	"inkpost/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const testAvatar = "https://example.com/placeholder.png"

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[to] = code
	return nil
}

func (m *fakeMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[to]
}

type fakeMedia struct {
	uploads   int
	deleted   []string
	uploadErr error
	deleteErr error
}

func (m *fakeMedia) Upload(_ context.Context, file io.Reader, folder string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	m.uploads++
	return fmt.Sprintf("https://media.example.com/%s/img%d.png", folder, m.uploads), nil
}

func (m *fakeMedia) Delete(_ context.Context, publicID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, publicID)
	return nil
}

type likeEvent struct {
	owner primitive.ObjectID
	post  primitive.ObjectID
	liker string
}

type fakeNotifier struct {
	events []likeEvent
}

func (n *fakeNotifier) NotifyLike(_ context.Context, owner primitive.ObjectID, post *models.Post, liker string) {
	n.events = append(n.events, likeEvent{owner: owner, post: post.ID, liker: liker})
}

type fakeCache struct {
	posts       []models.PostView
	ok          bool
	invalidated int
}

func (c *fakeCache) GetPosts(context.Context) ([]models.PostView, bool) { return c.posts, c.ok }

func (c *fakeCache) SetPosts(_ context.Context, posts []models.PostView) {
	c.posts, c.ok = posts, true
}

func (c *fakeCache) Invalidate(context.Context) {
	c.posts, c.ok = nil, false
	c.invalidated++
}

type env struct {
	store    *memstore.Store
	mailer   *fakeMailer
	media    *fakeMedia
	notifier *fakeNotifier
	cache    *fakeCache
	tokens   *auth.TokenService

	auth  *AuthService
	users *UserService
	posts *PostService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    memstore.New(),
		mailer:   &fakeMailer{},
		media:    &fakeMedia{},
		notifier: &fakeNotifier{},
		cache:    &fakeCache{},
		tokens:   auth.NewTokenService([]byte("test-secret"), time.Hour),
	}
	hasher := auth.NewHasher(bcrypt.MinCost)

	e.auth = NewAuthService(AuthDeps{
		Users:         e.store.Users(),
		Mailer:        e.mailer,
		Hasher:        hasher,
		Tokens:        e.tokens,
		OTPTTL:        10 * time.Minute,
		DefaultAvatar: testAvatar,
	})
	e.users = NewUserService(e.store.Users(), e.store.Posts(), e.media, hasher, testAvatar)
	e.posts = NewPostService(PostDeps{
		Posts:         e.store.Posts(),
		Users:         e.store.Users(),
		Notifications: e.store.Notifications(),
		Media:         e.media,
		Cache:         e.cache,
		Notifier:      e.notifier,
	})
	return e
}

// signup registers and verifies a user, returning its caller identity.
func (e *env) signup(t *testing.T, name, email string) Caller {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Signup(ctx, SignupInput{Name: name, Email: email, Location: "NY", Password: "pw-" + name})
	require.NoError(t, err)

	session, err := e.auth.VerifyOTP(ctx, email, e.mailer.last(email))
	require.NoError(t, err)

	claims, err := e.tokens.Verify(session.Token)
	require.NoError(t, err)
	who, err := CallerFromClaims(claims)
	require.NoError(t, err)
	return who
}

var errBoom = errors.New("boom")
