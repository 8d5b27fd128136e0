// Package memstore is an in-memory implementation of the repositories in
// package database. It is selected with MONGODB_URI=memory:// and backs
// the service and handler tests. Every method returns copies, so callers
// can never mutate stored state behind the store's back.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"inkpost/database"
	"inkpost/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	posts         map[primitive.ObjectID]*models.Post
	notifications map[primitive.ObjectID]*models.Notification
	subscriptions map[primitive.ObjectID]*models.PushSubscription
}

func New() *Store {
	return &Store{
		users:         map[primitive.ObjectID]*models.User{},
		posts:         map[primitive.ObjectID]*models.Post{},
		notifications: map[primitive.ObjectID]*models.Notification{},
		subscriptions: map[primitive.ObjectID]*models.PushSubscription{},
	}
}

// Users returns a view of the store satisfying the user repository contract.
func (s *Store) Users() *Users { return &Users{s} }

func (s *Store) Posts() *Posts { return &Posts{s} }

func (s *Store) Notifications() *Notifications { return &Notifications{s} }

func (s *Store) Subscriptions() *Subscriptions { return &Subscriptions{s} }

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Posts = append([]primitive.ObjectID{}, u.Posts...)
	if u.OTP != nil {
		otp := *u.OTP
		cp.OTP = &otp
	}
	if u.OTPExpiresAt != nil {
		at := *u.OTPExpiresAt
		cp.OTPExpiresAt = &at
	}
	return &cp
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.LovedBy = append([]string{}, p.LovedBy...)
	return &cp
}

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return database.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Posts == nil {
		u.Posts = []primitive.ObjectID{}
	}
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *Users) SetOTP(_ context.Context, id primitive.ObjectID, otp string, expiresAt *time.Time) error {
	return r.update(id, func(u *models.User) error {
		u.OTP = &otp
		u.OTPExpiresAt = nil
		if expiresAt != nil {
			at := *expiresAt
			u.OTPExpiresAt = &at
		}
		return nil
	})
}

func (r *Users) ConsumeOTP(_ context.Context, id primitive.ObjectID, otp string) error {
	return r.update(id, func(u *models.User) error {
		if u.OTP == nil || *u.OTP != otp {
			return database.ErrNotFound
		}
		u.IsVerified = true
		u.OTP = nil
		u.OTPExpiresAt = nil
		return nil
	})
}

func (r *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.update(id, func(u *models.User) error {
		u.PasswordHash = hash
		u.OTP = nil
		u.OTPExpiresAt = nil
		return nil
	})
}

func (r *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	if upd.Email != "" && upd.Email != u.Email {
		for _, other := range r.s.users {
			if other.Email == upd.Email {
				return database.ErrDuplicate
			}
		}
		u.Email = upd.Email
	}
	if upd.Name != "" {
		u.Name = upd.Name
	}
	if upd.Location != "" {
		u.Location = upd.Location
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	return nil
}

func (r *Users) SetAvatar(_ context.Context, id primitive.ObjectID, url string) error {
	return r.update(id, func(u *models.User) error {
		u.Avatar = url
		return nil
	})
}

func (r *Users) AddPost(_ context.Context, userID, postID primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) error {
		if !u.HasPost(postID) {
			u.Posts = append(u.Posts, postID)
		}
		return nil
	})
}

func (r *Users) RemovePost(_ context.Context, userID, postID primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) error {
		kept := u.Posts[:0]
		for _, p := range u.Posts {
			if p != postID {
				kept = append(kept, p)
			}
		}
		u.Posts = kept
		return nil
	})
}

func (r *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *Users) update(id primitive.ObjectID, fn func(u *models.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	cp := copyUser(u)
	if err := fn(cp); err != nil {
		return err
	}
	r.s.users[id] = cp
	return nil
}

type Posts struct{ s *Store }

func (r *Posts) Create(_ context.Context, p *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.LovedBy == nil {
		p.LovedBy = []string{}
	}
	r.s.posts[p.ID] = copyPost(p)
	return nil
}

func (r *Posts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyPost(p), nil
}

func (r *Posts) FindWithOwner(_ context.Context, id primitive.ObjectID) (*models.PostWithOwner, error) {
	posts := r.list(func(p *models.Post) bool { return p.ID == id })
	if len(posts) == 0 {
		return nil, database.ErrNotFound
	}
	return &posts[0], nil
}

func (r *Posts) List(context.Context) ([]models.PostWithOwner, error) {
	return r.list(func(*models.Post) bool { return true }), nil
}

func (r *Posts) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]models.PostWithOwner, error) {
	return r.list(func(p *models.Post) bool { return p.Owner == owner }), nil
}

func (r *Posts) ListLovedBy(_ context.Context, email string) ([]models.PostWithOwner, error) {
	return r.list(func(p *models.Post) bool { return p.LovedByEmail(email) }), nil
}

// list mirrors the Mongo pipeline: filter, newest first, owner joined.
func (r *Posts) list(match func(p *models.Post) bool) []models.PostWithOwner {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.PostWithOwner{}
	for _, p := range r.s.posts {
		if !match(p) {
			continue
		}
		pw := models.PostWithOwner{Post: *copyPost(p)}
		if u, ok := r.s.users[p.Owner]; ok {
			pw.Author = copyUser(u)
		}
		out = append(out, pw)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (r *Posts) Update(_ context.Context, id primitive.ObjectID, upd models.PostUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return database.ErrNotFound
	}
	if upd.Title != "" {
		p.Title = upd.Title
	}
	if upd.Description != "" {
		p.Description = upd.Description
	}
	if upd.Category != "" {
		p.Category = upd.Category
	}
	if upd.Image != "" {
		p.Image = upd.Image
	}
	return nil
}

func (r *Posts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (r *Posts) AddLove(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return false, database.ErrNotFound
	}
	if p.LovedByEmail(email) {
		return false, nil
	}
	p.LovedBy = append(p.LovedBy, email)
	return true, nil
}

func (r *Posts) RemoveLove(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return false, database.ErrNotFound
	}
	kept := make([]string, 0, len(p.LovedBy))
	for _, e := range p.LovedBy {
		if e != email {
			kept = append(kept, e)
		}
	}
	changed := len(kept) != len(p.LovedBy)
	p.LovedBy = kept
	return changed, nil
}

type Notifications struct{ s *Store }

func (r *Notifications) RecordLike(_ context.Context, postID primitive.ObjectID, email string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[postID]
	if !ok {
		n = &models.Notification{ID: primitive.NewObjectID(), PostID: postID}
		r.s.notifications[postID] = n
	}
	n.LikeMessage = append(n.LikeMessage, models.LikeMessage{UserEmail: email, Date: at})
	return nil
}

func (r *Notifications) ListForPosts(_ context.Context, postIDs []primitive.ObjectID) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Notification{}
	for _, id := range postIDs {
		if n, ok := r.s.notifications[id]; ok {
			cp := *n
			cp.LikeMessage = append([]models.LikeMessage{}, n.LikeMessage...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *Notifications) DeleteForPost(_ context.Context, postID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.notifications, postID)
	return nil
}

type Subscriptions struct{ s *Store }

func (r *Subscriptions) Save(_ context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.subscriptions[userID]
	if !ok {
		existing = &models.PushSubscription{ID: primitive.NewObjectID(), UserID: userID}
		r.s.subscriptions[userID] = existing
	}
	existing.Sub = sub
	return nil
}

func (r *Subscriptions) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.subscriptions[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *Subscriptions) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.subscriptions, userID)
	return nil
}
