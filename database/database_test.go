package database

import (
	"context"
	"testing"
	"time"

	"inkpost/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewUserRepository(mt.Coll)

		u := &models.User{Name: "Al", Email: "a@x.com"}
		require.NoError(t, repo.Create(ctx, u))
		assert.False(t, u.ID.IsZero())
		assert.NotNil(t, u.Posts)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: inkpost.users index: email_1",
		}))
		repo := NewUserRepository(mt.Coll)

		err := repo.Create(ctx, &models.User{Email: "a@x.com"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	mt.Run("find by email", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "inkpost.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Al"},
			{Key: "email", Value: "a@x.com"},
			{Key: "otp", Value: "123456"},
			{Key: "isVerified", Value: false},
		}))
		repo := NewUserRepository(mt.Coll)

		u, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		require.NotNil(t, u.OTP)
		assert.Equal(t, "123456", *u.OTP)
	})

	mt.Run("find missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "inkpost.users", mtest.FirstBatch))
		repo := NewUserRepository(mt.Coll)

		_, err := repo.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("consume stale otp", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		repo := NewUserRepository(mt.Coll)

		err := repo.ConsumeOTP(ctx, primitive.NewObjectID(), "123456")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("set otp", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})
		repo := NewUserRepository(mt.Coll)

		at := time.Now().Add(time.Minute)
		assert.NoError(t, repo.SetOTP(ctx, primitive.NewObjectID(), "654321", &at))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		repo := NewUserRepository(mt.Coll)

		assert.ErrorIs(t, repo.Delete(ctx, primitive.NewObjectID()), ErrNotFound)
	})
}

func TestPostRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("add love reports change", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 0}},
		)
		repo := NewPostRepository(mt.Coll)
		id := primitive.NewObjectID()

		added, err := repo.AddLove(ctx, id, "b@x.com")
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.AddLove(ctx, id, "b@x.com")
		require.NoError(t, err)
		assert.False(t, added)
	})

	mt.Run("love on missing post", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		repo := NewPostRepository(mt.Coll)

		_, err := repo.RemoveLove(ctx, primitive.NewObjectID(), "b@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("list joins author", func(mt *mtest.T) {
		owner := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "inkpost.posts", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "title", Value: "Hello"},
				{Key: "owner", Value: owner},
				{Key: "lovedBy", Value: bson.A{"b@x.com"}},
				{Key: "author", Value: bson.D{
					{Key: "_id", Value: owner},
					{Key: "name", Value: "Al"},
					{Key: "email", Value: "a@x.com"},
					{Key: "passwordHash", Value: "secret"},
				}},
			},
		))
		repo := NewPostRepository(mt.Coll)

		posts, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		require.NotNil(t, posts[0].Author)
		assert.Equal(t, "Al", posts[0].Author.Name)

		view := posts[0].View()
		assert.Equal(t, owner, view.OwnerID)
		assert.Equal(t, 1, view.Likes)
		assert.Equal(t, "a@x.com", view.Owner.Email)
	})
}

func TestNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list with no posts skips the query", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.Coll)

		notes, err := repo.ListForPosts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	mt.Run("record like upserts", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 0}})
		repo := NewNotificationRepository(mt.Coll)

		assert.NoError(t, repo.RecordLike(ctx, primitive.NewObjectID(), "b@x.com", time.Now()))
	})
}
