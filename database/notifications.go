package database

import (
	"context"
	"time"

	"inkpost/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(coll *mongo.Collection) *NotificationRepository {
	return &NotificationRepository{coll: coll}
}

// RecordLike appends a like message to the post's notification document,
// creating it on first use.
func (r *NotificationRepository) RecordLike(ctx context.Context, postID primitive.ObjectID, email string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"postId": postID},
		bson.M{"$push": bson.M{"likeMessage": models.LikeMessage{UserEmail: email, Date: at}}},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

func (r *NotificationRepository) ListForPosts(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Notification, error) {
	out := []models.Notification{}
	if len(postIDs) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"postId": bson.M{"$in": postIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) DeleteForPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"postId": postID})
	return translate(err)
}
