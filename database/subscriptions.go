package database

import (
	"context"

	"inkpost/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SubscriptionRepository struct {
	coll *mongo.Collection
}

func NewSubscriptionRepository(coll *mongo.Collection) *SubscriptionRepository {
	return &SubscriptionRepository{coll: coll}
}

// Save stores sub as the user's only subscription.
func (r *SubscriptionRepository) Save(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"userId": userID, "sub": sub}},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var s models.PushSubscription
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SubscriptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"userId": userID})
	return translate(err)
}
