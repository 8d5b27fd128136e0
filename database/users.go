package database

import (
	"context"
	"time"

	"inkpost/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

// Create inserts u, assigning an id when it has none. A taken email
// yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Posts == nil {
		u.Posts = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, u)
	return translate(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// SetOTP replaces the pending challenge of the user. A nil expiresAt
// stores a code that never expires.
func (r *UserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiresAt *time.Time) error {
	update := bson.M{"$set": bson.M{"otp": otp}}
	if expiresAt != nil {
		update["$set"].(bson.M)["otpExpiresAt"] = *expiresAt
	} else {
		update["$unset"] = bson.M{"otpExpiresAt": ""}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update)
}

// ConsumeOTP marks the user verified and clears the challenge, but only
// while otp is still the stored code. It returns ErrNotFound when the
// code was overwritten in the meantime.
func (r *UserRepository) ConsumeOTP(ctx context.Context, id primitive.ObjectID, otp string) error {
	return r.updateOne(ctx, bson.M{"_id": id, "otp": otp}, bson.M{
		"$set":   bson.M{"isVerified": true},
		"$unset": bson.M{"otp": "", "otpExpiresAt": ""},
	})
}

// UpdatePassword stores a new hash and drops any pending challenge.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"passwordHash": hash},
		"$unset": bson.M{"otp": "", "otpExpiresAt": ""},
	})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error {
	set := bson.M{}
	if upd.Name != "" {
		set["name"] = upd.Name
	}
	if upd.Email != "" {
		set["email"] = upd.Email
	}
	if upd.Location != "" {
		set["location"] = upd.Location
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}
	if len(set) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *UserRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"avatar": url}})
}

func (r *UserRepository) AddPost(ctx context.Context, userID, postID primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": bson.M{"posts": postID}})
}

func (r *UserRepository) RemovePost(ctx context.Context, userID, postID primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": userID}, bson.M{"$pull": bson.M{"posts": postID}})
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) updateOne(ctx context.Context, filter bson.M, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
