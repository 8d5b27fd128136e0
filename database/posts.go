package database

import (
	"context"

	"inkpost/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(coll *mongo.Collection) *PostRepository {
	return &PostRepository{coll: coll}
}

func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.LovedBy == nil {
		p.LovedBy = []string{}
	}
	_, err := r.coll.InsertOne(ctx, p)
	return translate(err)
}

func (r *PostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PostRepository) FindWithOwner(ctx context.Context, id primitive.ObjectID) (*models.PostWithOwner, error) {
	posts, err := r.aggregate(ctx, bson.D{{"_id", id}})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// List returns every post, newest first, with the owner expanded.
func (r *PostRepository) List(ctx context.Context) ([]models.PostWithOwner, error) {
	return r.aggregate(ctx, bson.D{})
}

func (r *PostRepository) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.PostWithOwner, error) {
	return r.aggregate(ctx, bson.D{{"owner", owner}})
}

func (r *PostRepository) ListLovedBy(ctx context.Context, email string) ([]models.PostWithOwner, error) {
	return r.aggregate(ctx, bson.D{{"lovedBy", email}})
}

func (r *PostRepository) aggregate(ctx context.Context, match bson.D) ([]models.PostWithOwner, error) {
	pipeline := mongo.Pipeline{
		{{"$match", match}},
		{{"$sort", bson.D{{"date", -1}}}},
		{{"$lookup", bson.D{
			{"from", UsersCollection},
			{"localField", "owner"},
			{"foreignField", "_id"},
			{"as", "author"},
		}}},
		{{"$unwind", bson.D{
			{"path", "$author"},
			{"preserveNullAndEmptyArrays", true},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.PostWithOwner{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.PostUpdate) error {
	set := bson.M{}
	if upd.Title != "" {
		set["title"] = upd.Title
	}
	if upd.Description != "" {
		set["description"] = upd.Description
	}
	if upd.Category != "" {
		set["category"] = upd.Category
	}
	if upd.Image != "" {
		set["image"] = upd.Image
	}
	if len(set) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLove adds email to the post's lovedBy set. It reports whether the
// set changed.
func (r *PostRepository) AddLove(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	return r.toggle(ctx, id, bson.M{"$addToSet": bson.M{"lovedBy": email}})
}

// RemoveLove removes email from the post's lovedBy set. It reports
// whether the set changed.
func (r *PostRepository) RemoveLove(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	return r.toggle(ctx, id, bson.M{"$pull": bson.M{"lovedBy": email}})
}

func (r *PostRepository) toggle(ctx context.Context, id primitive.ObjectID, update bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, translate(err)
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}
