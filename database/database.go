package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	PostsCollection         = "posts"
	NotificationsCollection = "notifications"
	SubscriptionsCollection = "push_subscriptions"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type DB struct {
	Client        *mongo.Client
	Users         *mongo.Collection
	Posts         *mongo.Collection
	Notifications *mongo.Collection
	Subscriptions *mongo.Collection
}

// Connect dials MongoDB, pings it and binds the collections of database name.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("connected to MongoDB", "database", name)
	return New(client.Database(name)), nil
}

// ConnectWithRetry calls Connect up to attempts times, waiting delay in between.
func ConnectWithRetry(ctx context.Context, uri, name string, attempts int, delay time.Duration) (*DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := Connect(ctx, uri, name)
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Warn("MongoDB connection attempt failed", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func New(db *mongo.Database) *DB {
	return &DB{
		Client:        db.Client(),
		Users:         db.Collection(UsersCollection),
		Posts:         db.Collection(PostsCollection),
		Notifications: db.Collection(NotificationsCollection),
		Subscriptions: db.Collection(SubscriptionsCollection),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// email index is what makes signup safe against concurrent duplicates.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	if _, err := db.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{"email", 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"owner", 1}}},
		{Keys: bson.D{{"lovedBy", 1}}},
		{Keys: bson.D{{"date", -1}}},
	}); err != nil {
		return err
	}
	if _, err := db.Notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{"postId", 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := db.Subscriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{"userId", 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	if db == nil || db.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.Client.Disconnect(ctx); err != nil {
		return err
	}

	slog.Info("disconnected from MongoDB")
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
