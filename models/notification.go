package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LikeMessage struct {
	UserEmail string    `bson:"userEmail" json:"userEmail"`
	Date      time.Time `bson:"date" json:"date"`
}

// Notification collects the like events of a single post.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID      primitive.ObjectID `bson:"postId" json:"postId"`
	LikeMessage []LikeMessage      `bson:"likeMessage" json:"likeMessage"`
}

// PushSubscription is the browser push endpoint stored for one user.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}
