package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Email        string               `bson:"email" json:"email"`
	Location     string               `bson:"location" json:"location"`
	PasswordHash string               `bson:"passwordHash" json:"-"`
	Avatar       string               `bson:"avatar" json:"avatar"`
	IsVerified   bool                 `bson:"isVerified" json:"isVerified"`
	Posts        []primitive.ObjectID `bson:"posts" json:"posts"`
	CreatedAt    int64                `bson:"createdAt" json:"createdAt"`

	// Pending verification or reset challenge. Only one is open at a time.
	OTP          *string    `bson:"otp,omitempty" json:"-"`
	OTPExpiresAt *time.Time `bson:"otpExpiresAt,omitempty" json:"-"`
}

// PublicUser is the part of a user that other callers may see.
type PublicUser struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Location string             `json:"location"`
	Avatar   string             `json:"avatar"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Location: u.Location,
		Avatar:   u.Avatar,
	}
}

// HasPost reports whether id is in the user's posts back-reference.
func (u *User) HasPost(id primitive.ObjectID) bool {
	for _, p := range u.Posts {
		if p == id {
			return true
		}
	}
	return false
}

// ProfileUpdate holds the editable profile fields. Empty strings and a
// nil PasswordHash leave the stored value unchanged.
type ProfileUpdate struct {
	Name         string
	Email        string
	Location     string
	PasswordHash *string
}
