package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Image       string             `bson:"image" json:"image"`
	Date        time.Time          `bson:"date" json:"date"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	LovedBy     []string           `bson:"lovedBy" json:"lovedBy"`
}

// PostWithOwner is a post joined with its owner document ($lookup result).
type PostWithOwner struct {
	Post   `bson:",inline"`
	Author *User `bson:"author,omitempty"`
}

// PostView is the response shape of a post with the owner expanded.
type PostView struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Image       string             `json:"image"`
	Date        time.Time          `json:"date"`
	OwnerID     primitive.ObjectID `json:"ownerId"`
	Owner       *PublicUser        `json:"owner"`
	LovedBy     []string           `json:"lovedBy"`
	Likes       int                `json:"likes"`
}

func (p PostWithOwner) View() PostView {
	v := PostView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		Date:        p.Date,
		OwnerID:     p.Post.Owner,
		LovedBy:     p.LovedBy,
		Likes:       len(p.LovedBy),
	}
	if v.LovedBy == nil {
		v.LovedBy = []string{}
	}
	if p.Author != nil {
		pub := p.Author.Public()
		v.Owner = &pub
	}
	return v
}

// LovedByEmail reports whether email is in the post's lovedBy set.
func (p *Post) LovedByEmail(email string) bool {
	for _, e := range p.LovedBy {
		if e == email {
			return true
		}
	}
	return false
}

// PostUpdate holds the editable post fields. Empty strings leave the
// stored value unchanged.
type PostUpdate struct {
	Title       string
	Description string
	Category    string
	Image       string
}
