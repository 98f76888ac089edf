package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VoteChoice string

const (
	VoteLike    VoteChoice = "like"
	VoteDislike VoteChoice = "dislike"
)

func (c VoteChoice) Valid() bool {
	return c == VoteLike || c == VoteDislike
}

// Vote is one entry of a review's helpful ledger.
type Vote struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Type   VoteChoice         `bson:"type" json:"type"`
}

type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ItemID     primitive.ObjectID `bson:"movieId" json:"movieId"`
	ItemType   Kind               `bson:"itemType" json:"itemType"`
	ItemTitle  string             `bson:"movieTitle" json:"movieTitle"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Username   string             `bson:"username" json:"username"`
	Text       string             `bson:"text" json:"text"`
	Rating     int                `bson:"rating" json:"rating"`
	Date       time.Time          `bson:"date" json:"date"`
	Likes      int                `bson:"likes" json:"likes"`
	Dislikes   int                `bson:"dislikes" json:"dislikes"`
	Helpful    []Vote             `bson:"helpful" json:"helpful"`
	IsEdited   bool               `bson:"isEdited" json:"isEdited"`
	LastEdited *time.Time         `bson:"lastEdited,omitempty" json:"lastEdited,omitempty"`

	// Version is bumped on every ledger write and used as a CAS guard.
	Version int64 `bson:"version" json:"-"`
}

func (r Review) Ref() ItemRef {
	return ItemRef{Kind: r.ItemType, ID: r.ItemID}
}
